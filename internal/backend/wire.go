package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/visa-track/visa_portal/internal/casefile"
)

// Action names understood by the sheet web app.
const (
	ActionStep1          = "step1"
	ActionStep2          = "step2"
	ActionCheckSession   = "checkSession"
	ActionLogout         = "logout"
	ActionUpdateDocument = "updateDocument"
)

// Text is a JSON value coerced to a string. Sheet cells come back as strings,
// numbers or booleans depending on how they were typed in.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	}
	return nil
}

type envelope struct {
	OK    *bool `json:"ok"`
	Error Text  `json:"error"`
}

type identityPayload struct {
	Name                  Text `json:"name"`
	LastName              Text `json:"lastname"`
	BirthYear             Text `json:"birthYear"`
	PassportNumber        Text `json:"passportNumber"`
	NationalID            Text `json:"nationalID"`
	ApplicationFormNumber Text `json:"applicationFormNumber"`
	Reference             Text `json:"reference"`
	ApplicationType       Text `json:"applicationType"`
	Row                   Text `json:"row"`
}

type step1Response struct {
	envelope
	Step2 *identityPayload `json:"step2"`
}

type step2Response struct {
	envelope
	SessionToken Text            `json:"sessionToken"`
	User         map[string]Text `json:"user"`
}

type userResponse struct {
	envelope
	User map[string]Text `json:"user"`
}

func (p identityPayload) toIdentity(ceu string) casefile.PendingIdentity {
	return casefile.PendingIdentity{
		Name:                  string(p.Name),
		LastName:              string(p.LastName),
		BirthYear:             string(p.BirthYear),
		PassportNumber:        string(p.PassportNumber),
		NationalID:            string(p.NationalID),
		ApplicationFormNumber: string(p.ApplicationFormNumber),
		Reference:             string(p.Reference),
		ApplicationType:       string(p.ApplicationType),
		CEU:                   ceu,
		RowID:                 string(p.Row),
	}
}

// RecordFromUser maps a backend user object onto a case record. Unknown
// keys are ignored.
func RecordFromUser(u map[string]Text) casefile.Record {
	rec := casefile.Record{
		Name:          string(u["name"]),
		LastName:      string(u["lastname"]),
		CEUNumber:     string(u["ceuNumber"]),
		PaymentStatus: string(u["paymentStatus"]),
		PhotoURL:      string(u["photoURL"]),
		LetterURL:     string(u["letterURL"]),
		Documents:     make(map[casefile.DocumentField]string, len(casefile.Fields())),
	}
	for _, f := range casefile.Fields() {
		rec.Documents[f] = string(u[string(f)])
	}
	return rec
}

// UserFromRecord is the inverse of RecordFromUser.
func UserFromRecord(r casefile.Record) map[string]Text {
	u := map[string]Text{
		"name":          Text(r.Name),
		"lastname":      Text(r.LastName),
		"ceuNumber":     Text(r.CEUNumber),
		"paymentStatus": Text(r.PaymentStatus),
		"photoURL":      Text(r.PhotoURL),
		"letterURL":     Text(r.LetterURL),
	}
	for _, f := range casefile.Fields() {
		u[string(f)] = Text(r.Document(f))
	}
	return u
}

func (r *userResponse) requireUser() error {
	if r.User == nil {
		return errors.New("missing user")
	}
	return nil
}
