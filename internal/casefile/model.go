package casefile

import "strings"

// Credentials are the step-one login inputs. They are never persisted.
type Credentials struct {
	Username string
	Password string
	CEU      string
}

// PendingIdentity is the identity record returned by step one and confirmed
// by the applicant in step two.
type PendingIdentity struct {
	Name                  string
	LastName              string
	BirthYear             string
	PassportNumber        string
	NationalID            string
	ApplicationFormNumber string
	Reference             string
	ApplicationType       string
	CEU                   string
	RowID                 string
}

// Session is the server-issued credential plus the case it belongs to.
type Session struct {
	Token string
	CEU   string
}

// Valid reports whether the session carries both a token and its CEU.
func (s Session) Valid() bool {
	return s.Token != "" && s.CEU != ""
}

// Record is the applicant's case row as last returned by the backend.
type Record struct {
	Name          string
	LastName      string
	CEUNumber     string
	PaymentStatus string
	PhotoURL      string
	LetterURL     string
	Documents     map[DocumentField]string
}

// FullName joins name and last name the way the dashboard header shows them.
func (r Record) FullName() string {
	return strings.TrimSpace(r.Name + " " + r.LastName)
}

// Paid reports whether the payment status is "paid", ignoring case and
// surrounding whitespace.
func (r Record) Paid() bool {
	return strings.ToLower(strings.TrimSpace(r.PaymentStatus)) == "paid"
}

// HasPhoto reports whether the photo URL is an absolute http(s) link.
func (r Record) HasPhoto() bool {
	return strings.HasPrefix(r.PhotoURL, "http")
}

// Document returns the stored link for a field, or "" when absent.
func (r Record) Document(f DocumentField) string {
	if r.Documents == nil {
		return ""
	}
	return r.Documents[f]
}

// Uploaded reports whether the field holds an uploaded file link.
func (r Record) Uploaded(f DocumentField) bool {
	return IsUploaded(r.Document(f))
}

// Clone returns a copy whose document map can be mutated independently.
func (r Record) Clone() Record {
	out := r
	if r.Documents != nil {
		out.Documents = make(map[DocumentField]string, len(r.Documents))
		for k, v := range r.Documents {
			out.Documents[k] = v
		}
	}
	return out
}
