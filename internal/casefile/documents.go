package casefile

import "strings"

// DocumentField names one upload slot on a case record. The value doubles as
// the backend column key.
type DocumentField string

const (
	FieldPassport         DocumentField = "uploadPassport"
	FieldIdentityDocs     DocumentField = "uploadIdentityDocs"
	FieldProofOfDanger    DocumentField = "uploadProofOfDanger"
	FieldResidenceDocs    DocumentField = "uploadResidenceDocs"
	FieldEducationJobDocs DocumentField = "uploadEducationJobDocs"
	FieldFingerprints     DocumentField = "uploadFingerprints"
	FieldPaymentReceipt   DocumentField = "uploadPaymentReceipt"
)

// EmptyUpload is the placeholder the sheet uses for a slot with no file.
const EmptyUpload = "N/A"

var fieldLabels = map[DocumentField]string{
	FieldPassport:         "Passport",
	FieldIdentityDocs:     "Identity documents",
	FieldProofOfDanger:    "Proof of danger",
	FieldResidenceDocs:    "Residence documents",
	FieldEducationJobDocs: "Education / job documents",
	FieldFingerprints:     "Fingerprints",
	FieldPaymentReceipt:   "Payment receipt",
}

// Fields returns the document slots in dashboard order.
func Fields() []DocumentField {
	return []DocumentField{
		FieldPassport,
		FieldIdentityDocs,
		FieldProofOfDanger,
		FieldResidenceDocs,
		FieldEducationJobDocs,
		FieldFingerprints,
		FieldPaymentReceipt,
	}
}

// ParseField maps a column key to a known field.
func ParseField(key string) (DocumentField, bool) {
	f := DocumentField(key)
	_, ok := fieldLabels[f]
	return f, ok
}

// Label is the human-readable slot name.
func (f DocumentField) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// IsUploaded reports whether v is a non-empty value other than the
// empty-upload sentinel.
func IsUploaded(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, EmptyUpload)
}

// Checklist summarises every slot on one line, e.g.
// "✅ Passport • ⛔ Fingerprints — pending upload".
func Checklist(r Record) string {
	parts := make([]string, 0, len(fieldLabels))
	for _, f := range Fields() {
		if r.Uploaded(f) {
			parts = append(parts, "✅ "+f.Label())
		} else {
			parts = append(parts, "⛔ "+f.Label()+" — pending upload")
		}
	}
	return strings.Join(parts, " • ")
}
