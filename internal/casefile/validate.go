package casefile

import (
	"regexp"
	"strings"
)

var birthYearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidationError is a local form error. It never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// Normalize trims every credential field.
func (c Credentials) Normalize() Credentials {
	return Credentials{
		Username: strings.TrimSpace(c.Username),
		Password: strings.TrimSpace(c.Password),
		CEU:      strings.TrimSpace(c.CEU),
	}
}

// Validate requires all three step-one fields.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" || c.CEU == "" {
		return invalid("credentials", "Please fill in all step one fields.")
	}
	return nil
}

// Normalize trims every identity field.
func (p PendingIdentity) Normalize() PendingIdentity {
	return PendingIdentity{
		Name:                  strings.TrimSpace(p.Name),
		LastName:              strings.TrimSpace(p.LastName),
		BirthYear:             strings.TrimSpace(p.BirthYear),
		PassportNumber:        strings.TrimSpace(p.PassportNumber),
		NationalID:            strings.TrimSpace(p.NationalID),
		ApplicationFormNumber: strings.TrimSpace(p.ApplicationFormNumber),
		Reference:             strings.TrimSpace(p.Reference),
		ApplicationType:       strings.TrimSpace(p.ApplicationType),
		CEU:                   strings.TrimSpace(p.CEU),
		RowID:                 strings.TrimSpace(p.RowID),
	}
}

// Validate checks the step-two form. Passport number is optional; every
// other identity field is required and the birth year must be four digits.
func (p PendingIdentity) Validate() error {
	if p.CEU == "" {
		return invalid("ceu", "Case reference is missing. Please repeat step one.")
	}
	if p.Name == "" || p.LastName == "" || p.BirthYear == "" || p.NationalID == "" ||
		p.ApplicationFormNumber == "" || p.Reference == "" || p.ApplicationType == "" {
		return invalid("identity", "Please fill in all required step two fields.")
	}
	if !ValidBirthYear(p.BirthYear) {
		return invalid("birthYear", "Birth year must be four digits (YYYY).")
	}
	return nil
}

// ValidBirthYear accepts exactly four ASCII digits.
func ValidBirthYear(s string) bool {
	return birthYearPattern.MatchString(s)
}
