package casefile

import (
	"errors"
	"strings"
	"testing"
)

func TestValidBirthYear(t *testing.T) {
	cases := map[string]bool{
		"1990":  true,
		"0000":  true,
		"99":    false,
		"199":   false,
		"19990": false,
		"abcd":  false,
		"19a0":  false,
		"":      false,
		"١٩٩٠":  false, // non-ASCII digits
		" 1990": false,
	}
	for in, want := range cases {
		if got := ValidBirthYear(in); got != want {
			t.Fatalf("ValidBirthYear(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsUploaded(t *testing.T) {
	cases := map[string]bool{
		"":                        false,
		"   ":                     false,
		"N/A":                     false,
		"n/a":                     false,
		"https://drive/x":         true,
		"file-link":               true,
		" https://drive/x?id=1 ": true,
	}
	for in, want := range cases {
		if got := IsUploaded(in); got != want {
			t.Fatalf("IsUploaded(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRecordPaid(t *testing.T) {
	cases := map[string]bool{
		"paid":     true,
		" PAID ":   true,
		"Paid":     true,
		"unpaid":   false,
		"":         false,
		"paid now": false,
	}
	for in, want := range cases {
		if got := (Record{PaymentStatus: in}).Paid(); got != want {
			t.Fatalf("Paid(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCredentialsValidate(t *testing.T) {
	err := Credentials{Username: "  ", Password: "pw", CEU: "C1"}.Normalize().Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (Credentials{Username: "u", Password: "p", CEU: "c"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPendingIdentityValidate(t *testing.T) {
	valid := PendingIdentity{
		Name: "Sara", LastName: "Ahmadi", BirthYear: "1990", NationalID: "123",
		ApplicationFormNumber: "AF-1", Reference: "R-9", ApplicationType: "work", CEU: "CEU-1",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noCEU := valid
	noCEU.CEU = ""
	if err := noCEU.Validate(); err == nil || err.(*ValidationError).Field != "ceu" {
		t.Fatalf("expected ceu error, got %v", err)
	}

	short := valid
	short.BirthYear = "199"
	if err := short.Validate(); err == nil || err.(*ValidationError).Field != "birthYear" {
		t.Fatalf("expected birthYear error, got %v", err)
	}

	missing := valid
	missing.Reference = ""
	if err := missing.Validate(); err == nil || err.(*ValidationError).Field != "identity" {
		t.Fatalf("expected identity error, got %v", err)
	}

	noPassport := valid
	noPassport.PassportNumber = ""
	if err := noPassport.Validate(); err != nil {
		t.Fatalf("passport number should be optional: %v", err)
	}
}

func TestChecklist(t *testing.T) {
	r := Record{Documents: map[DocumentField]string{
		FieldPassport:     "https://drive/p",
		FieldFingerprints: "N/A",
	}}
	got := Checklist(r)
	parts := strings.Split(got, " • ")
	if len(parts) != len(Fields()) {
		t.Fatalf("expected %d entries, got %d: %s", len(Fields()), len(parts), got)
	}
	if parts[0] != "✅ Passport" {
		t.Fatalf("unexpected first entry %q", parts[0])
	}
	if parts[5] != "⛔ Fingerprints — pending upload" {
		t.Fatalf("unexpected fingerprints entry %q", parts[5])
	}
}

func TestSessionValid(t *testing.T) {
	if (Session{Token: "t"}).Valid() {
		t.Fatal("token without CEU must not be valid")
	}
	if !(Session{Token: "t", CEU: "c"}).Valid() {
		t.Fatal("expected valid session")
	}
}

func TestParseField(t *testing.T) {
	if f, ok := ParseField("uploadPassport"); !ok || f != FieldPassport {
		t.Fatalf("expected passport field, got %q %v", f, ok)
	}
	if _, ok := ParseField("photoURL"); ok {
		t.Fatal("photoURL is not a document field")
	}
}
