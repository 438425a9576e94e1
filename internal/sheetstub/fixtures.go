package sheetstub

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/visa-track/visa_portal/internal/casefile"
)

type fixtureFile struct {
	Applicants []fixture `yaml:"applicants"`
}

type fixture struct {
	Username              string            `yaml:"username"`
	Password              string            `yaml:"password"`
	CEU                   string            `yaml:"ceu"`
	Name                  string            `yaml:"name"`
	LastName              string            `yaml:"lastname"`
	BirthYear             string            `yaml:"birthYear"`
	PassportNumber        string            `yaml:"passportNumber"`
	NationalID            string            `yaml:"nationalID"`
	ApplicationFormNumber string            `yaml:"applicationFormNumber"`
	Reference             string            `yaml:"reference"`
	ApplicationType       string            `yaml:"applicationType"`
	PaymentStatus         string            `yaml:"paymentStatus"`
	PhotoURL              string            `yaml:"photoURL"`
	LetterURL             string            `yaml:"letterURL"`
	Documents             map[string]string `yaml:"documents"`
}

func (f fixture) applicant() (Applicant, error) {
	docs := make(map[casefile.DocumentField]string, len(f.Documents))
	for key, link := range f.Documents {
		field, ok := casefile.ParseField(key)
		if !ok {
			return Applicant{}, fmt.Errorf("applicant %s: unknown document field %q", f.CEU, key)
		}
		docs[field] = link
	}
	return Applicant{
		Username: f.Username,
		Password: f.Password,
		Identity: casefile.PendingIdentity{
			Name:                  f.Name,
			LastName:              f.LastName,
			BirthYear:             f.BirthYear,
			PassportNumber:        f.PassportNumber,
			NationalID:            f.NationalID,
			ApplicationFormNumber: f.ApplicationFormNumber,
			Reference:             f.Reference,
			ApplicationType:       f.ApplicationType,
			CEU:                   f.CEU,
		},
		Record: casefile.Record{
			PaymentStatus: f.PaymentStatus,
			PhotoURL:      f.PhotoURL,
			LetterURL:     f.LetterURL,
			Documents:     docs,
		},
	}, nil
}

// LoadFixtures parses a YAML list of applicants into the sheet.
func (s *Sheet) LoadFixtures(data []byte) (int, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, f := range file.Applicants {
		a, err := f.applicant()
		if err != nil {
			return i, err
		}
		if err := s.Add(a); err != nil {
			return i, fmt.Errorf("add applicant %s: %w", f.CEU, err)
		}
	}
	return len(file.Applicants), nil
}

// LoadFixturesFile reads fixtures from path.
func (s *Sheet) LoadFixturesFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	return s.LoadFixtures(data)
}
