// Package sheetstub is a local stand-in for the spreadsheet web app. It
// speaks the same action-based JSON contract as the real backend and keeps
// its rows in memory.
package sheetstub

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/visa-track/visa_portal/internal/casefile"
)

var (
	// ErrDuplicateCEU is returned when two applicants share a CEU number.
	ErrDuplicateCEU = errors.New("ceu already registered")
	// ErrUnknownSession is returned for tokens the sheet never issued.
	ErrUnknownSession = errors.New("session not found")
)

// Applicant is the seed data for one sheet row.
type Applicant struct {
	Username string
	Password string
	Identity casefile.PendingIdentity
	Record   casefile.Record
}

type row struct {
	username     string
	passwordHash []byte
	identity     casefile.PendingIdentity
	record       casefile.Record
}

// Sheet holds rows keyed by CEU and the session tokens it handed out.
type Sheet struct {
	mu     sync.Mutex
	rows   map[string]*row
	tokens map[string]string
	nextID int
	logger *slog.Logger
}

// New returns an empty sheet.
func New(logger *slog.Logger) *Sheet {
	return &Sheet{rows: make(map[string]*row), tokens: make(map[string]string), nextID: 2, logger: logger}
}

// Add stores an applicant with a bcrypt-hashed password. The row number is
// assigned the way a sheet would, starting below the header.
func (s *Sheet) Add(a Applicant) error {
	ceu := strings.TrimSpace(a.Identity.CEU)
	if ceu == "" {
		return errors.New("applicant requires a ceu")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[ceu]; ok {
		return ErrDuplicateCEU
	}
	id := a.Identity
	id.CEU = ceu
	id.RowID = strconv.Itoa(s.nextID)
	s.nextID++

	rec := a.Record.Clone()
	if rec.CEUNumber == "" {
		rec.CEUNumber = ceu
	}
	if rec.Name == "" {
		rec.Name = id.Name
	}
	if rec.LastName == "" {
		rec.LastName = id.LastName
	}
	if rec.Documents == nil {
		rec.Documents = make(map[casefile.DocumentField]string)
	}
	for _, f := range casefile.Fields() {
		if _, ok := rec.Documents[f]; !ok {
			rec.Documents[f] = casefile.EmptyUpload
		}
	}
	s.rows[ceu] = &row{username: a.Username, passwordHash: hash, identity: id, record: rec}
	return nil
}

// verifyCredentials checks step one and returns the pending identity.
func (s *Sheet) verifyCredentials(username, password, ceu string) (casefile.PendingIdentity, bool) {
	s.mu.Lock()
	r, ok := s.rows[strings.TrimSpace(ceu)]
	s.mu.Unlock()
	if !ok || !strings.EqualFold(r.username, strings.TrimSpace(username)) {
		return casefile.PendingIdentity{}, false
	}
	if bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) != nil {
		return casefile.PendingIdentity{}, false
	}
	return r.identity, true
}

// verifyIdentity checks step two and opens a session.
func (s *Sheet) verifyIdentity(in casefile.PendingIdentity) (string, casefile.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[in.CEU]
	if !ok || !identityMatches(r.identity, in) {
		return "", casefile.Record{}, false
	}
	token := uuid.NewString()
	s.tokens[token] = in.CEU
	return token, r.record.Clone(), true
}

func identityMatches(want, got casefile.PendingIdentity) bool {
	same := func(a, b string) bool {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if got.RowID != "" && got.RowID != want.RowID {
		return false
	}
	if want.PassportNumber != "" && !same(want.PassportNumber, got.PassportNumber) {
		return false
	}
	return same(want.Name, got.Name) &&
		same(want.LastName, got.LastName) &&
		same(want.BirthYear, got.BirthYear) &&
		same(want.NationalID, got.NationalID) &&
		same(want.ApplicationFormNumber, got.ApplicationFormNumber) &&
		same(want.Reference, got.Reference) &&
		same(want.ApplicationType, got.ApplicationType)
}

// record returns the row behind token.
func (s *Sheet) record(token string) (casefile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ceu, ok := s.tokens[token]
	if !ok {
		return casefile.Record{}, ErrUnknownSession
	}
	return s.rows[ceu].record.Clone(), nil
}

// setDocument writes link into field for the session's row.
func (s *Sheet) setDocument(token string, field casefile.DocumentField, link string) (casefile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ceu, ok := s.tokens[token]
	if !ok {
		return casefile.Record{}, ErrUnknownSession
	}
	r := s.rows[ceu]
	r.record.Documents[field] = link
	return r.record.Clone(), nil
}

// revoke drops a session token. Unknown tokens are ignored.
func (s *Sheet) revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// SetPaymentStatus records a payment outcome and the letter link on a row.
func (s *Sheet) SetPaymentStatus(ceu, status, letterURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[ceu]
	if !ok {
		return false
	}
	r.record.PaymentStatus = status
	r.record.LetterURL = letterURL
	return true
}

// Sessions returns the number of open sessions.
func (s *Sheet) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
