package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/visa-track/visa_portal/internal/casefile"
)

type memoryEntry struct {
	saved     Saved
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryStore builds an in-process store for development and tests.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *memoryStore) Load(_ context.Context, visitorID string) (Saved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[visitorID]
	if !ok {
		return Saved{}, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, visitorID)
		return Saved{}, nil
	}
	return e.saved, nil
}

func (m *memoryStore) SaveSession(_ context.Context, visitorID string, session casefile.Session) error {
	if !session.Valid() {
		return errors.New("refusing to store incomplete session")
	}
	m.update(visitorID, func(s *Saved) { s.Session = session })
	return nil
}

func (m *memoryStore) SavePending(_ context.Context, visitorID, ceu string) error {
	m.update(visitorID, func(s *Saved) { s.PendingCEU = ceu })
	return nil
}

func (m *memoryStore) ClearPending(_ context.Context, visitorID string) error {
	m.update(visitorID, func(s *Saved) { s.PendingCEU = "" })
	return nil
}

func (m *memoryStore) ClearSession(_ context.Context, visitorID string) error {
	m.update(visitorID, func(s *Saved) { s.Session = casefile.Session{} })
	return nil
}

func (m *memoryStore) update(visitorID string, fn func(*Saved)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[visitorID]
	fn(&e.saved)
	if m.ttl > 0 {
		e.expiresAt = time.Now().Add(m.ttl)
	}
	m.entries[visitorID] = e
}
