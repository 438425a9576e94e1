// Package audit keeps an append-only log of sign-in and session events.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned for events without a kind.
var ErrInvalidEvent = errors.New("audit event requires a kind")

// Event is one recorded session event.
type Event struct {
	ID        uuid.UUID
	VisitorID string
	Kind      string
	CEU       string
	Detail    string
	At        time.Time
}

// Recorder appends events and lists the latest ones for a case.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
	Recent(ctx context.Context, ceu string, limit int) ([]Event, error)
}

// prepare fills the ID and timestamp when the caller left them empty.
func prepare(ev Event) (Event, error) {
	if ev.Kind == "" {
		return Event{}, ErrInvalidEvent
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev, nil
}
