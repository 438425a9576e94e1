package store

import (
	"context"

	"github.com/visa-track/visa_portal/internal/casefile"
)

// Saved is what survives between requests for one visitor.
type Saved struct {
	Session    casefile.Session
	PendingCEU string
}

// Store persists per-visitor client state. Load of an unknown visitor
// returns a zero Saved and no error.
type Store interface {
	Load(ctx context.Context, visitorID string) (Saved, error)
	SaveSession(ctx context.Context, visitorID string, session casefile.Session) error
	SavePending(ctx context.Context, visitorID, ceu string) error
	ClearPending(ctx context.Context, visitorID string) error
	ClearSession(ctx context.Context, visitorID string) error
}
