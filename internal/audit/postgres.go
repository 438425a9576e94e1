package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS portal_events (
    id          UUID PRIMARY KEY,
    visitor_id  TEXT NOT NULL,
    kind        TEXT NOT NULL,
    ceu         TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS portal_events_ceu_idx ON portal_events (ceu, occurred_at DESC);`

// PostgresRecorder stores events in the portal_events table.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder constructs a Postgres-backed recorder.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// EnsureSchema creates the events table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create portal_events: %w", err)
	}
	return nil
}

// Record inserts one event.
func (r *PostgresRecorder) Record(ctx context.Context, ev Event) error {
	ev, err := prepare(ev)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO portal_events (id, visitor_id, kind, ceu, detail, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, ev.ID, ev.VisitorID, ev.Kind, ev.CEU, ev.Detail, ev.At)
	if err != nil {
		return fmt.Errorf("insert portal event: %w", err)
	}
	return nil
}

// Recent returns the latest events for ceu, newest first.
func (r *PostgresRecorder) Recent(ctx context.Context, ceu string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, visitor_id, kind, ceu, detail, occurred_at
        FROM portal_events
        WHERE ceu = $1
        ORDER BY occurred_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, ceu, limit)
	if err != nil {
		return nil, fmt.Errorf("query portal events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.VisitorID, &ev.Kind, &ev.CEU, &ev.Detail, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
