package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/visa-track/visa_portal/internal/casefile"
)

const (
	visitorPrefix   = "portal:visitor:"
	fieldToken      = "token"
	fieldCEU        = "ceu"
	fieldPendingCEU = "pending_ceu"
)

// RedisStore keeps each visitor's state in a Redis hash with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(visitorID string) string {
	return visitorPrefix + visitorID
}

// Load reads the visitor hash.
func (s *RedisStore) Load(ctx context.Context, visitorID string) (Saved, error) {
	vals, err := s.client.HGetAll(ctx, s.key(visitorID)).Result()
	if err != nil {
		return Saved{}, fmt.Errorf("load visitor state: %w", err)
	}
	return Saved{
		Session:    casefile.Session{Token: vals[fieldToken], CEU: vals[fieldCEU]},
		PendingCEU: vals[fieldPendingCEU],
	}, nil
}

// SaveSession stores token and CEU together.
func (s *RedisStore) SaveSession(ctx context.Context, visitorID string, session casefile.Session) error {
	if !session.Valid() {
		return fmt.Errorf("refusing to store incomplete session")
	}
	return s.write(ctx, visitorID, func(p redis.Pipeliner, key string) {
		p.HSet(ctx, key, fieldToken, session.Token, fieldCEU, session.CEU)
	})
}

// SavePending stores the CEU awaiting step two.
func (s *RedisStore) SavePending(ctx context.Context, visitorID, ceu string) error {
	return s.write(ctx, visitorID, func(p redis.Pipeliner, key string) {
		p.HSet(ctx, key, fieldPendingCEU, ceu)
	})
}

// ClearPending removes the pending CEU.
func (s *RedisStore) ClearPending(ctx context.Context, visitorID string) error {
	if err := s.client.HDel(ctx, s.key(visitorID), fieldPendingCEU).Err(); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

// ClearSession removes token and CEU.
func (s *RedisStore) ClearSession(ctx context.Context, visitorID string) error {
	if err := s.client.HDel(ctx, s.key(visitorID), fieldToken, fieldCEU).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) write(ctx context.Context, visitorID string, fn func(redis.Pipeliner, string)) error {
	key := s.key(visitorID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		fn(p, key)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save visitor state: %w", err)
	}
	return nil
}
