package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const auditPoolMaxConns = 4

// NewPostgresPool opens the pool used by the audit trail. The portal only
// appends and reads back recent events, so the pool stays small.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	cfg, err := postgresConfig(url, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func postgresConfig(url, appName string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > auditPoolMaxConns {
		cfg.MaxConns = auditPoolMaxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	return cfg, nil
}
