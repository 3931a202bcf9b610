package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool    *pgxpool.Pool
	once    sync.Once
	initErr error
)

// InitDB initializes the connection pool from dbURL, falling back to the
// DATABASE_URL environment variable. Only the first call connects; later
// calls return its error.
func InitDB(ctx context.Context, dbURL string) error {
	once.Do(func() {
		pool, initErr = connect(ctx, dbURL)
	})
	return initErr
}

func connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := ensureSchema(ctx, p); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id        TEXT PRIMARY KEY,
	simulation_id TEXT NOT NULL,
	scenario      TEXT NOT NULL,
	summary_json  JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the results table when missing.
func EnsureSchema(ctx context.Context) error {
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	return ensureSchema(ctx, pool)
}

func ensureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
