// Package store persists precomputed moon calendar data and analytics counters in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"astro-service/config"

	_ "github.com/lib/pq"
)

// Store wraps a Postgres connection pool
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS moon_void_periods (
		moon_sign TEXT NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		next_sign TEXT NOT NULL,
		last_aspect_planet TEXT,
		last_aspect_type TEXT,
		last_aspect_at TIMESTAMPTZ,
		duration_minutes INTEGER NOT NULL,
		PRIMARY KEY (moon_sign, end_at)
	)`,
	`CREATE INDEX IF NOT EXISTS moon_void_periods_end_at ON moon_void_periods (end_at)`,
	`CREATE TABLE IF NOT EXISTS moon_void_coverage (
		range_start TIMESTAMPTZ NOT NULL,
		range_end TIMESTAMPTZ NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (range_start, range_end)
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_counters (
		name TEXT NOT NULL,
		day DATE NOT NULL,
		count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (name, day)
	)`,
}

// EnsureSchema creates the tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
