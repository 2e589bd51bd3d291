// Package postgres opens the relational backend used when STORE_BACKEND=postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Schema holds only what the stores read and write.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		bundle JSONB NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		concept TEXT NOT NULL DEFAULT '',
		audience TEXT NOT NULL DEFAULT '',
		angle TEXT NOT NULL DEFAULT '',
		proof_url TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		posted_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_created ON content_items (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS attempt_history (
		id BIGSERIAL PRIMARY KEY,
		content_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		post_id TEXT NOT NULL DEFAULT '',
		post_url TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		retry_after TIMESTAMPTZ NULL,
		attempted_at TIMESTAMPTZ NOT NULL,
		posted_at TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempt_history_content ON attempt_history (content_id, id)`,
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: DATABASE_URL is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a primary key or unique index conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
