package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amplify-cloud/postgres"
)

// PostgresStore keeps content in the content_items table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectContent = `SELECT id, bundle, topic, concept, audience, angle, proof_url, provider, status, posted_at, created_at FROM content_items`

func (s *PostgresStore) Create(ctx context.Context, c *Content) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("content id required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	bundle, err := json.Marshal(c.Bundle)
	if err != nil {
		return fmt.Errorf("content: marshal bundle %s: %w", c.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO content_items
		(id, bundle, topic, concept, audience, angle, proof_url, provider, status, posted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, bundle, c.Topic, c.Concept, c.Audience, c.Angle, c.ProofURL, c.Provider,
		string(c.Status), nullTime(c.PostedAt), c.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("content %s already exists", c.ID)
		}
		return fmt.Errorf("content: insert %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Content, error) {
	row := s.db.QueryRowContext(ctx, selectContent+` WHERE id = $1`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("content.get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("content: get %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status, postedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET status = $2, posted_at = $3 WHERE id = $1`,
		id, string(status), nullTime(postedAt))
	if err != nil {
		return fmt.Errorf("content: update %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("content: update %s: %w", id, err)
	}
	if n == 0 {
		return notFound("content.update_status", id)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Content, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectContent+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("content: list recent: %w", err)
	}
	defer rows.Close()

	var out []*Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("content: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(row scanner) (*Content, error) {
	var (
		c        Content
		bundle   []byte
		status   string
		postedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &bundle, &c.Topic, &c.Concept, &c.Audience, &c.Angle,
		&c.ProofURL, &c.Provider, &status, &postedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bundle, &c.Bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	c.Status = Status(status)
	if postedAt.Valid {
		t := postedAt.Time
		c.PostedAt = &t
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
