package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"amplify-cloud/content"
)

// PostgresStore keeps attempts in the attempt_history table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) (string, error) {
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO attempt_history
		(content_id, platform, status, post_id, post_url, error, retry_after, attempted_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		rec.ContentID, string(rec.Platform), string(rec.Status), rec.PostID, rec.PostURL, rec.Error,
		nullTime(rec.RetryAfter), rec.AttemptedAt, nullTime(rec.PostedAt)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("history: append %s/%s: %w", rec.ContentID, rec.Platform, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *PostgresStore) ListByContent(ctx context.Context, contentID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content_id, platform, status, post_id, post_url, error,
		retry_after, attempted_at, posted_at FROM attempt_history WHERE content_id = $1 ORDER BY id ASC`, contentID)
	if err != nil {
		return nil, fmt.Errorf("history: list %s: %w", contentID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			id         int64
			platform   string
			status     string
			retryAfter sql.NullTime
			postedAt   sql.NullTime
		)
		if err := rows.Scan(&id, &rec.ContentID, &platform, &status, &rec.PostID, &rec.PostURL,
			&rec.Error, &retryAfter, &rec.AttemptedAt, &postedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		rec.Platform = content.Platform(platform)
		rec.Status = AttemptStatus(status)
		rec.RetryAfter = timePtr(retryAfter)
		rec.PostedAt = timePtr(postedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
