// Package history is the append-only log of publish attempts. Retry of failed
// platforms is driven by scanning it, so records are never updated or deleted.
package history

import (
	"context"
	"time"

	"amplify-cloud/content"
)

// AttemptStatus is the durable outcome of one publish attempt.
type AttemptStatus string

const (
	StatusSuccess     AttemptStatus = "SUCCESS"
	StatusFailed      AttemptStatus = "FAILED"
	StatusRateLimited AttemptStatus = "RATE_LIMITED"
)

// StatusFor derives the stored status from an attempt outcome.
func StatusFor(success, rateLimited bool) AttemptStatus {
	switch {
	case success:
		return StatusSuccess
	case rateLimited:
		return StatusRateLimited
	default:
		return StatusFailed
	}
}

// Retryable reports whether retry-failed should pick this record up.
func (s AttemptStatus) Retryable() bool {
	return s == StatusFailed || s == StatusRateLimited
}

// Record is one attempt as persisted.
type Record struct {
	ID          string           `json:"id"`
	ContentID   string           `json:"contentId"`
	Platform    content.Platform `json:"platform"`
	Status      AttemptStatus    `json:"status"`
	PostID      string           `json:"postId,omitempty"`
	PostURL     string           `json:"postUrl,omitempty"`
	Error       string           `json:"error,omitempty"`
	RetryAfter  *time.Time       `json:"retryAfter,omitempty"`
	AttemptedAt time.Time        `json:"attemptedAt"`
	PostedAt    *time.Time       `json:"postedAt,omitempty"`
}

// Store appends and lists attempts. ListByContent returns append order.
type Store interface {
	Append(ctx context.Context, rec Record) (string, error)
	ListByContent(ctx context.Context, contentID string) ([]Record, error)
}

// Tailer is implemented by stores that can feed live attempts to watchers.
type Tailer interface {
	Tail(ctx context.Context, afterID string) ([]Record, string, error)
}

// RetryablePlatforms returns the distinct platforms with a FAILED or
// RATE_LIMITED record, in first-seen order.
func RetryablePlatforms(records []Record) []content.Platform {
	seen := make(map[content.Platform]bool)
	var out []content.Platform
	for _, rec := range records {
		if !rec.Status.Retryable() || seen[rec.Platform] {
			continue
		}
		seen[rec.Platform] = true
		out = append(out, rec.Platform)
	}
	return out
}

// PendingPlatforms is like RetryablePlatforms but only keeps platforms whose
// latest record is still FAILED or RATE_LIMITED.
func PendingPlatforms(records []Record) []content.Platform {
	latest := make(map[content.Platform]AttemptStatus)
	for _, rec := range records {
		latest[rec.Platform] = rec.Status
	}
	var out []content.Platform
	for _, p := range RetryablePlatforms(records) {
		if latest[p].Retryable() {
			out = append(out, p)
		}
	}
	return out
}
