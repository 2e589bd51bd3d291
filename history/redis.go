package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"amplify-cloud/content"
	"github.com/redis/go-redis/v9"
)

const (
	streamKeyFormat   = "content:%s:attempts"
	globalStreamKey   = "attempts:all"
	defaultBlock      = 5 * time.Second
	defaultBatchCount = 50
)

// RedisStore writes each attempt to a per-content stream and a global stream.
// The per-content stream serves history scans; the global one feeds watchers.
type RedisStore struct {
	client *redis.Client
	block  time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, block: defaultBlock}
}

// StreamKey returns the attempts stream for one content item.
func StreamKey(contentID string) string {
	return fmt.Sprintf(streamKeyFormat, contentID)
}

func (s *RedisStore) Append(ctx context.Context, rec Record) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("history store not configured")
	}
	if strings.TrimSpace(rec.ContentID) == "" {
		return "", fmt.Errorf("history: content id required")
	}
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now().UTC()
	}
	values := toValues(rec)

	var perContent *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		perContent = pipe.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey(rec.ContentID), Values: values})
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: globalStreamKey, Values: values})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("history: append %s/%s: %w", rec.ContentID, rec.Platform, err)
	}
	return perContent.Val(), nil
}

func (s *RedisStore) ListByContent(ctx context.Context, contentID string) ([]Record, error) {
	msgs, err := s.client.XRange(ctx, StreamKey(contentID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("history: list %s: %w", contentID, err)
	}
	out := make([]Record, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, fromMessage(msg))
	}
	return out, nil
}

// Tail blocks for attempts after afterID on the global stream and returns them
// with the latest ID observed. An empty afterID means "only new attempts".
func (s *RedisStore) Tail(ctx context.Context, afterID string) ([]Record, string, error) {
	if strings.TrimSpace(afterID) == "" {
		afterID = "$"
	}

	res, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{globalStreamKey, afterID},
		Count:   defaultBatchCount,
		Block:   s.block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, afterID, nil
		}
		return nil, afterID, err
	}

	records := make([]Record, 0)
	nextID := afterID
	for _, stream := range res {
		for _, msg := range stream.Messages {
			records = append(records, fromMessage(msg))
			nextID = msg.ID
		}
	}
	return records, nextID, nil
}

func toValues(rec Record) map[string]any {
	return map[string]any{
		"content_id":   rec.ContentID,
		"platform":     string(rec.Platform),
		"status":       string(rec.Status),
		"post_id":      rec.PostID,
		"post_url":     rec.PostURL,
		"error":        rec.Error,
		"retry_after":  formatTime(rec.RetryAfter),
		"attempted_at": rec.AttemptedAt.UTC().Format(time.RFC3339Nano),
		"posted_at":    formatTime(rec.PostedAt),
	}
}

func fromMessage(msg redis.XMessage) Record {
	v := msg.Values
	rec := Record{
		ID:         msg.ID,
		ContentID:  stringVal(v["content_id"]),
		Platform:   content.Platform(stringVal(v["platform"])),
		Status:     AttemptStatus(stringVal(v["status"])),
		PostID:     stringVal(v["post_id"]),
		PostURL:    stringVal(v["post_url"]),
		Error:      stringVal(v["error"]),
		RetryAfter: parseTime(stringVal(v["retry_after"])),
		PostedAt:   parseTime(stringVal(v["posted_at"])),
	}
	if at := parseTime(stringVal(v["attempted_at"])); at != nil {
		rec.AttemptedAt = *at
	}
	return rec
}

func stringVal(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
