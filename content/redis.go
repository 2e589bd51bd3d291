package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	contentKeyFormat = "content:%s"
	contentIndexKey  = "content:index"
)

// RedisStore keeps one hash per content item plus a creation-time index.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func contentKey(id string) string {
	return fmt.Sprintf(contentKeyFormat, id)
}

func (s *RedisStore) Create(ctx context.Context, c *Content) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("content id required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("content: marshal %s: %w", c.ID, err)
	}

	key := contentKey(c.ID)
	created, err := s.client.HSetNX(ctx, key, "payload", payload).Result()
	if err != nil {
		return fmt.Errorf("content: create %s: %w", c.ID, err)
	}
	if !created {
		return fmt.Errorf("content %s already exists", c.ID)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "status", string(c.Status), "posted_at", formatTime(c.PostedAt))
		pipe.ZAdd(ctx, contentIndexKey, redis.Z{Score: float64(c.CreatedAt.UnixNano()), Member: c.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("content: index %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Content, error) {
	fields, err := s.client.HGetAll(ctx, contentKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("content: get %s: %w", id, err)
	}
	payload, ok := fields["payload"]
	if !ok {
		return nil, notFound("content.get", id)
	}

	var c Content
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("content: decode %s: %w", id, err)
	}
	c.Status = Status(fields["status"])
	c.PostedAt = parseTime(fields["posted_at"])
	return &c, nil
}

// UpdateStatus overwrites status and posted_at in one MULTI block.
func (s *RedisStore) UpdateStatus(ctx context.Context, id string, status Status, postedAt *time.Time) error {
	key := contentKey(id)
	exists, err := s.client.HExists(ctx, key, "payload").Result()
	if err != nil {
		return fmt.Errorf("content: update %s: %w", id, err)
	}
	if !exists {
		return notFound("content.update_status", id)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "status", string(status), "posted_at", formatTime(postedAt))
		return nil
	})
	if err != nil {
		return fmt.Errorf("content: update %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ListRecent(ctx context.Context, limit int) ([]*Content, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.client.ZRevRange(ctx, contentIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("content: list recent: %w", err)
	}

	out := make([]*Content, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
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
