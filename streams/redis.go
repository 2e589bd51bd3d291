// Package streams opens the Redis connection shared by the content, history
// and token stores.
package streams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultURL   = "redis://localhost:6379"
	healthStream = "amplify:health"
)

// Connect dials url and checks that the server answers and supports the
// stream commands attempt history is built on.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid REDIS_URL %q: %w", url, err)
	}
	client := redis.NewClient(opts)

	if err := verifyStreamOps(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func verifyStreamOps(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: healthStream,
		MaxLen: 10,
		Values: map[string]any{"ts": time.Now().UTC().Format(time.RFC3339Nano)},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis: XADD failed: %w", err)
	}

	msgs, err := client.XRange(ctx, healthStream, id, id).Result()
	if err != nil {
		return fmt.Errorf("redis: XRANGE failed: %w", err)
	}
	if len(msgs) != 1 {
		return fmt.Errorf("redis: health entry %s not readable", id)
	}
	return nil
}
