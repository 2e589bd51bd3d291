package content

import (
	"context"
	"testing"
	"time"

	"amplify-cloud/faults"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() Bundle {
	return Bundle{
		Title:    "Fractions Finally Clicked",
		LinkedIn: "L",
		Reddit:   "R",
		Facebook: "F",
		Twitter:  "T",
	}
}

func TestBundleValidate(t *testing.T) {
	b := sampleBundle()
	require.NoError(t, b.Validate())

	b.Twitter = "   "
	b.Reddit = ""
	err := b.Validate()
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindInvalidShape))
	assert.Contains(t, err.Error(), "redditPost")
	assert.Contains(t, err.Error(), "twitterPost")
}

func TestTextForFallsBackToLinkedIn(t *testing.T) {
	b := sampleBundle()
	assert.Equal(t, "T", b.TextFor(Twitter))
	assert.Equal(t, "F", b.TextFor(Facebook))
	assert.Equal(t, "L", b.TextFor(Blogger))
	assert.Equal(t, "L", b.TextFor(Tumblr))
	assert.Equal(t, "L", b.TextFor(Platform("MASTODON")))

	b.Blogger = "# Title\nbody"
	assert.Equal(t, "# Title\nbody", b.TextFor(Blogger))
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" twitter ")
	require.NoError(t, err)
	assert.Equal(t, Twitter, p)

	_, err = ParsePlatform("myspace")
	require.Error(t, err)
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return newRedisStore(t) },
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			first := &Content{ID: "c1", Bundle: sampleBundle(), Status: StatusDraft, CreatedAt: base}
			second := &Content{ID: "c2", Bundle: sampleBundle(), Status: StatusDraft, CreatedAt: base.Add(time.Minute)}
			require.NoError(t, store.Create(ctx, first))
			require.NoError(t, store.Create(ctx, second))
			require.Error(t, store.Create(ctx, first))

			got, err := store.Get(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, StatusDraft, got.Status)
			assert.Nil(t, got.PostedAt)
			assert.Equal(t, "T", got.Bundle.Twitter)

			postedAt := base.Add(time.Hour)
			require.NoError(t, store.UpdateStatus(ctx, "c1", StatusPosted, &postedAt))
			got, err = store.Get(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, StatusPosted, got.Status)
			require.NotNil(t, got.PostedAt)
			assert.True(t, postedAt.Equal(*got.PostedAt))

			require.NoError(t, store.UpdateStatus(ctx, "c1", StatusFailed, nil))
			got, err = store.Get(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Nil(t, got.PostedAt)

			_, err = store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)
			assert.True(t, faults.Is(err, faults.KindNotFound))
			require.ErrorIs(t, store.UpdateStatus(ctx, "missing", StatusPosted, nil), ErrNotFound)

			recent, err := store.ListRecent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.Equal(t, "c2", recent[0].ID)
		})
	}
}
