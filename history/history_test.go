package history

import (
	"context"
	"testing"
	"time"

	"amplify-cloud/content"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusFor(true, false))
	assert.Equal(t, StatusRateLimited, StatusFor(false, true))
	assert.Equal(t, StatusFailed, StatusFor(false, false))
	assert.False(t, StatusSuccess.Retryable())
	assert.True(t, StatusRateLimited.Retryable())
}

func TestRetryablePlatformsDistinctFirstSeen(t *testing.T) {
	records := []Record{
		{Platform: content.Twitter, Status: StatusFailed},
		{Platform: content.Facebook, Status: StatusSuccess},
		{Platform: content.LinkedIn, Status: StatusRateLimited},
		{Platform: content.Twitter, Status: StatusFailed},
	}
	assert.Equal(t, []content.Platform{content.Twitter, content.LinkedIn}, RetryablePlatforms(records))
	assert.Empty(t, RetryablePlatforms(nil))
}

func TestPendingPlatformsSkipsRecovered(t *testing.T) {
	records := []Record{
		{Platform: content.Twitter, Status: StatusFailed},
		{Platform: content.LinkedIn, Status: StatusRateLimited},
		{Platform: content.Twitter, Status: StatusSuccess},
	}
	assert.Equal(t, []content.Platform{content.LinkedIn}, PendingPlatforms(records))
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestStoresAppendInOrder(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return newRedisStore(t) },
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
			retryAt := now.Add(15 * time.Minute)

			_, err := store.Append(ctx, Record{ContentID: "c1", Platform: content.Twitter, Status: StatusFailed, Error: "TWITTER is not enabled (missing credentials)", AttemptedAt: now})
			require.NoError(t, err)
			_, err = store.Append(ctx, Record{ContentID: "c2", Platform: content.Twitter, Status: StatusSuccess, AttemptedAt: now})
			require.NoError(t, err)
			id, err := store.Append(ctx, Record{ContentID: "c1", Platform: content.Facebook, Status: StatusRateLimited, RetryAfter: &retryAt, AttemptedAt: now})
			require.NoError(t, err)
			assert.NotEmpty(t, id)

			got, err := store.ListByContent(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, content.Twitter, got[0].Platform)
			assert.Equal(t, "TWITTER is not enabled (missing credentials)", got[0].Error)
			assert.Equal(t, content.Facebook, got[1].Platform)
			assert.Equal(t, StatusRateLimited, got[1].Status)
			require.NotNil(t, got[1].RetryAfter)
			assert.True(t, retryAt.Equal(*got[1].RetryAfter))
			assert.Equal(t, id, got[1].ID)

			none, err := store.ListByContent(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestRedisTail(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	_, err := store.Append(ctx, Record{ContentID: "c1", Platform: content.Twitter, Status: StatusSuccess, PostID: "1"})
	require.NoError(t, err)
	_, err = store.Append(ctx, Record{ContentID: "c2", Platform: content.Tumblr, Status: StatusFailed})
	require.NoError(t, err)

	records, nextID, err := store.Tail(ctx, "0")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].ContentID)
	assert.Equal(t, "c2", records[1].ContentID)
	assert.Equal(t, records[1].ID, nextID)
}

func TestRedisAppendRequiresContentID(t *testing.T) {
	store := newRedisStore(t)
	_, err := store.Append(context.Background(), Record{Platform: content.Twitter})
	require.Error(t, err)
}

func TestPostgresAppendAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO attempt_history").
		WithArgs("c1", "TWITTER", "SUCCESS", "42", "https://twitter.com/i/web/status/42", "", sqlmock.AnyArg(), now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := store.Append(context.Background(), Record{
		ContentID: "c1", Platform: content.Twitter, Status: StatusSuccess,
		PostID: "42", PostURL: "https://twitter.com/i/web/status/42", AttemptedAt: now, PostedAt: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	cols := []string{"id", "content_id", "platform", "status", "post_id", "post_url", "error", "retry_after", "attempted_at", "posted_at"}
	mock.ExpectQuery("FROM attempt_history WHERE content_id = \\$1 ORDER BY id ASC").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, "c1", "TWITTER", "SUCCESS", "42", "u", "", nil, now, now).
			AddRow(8, "c1", "FACEBOOK", "RATE_LIMITED", "", "", "rate limited", now.Add(time.Minute), now, nil))

	recs, err := store.ListByContent(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "7", recs[0].ID)
	assert.NotNil(t, recs[0].PostedAt)
	assert.Nil(t, recs[0].RetryAfter)
	assert.Equal(t, StatusRateLimited, recs[1].Status)
	assert.NotNil(t, recs[1].RetryAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}
