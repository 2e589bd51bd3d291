package platforms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/faults"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testOptions(t *testing.T, srv *httptest.Server) Options {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return Options{
		HTTPClient:        srv.Client(),
		Retry:             fastRetry(),
		Timeout:           5 * time.Second,
		RateLimitCooldown: 15 * time.Minute,
		Logger:            logger,
		Now:               func() time.Time { return fixedNow },
	}
}

// flaky fails the first n requests to path with status, then calls ok.
func flaky(n int32, status int, path string, ok http.HandlerFunc) (http.Handler, *int32) {
	var calls int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) <= n {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"try again"}}`))
			return
		}
		ok(w, r)
	}), &calls
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestTwitterPost(t *testing.T) {
	var body map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		writeJSON(w, map[string]any{"data": map[string]string{"id": "1800", "text": body["text"]}})
	}))
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "tw-token", BaseURL: srv.URL}, testOptions(t, srv))
	assert.True(t, tw.Enabled())
	assert.Equal(t, content.Twitter, tw.Platform())

	res, err := tw.Post(context.Background(), "hello world")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, content.Twitter, res.Platform)
	assert.Equal(t, "1800", res.PostID)
	assert.Equal(t, "https://twitter.com/i/web/status/1800", res.PostURL)
	assert.Equal(t, "hello world", body["text"])
	assert.Equal(t, "Bearer tw-token", auth)
}

func TestTwitterRetriesTransientFailures(t *testing.T) {
	h, calls := flaky(2, http.StatusServiceUnavailable, "/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]string{"id": "42"}})
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "t", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tw.Post(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "42", res.PostID)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestTwitterRateLimitIsAResult(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("x-rate-limit-reset", "1740834000")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests"}`))
	}))
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "t", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tw.Post(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.RateLimited)
	require.NotNil(t, res.RetryAfter)
	assert.Equal(t, time.Unix(1740834000, 0).UTC(), *res.RetryAfter)
	assert.Contains(t, res.Error, "Too Many Requests")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTwitterUnauthorizedIsNotRetried(t *testing.T) {
	h, calls := flaky(10, http.StatusUnauthorized, "/2/tweets", nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "t", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tw.Post(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindConfiguration))
	assert.False(t, res.Success)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTwitterGivesUpAfterBudget(t *testing.T) {
	h, calls := flaky(100, http.StatusInternalServerError, "/2/tweets", nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "t", BaseURL: srv.URL}, testOptions(t, srv))
	_, err := tw.Post(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindTransient))
	assert.EqualValues(t, 4, atomic.LoadInt32(calls))
}

func TestTwitterTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/me" && r.Header.Get("Authorization") == "Bearer good" {
			writeJSON(w, map[string]any{"data": map[string]string{"username": "amplify"}})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	good := NewTwitter(config.TwitterConfig{AccessToken: "good", BaseURL: srv.URL}, testOptions(t, srv))
	assert.True(t, good.TestConnection(context.Background()))

	bad := NewTwitter(config.TwitterConfig{AccessToken: "bad", BaseURL: srv.URL}, testOptions(t, srv))
	assert.False(t, bad.TestConnection(context.Background()))

	disabled := NewTwitter(config.TwitterConfig{BaseURL: srv.URL}, testOptions(t, srv))
	assert.False(t, disabled.Enabled())
	assert.False(t, disabled.TestConnection(context.Background()))
}

func TestFacebookPost(t *testing.T) {
	var message string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-9/feed":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			message = in["message"]
			writeJSON(w, map[string]string{"id": "page-9_777"})
		case "/me":
			writeJSON(w, map[string]string{"id": "page-9", "name": "Amplify"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fb := NewFacebook(config.FacebookConfig{PageAccessToken: "p", PageID: "page-9", BaseURL: srv.URL}, testOptions(t, srv))
	assert.True(t, fb.Enabled())
	res, err := fb.Post(context.Background(), "facebook copy")
	require.NoError(t, err)
	assert.Equal(t, "page-9_777", res.PostID)
	assert.Equal(t, "https://facebook.com/page-9_777", res.PostURL)
	assert.Equal(t, "facebook copy", message)
	assert.True(t, fb.TestConnection(context.Background()))

	assert.False(t, NewFacebook(config.FacebookConfig{PageAccessToken: "p"}, testOptions(t, srv)).Enabled())
}

func TestFacebookMissingIDIsNotReposted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]string{})
	}))
	defer srv.Close()

	fb := NewFacebook(config.FacebookConfig{PageAccessToken: "p", PageID: "page", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := fb.Post(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.PostID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTwitterAcceptedPostIsNeverRepublished(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"2xx without id":  {http.StatusOK, `{"data":{}}`},
		"malformed 201":   {http.StatusCreated, `<html>ok</html>`},
		"empty 201 reply": {http.StatusCreated, ``},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			tw := NewTwitter(config.TwitterConfig{AccessToken: "tok", BaseURL: srv.URL}, testOptions(t, srv))
			res, err := tw.Post(context.Background(), "x")
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Empty(t, res.PostID)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		})
	}
}

func TestTwitterRejectedPostIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"duplicate content"}`)
	}))
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{AccessToken: "tok", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tw.Post(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, err.Error(), "duplicate content")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestLinkedInPost(t *testing.T) {
	var got ugcPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("X-Restli-Id", "urn:li:share:123")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	li := NewLinkedIn(config.LinkedInConfig{AccessToken: "a", PersonURN: "abc", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := li.Post(context.Background(), "linkedin copy")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:123", res.PostID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:share:123", res.PostURL)
	assert.Equal(t, "urn:li:person:abc", got.Author)
	assert.Equal(t, "PUBLISHED", got.LifecycleState)
	assert.Equal(t, "PUBLIC", got.Visibility["com.linkedin.ugc.MemberNetworkVisibility"])
}

func TestLinkedInKeepsFullURN(t *testing.T) {
	li := NewLinkedIn(config.LinkedInConfig{AccessToken: "a", PersonURN: "urn:li:organization:9"}, Options{})
	assert.Equal(t, "urn:li:organization:9", li.author())
}

func TestTumblrPost(t *testing.T) {
	var in struct {
		Content []npfBlock `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/blog/teachblog.tumblr.com/posts", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"meta":{"status":201,"msg":"Created"},"response":{"id":7001,"id_string":"7001"}}`))
	}))
	defer srv.Close()

	tb := NewTumblr(config.TumblrConfig{AccessToken: "a", BlogIdentifier: "teachblog.tumblr.com", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tb.Post(context.Background(), "first para\n\nsecond para")
	require.NoError(t, err)
	assert.Equal(t, "7001", res.PostID)
	assert.Equal(t, "https://teachblog.tumblr.com/post/7001", res.PostURL)
	require.Len(t, in.Content, 2)
	assert.Equal(t, "second para", in.Content[1].Text)
}

func TestTumblrNumericID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"id":12345678901234567}}`))
	}))
	defer srv.Close()

	tb := NewTumblr(config.TumblrConfig{AccessToken: "a", BlogIdentifier: "b", BaseURL: srv.URL}, testOptions(t, srv))
	res, err := tb.Post(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567", res.PostID)
}
