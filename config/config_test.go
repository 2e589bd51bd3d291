package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "DEFAULT_AI_PROVIDER", "POST_RETRY_MAX", "MOCK_POSTING", "DATABASE_URL", "POSTGRES_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "claude", cfg.AI.DefaultProvider)
	assert.Equal(t, "deepseek-chat", cfg.AI.DeepSeek.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.AI.DeepSeek.BaseURL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 4*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitCooldown)
	assert.False(t, cfg.MockPosting)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("POSTGRES_URL", "postgres://x")
	t.Setenv("DEFAULT_AI_PROVIDER", "GROQ")
	t.Setenv("MOCK_POSTING", "true")
	t.Setenv("POST_RETRY_BASE_DELAY", "250")
	t.Setenv("BANNED_TITLE_PHRASES", "monday blues, ,friday fatigue")
	t.Setenv("GOOGLE_BLOG_ID", "blog-1")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)
	assert.Equal(t, "groq", cfg.AI.DefaultProvider)
	assert.True(t, cfg.MockPosting)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, []string{"monday blues", "friday fatigue"}, cfg.AI.BannedTitlePhrases)
	assert.Equal(t, "blog-1", cfg.Platforms.Blogger.BlogID)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "1")
	t.Setenv("X_DUR", "2m")
	assert.Equal(t, 7, GetEnvInt("X_INT", 7))
	assert.True(t, GetEnvBool("X_BOOL", false))
	assert.Equal(t, 2*time.Minute, GetEnvDuration("X_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("X_UNSET_DUR", time.Second))
	assert.Equal(t, "fallback", GetEnv("X_UNSET", "fallback"))
}

func TestLoadEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AMPLIFY_TEST_FROM_FILE=yes\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("AMPLIFY_TEST_FROM_FILE")
	})

	LoadEnv(nil)
	assert.Equal(t, "yes", os.Getenv("AMPLIFY_TEST_FROM_FILE"))
}
