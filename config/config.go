// Package config reads service settings from the environment.
package config

import (
	"strings"
	"time"
)

// Config is everything main needs to wire the service.
type Config struct {
	Port     string
	LogLevel string

	RedisURL     string
	StoreBackend string // redis | postgres | memory
	DatabaseURL  string

	AI        AIConfig
	Platforms PlatformsConfig
	Retry     RetryConfig

	MockPosting        bool
	MockPostDelay      time.Duration
	RateLimitCooldown  time.Duration
	RetrySkipRecovered bool
}

type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AIConfig struct {
	DefaultProvider string
	Claude          ProviderConfig
	Groq            ProviderConfig
	DeepSeek        ProviderConfig
	Timeout         time.Duration
	// RequestsPerMinute caps outbound calls per provider.
	RequestsPerMinute  int
	BannedTitlePhrases []string
}

type PlatformsConfig struct {
	Twitter  TwitterConfig
	Facebook FacebookConfig
	LinkedIn LinkedInConfig
	Tumblr   TumblrConfig
	Blogger  BloggerConfig
	Timeout  time.Duration
}

type TwitterConfig struct {
	AccessToken string
	BaseURL     string
}

type FacebookConfig struct {
	PageAccessToken string
	PageID          string
	BaseURL         string
}

type LinkedInConfig struct {
	AccessToken string
	PersonURN   string
	BaseURL     string
}

type TumblrConfig struct {
	AccessToken    string
	BlogIdentifier string
	BaseURL        string
}

type BloggerConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	BlogID       string
	BaseURL      string
	TokenURL     string
}

// RetryConfig is the adapter-local retry budget for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Load reads the environment. Call LoadEnv first to pick up .env files.
func Load() Config {
	cfg := Config{
		Port:         GetEnv("PORT", "8080"),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		RedisURL:     GetEnv("REDIS_URL", "redis://localhost:6379"),
		StoreBackend: strings.ToLower(GetEnv("STORE_BACKEND", "redis")),
		DatabaseURL:  PickEnv("DATABASE_URL", "POSTGRES_URL"),

		MockPosting:        GetEnvBool("MOCK_POSTING", false),
		MockPostDelay:      GetEnvDuration("MOCK_POST_DELAY", 500*time.Millisecond),
		RateLimitCooldown:  GetEnvDuration("RATE_LIMIT_COOLDOWN", 15*time.Minute),
		RetrySkipRecovered: GetEnvBool("RETRY_SKIP_RECOVERED", false),
	}

	cfg.AI = AIConfig{
		DefaultProvider: strings.ToLower(GetEnv("DEFAULT_AI_PROVIDER", "claude")),
		Claude: ProviderConfig{
			APIKey:  GetEnv("ANTHROPIC_API_KEY", ""),
			Model:   GetEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			BaseURL: GetEnv("ANTHROPIC_BASE_URL", ""),
		},
		Groq: ProviderConfig{
			APIKey:  GetEnv("GROQ_API_KEY", ""),
			Model:   GetEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			BaseURL: GetEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		},
		DeepSeek: ProviderConfig{
			APIKey:  GetEnv("DEEPSEEK_API_KEY", ""),
			Model:   GetEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			BaseURL: GetEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		},
		Timeout:            GetEnvDuration("GENERATE_TIMEOUT", 90*time.Second),
		RequestsPerMinute:  GetEnvInt("AI_REQUESTS_PER_MINUTE", 30),
		BannedTitlePhrases: ParseList(GetEnv("BANNED_TITLE_PHRASES", "")),
	}

	p := &cfg.Platforms
	p.Twitter.AccessToken = GetEnv("TWITTER_ACCESS_TOKEN", "")
	p.Twitter.BaseURL = GetEnv("TWITTER_API_BASE_URL", "https://api.twitter.com")
	p.Facebook.PageAccessToken = GetEnv("FACEBOOK_PAGE_ACCESS_TOKEN", "")
	p.Facebook.PageID = GetEnv("FACEBOOK_PAGE_ID", "")
	p.Facebook.BaseURL = GetEnv("FACEBOOK_GRAPH_BASE_URL", "https://graph.facebook.com/v18.0")
	p.LinkedIn.AccessToken = GetEnv("LINKEDIN_ACCESS_TOKEN", "")
	p.LinkedIn.PersonURN = GetEnv("LINKEDIN_PERSON_URN", "")
	p.LinkedIn.BaseURL = GetEnv("LINKEDIN_API_BASE_URL", "https://api.linkedin.com")
	p.Tumblr.AccessToken = GetEnv("TUMBLR_ACCESS_TOKEN", "")
	p.Tumblr.BlogIdentifier = GetEnv("TUMBLR_BLOG_IDENTIFIER", "")
	p.Tumblr.BaseURL = GetEnv("TUMBLR_API_BASE_URL", "https://api.tumblr.com")
	p.Blogger.ClientID = GetEnv("GOOGLE_CLIENT_ID", "")
	p.Blogger.ClientSecret = GetEnv("GOOGLE_CLIENT_SECRET", "")
	p.Blogger.RefreshToken = GetEnv("GOOGLE_REFRESH_TOKEN", "")
	p.Blogger.BlogID = GetEnv("GOOGLE_BLOG_ID", "")
	p.Blogger.BaseURL = GetEnv("BLOGGER_API_BASE_URL", "")
	p.Blogger.TokenURL = GetEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
	p.Timeout = GetEnvDuration("POST_TIMEOUT", 30*time.Second)

	cfg.Retry = RetryConfig{
		MaxRetries: GetEnvInt("POST_RETRY_MAX", 3),
		BaseDelay:  GetEnvDuration("POST_RETRY_BASE_DELAY", time.Second),
		MaxDelay:   GetEnvDuration("POST_RETRY_MAX_DELAY", 4*time.Second),
	}
	return cfg
}
