// Package security persists platform access tokens so refreshed credentials
// survive restarts and are shared between replicas.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	tokenKeyFormat = "oauth_token:%s"
	// expiryLeeway treats tokens about to expire as already expired.
	expiryLeeway = 5 * time.Minute
	defaultTTL   = 30 * 24 * time.Hour
)

// TokenInfo represents stored OAuth token information
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	Platform     string    `json:"platform"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore keeps one token per platform in Redis.
type TokenStore struct {
	redisClient *redis.Client
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewTokenStore(redisClient *redis.Client, logger logrus.FieldLogger) *TokenStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TokenStore{redisClient: redisClient, logger: logger, now: time.Now}
}

func tokenKey(platform string) string {
	return fmt.Sprintf(tokenKeyFormat, platform)
}

// StoreToken saves token until shortly after it expires.
func (ts *TokenStore) StoreToken(ctx context.Context, platform string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	info := TokenInfo{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		Platform:     platform,
		UpdatedAt:    ts.now().UTC(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal token info: %w", err)
	}

	ttl := defaultTTL
	if !token.Expiry.IsZero() {
		if until := token.Expiry.Sub(ts.now()); until > 0 {
			ttl = until + time.Minute
		}
	}
	if err := ts.redisClient.Set(ctx, tokenKey(platform), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}
	ts.logger.WithField("platform", platform).Debug("stored access token")
	return nil
}

// GetToken returns the stored token or (nil, nil) when none exists.
func (ts *TokenStore) GetToken(ctx context.Context, platform string) (*oauth2.Token, error) {
	data, err := ts.redisClient.Get(ctx, tokenKey(platform)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}

	var info TokenInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token info: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  info.AccessToken,
		RefreshToken: info.RefreshToken,
		TokenType:    info.TokenType,
		Expiry:       info.Expiry,
	}, nil
}

func (ts *TokenStore) DeleteToken(ctx context.Context, platform string) error {
	if err := ts.redisClient.Del(ctx, tokenKey(platform)).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// TokenSource serves the cached token while it is fresh and otherwise asks
// base for a new one, persisting it for the next caller.
func (ts *TokenStore) TokenSource(platform string, base oauth2.TokenSource) oauth2.TokenSource {
	return &cachedSource{store: ts, platform: platform, base: base}
}

type cachedSource struct {
	store    *TokenStore
	platform string
	base     oauth2.TokenSource

	mu sync.Mutex
}

func (c *cachedSource) fresh(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return tok.Expiry.IsZero() || tok.Expiry.After(c.store.now().Add(expiryLeeway))
}

func (c *cachedSource) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := c.store.logger.WithField("platform", c.platform)
	cached, err := c.store.GetToken(ctx, c.platform)
	if err != nil {
		log.WithError(err).Warn("token cache read failed, refreshing")
	}
	if c.fresh(cached) {
		return cached, nil
	}

	tok, err := c.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh %s token: %w", c.platform, err)
	}
	if err := c.store.StoreToken(ctx, c.platform, tok); err != nil {
		log.WithError(err).Warn("token cache write failed")
	}
	log.Info("refreshed access token")
	return tok, nil
}
