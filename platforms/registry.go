package platforms

import (
	"context"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"amplify-cloud/security"
	"github.com/sirupsen/logrus"
)

// OptionsFromConfig maps the retry and timeout settings onto adapter options.
func OptionsFromConfig(cfg config.Config, logger logrus.FieldLogger) Options {
	return Options{
		Retry: RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
		Timeout:           cfg.Platforms.Timeout,
		RateLimitCooldown: cfg.RateLimitCooldown,
		Logger:            logger,
	}
}

// FromConfig builds the adapter registry. With MockPosting every platform is
// simulated; otherwise real adapters are registered whether or not they have
// credentials, and Enabled decides at post time.
func FromConfig(ctx context.Context, cfg config.Config, tokens *security.TokenStore, opts Options) (*distribution.Registry, error) {
	opts = opts.withDefaults()
	if cfg.MockPosting {
		opts.Logger.Warn("MOCK_POSTING enabled, no real posts will be made")
		adapters := make([]distribution.PlatformAdapter, 0, len(content.AllPlatforms()))
		for _, p := range content.AllPlatforms() {
			adapters = append(adapters, NewSimulated(p, cfg.MockPostDelay, opts.Logger))
		}
		return distribution.NewRegistry(adapters...)
	}

	blog, err := NewBlogger(ctx, cfg.Platforms.Blogger, tokens, opts)
	if err != nil {
		return nil, err
	}
	return distribution.NewRegistry(
		NewTwitter(cfg.Platforms.Twitter, opts),
		NewFacebook(cfg.Platforms.Facebook, opts),
		NewLinkedIn(cfg.Platforms.LinkedIn, opts),
		blog,
		NewTumblr(cfg.Platforms.Tumblr, opts),
	)
}
