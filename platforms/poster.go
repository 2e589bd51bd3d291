package platforms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"amplify-cloud/faults"
	"github.com/sirupsen/logrus"
)

// errMissingID marks a 2xx reply without a usable post id. The post exists, so
// it is reported as a success with no id rather than published again.
var errMissingID = errors.New("response carried no post id")

// Options are shared by every adapter.
type Options struct {
	// HTTPClient replaces the transport under the bearer token. Tests point
	// it at httptest servers.
	HTTPClient        *http.Client
	Retry             RetryPolicy
	Timeout           time.Duration
	RateLimitCooldown time.Duration
	Logger            logrus.FieldLogger
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Retry == (RetryPolicy{}) {
		o.Retry = DefaultRetryPolicy()
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RateLimitCooldown <= 0 {
		o.RateLimitCooldown = 15 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// poster carries the retry and rate-limit behaviour common to all adapters.
type poster struct {
	platform content.Platform
	opts     Options
	log      logrus.FieldLogger
}

func newPoster(p content.Platform, opts Options) poster {
	opts = opts.withDefaults()
	return poster{platform: p, opts: opts, log: opts.Logger.WithField("platform", p)}
}

func (p *poster) Platform() content.Platform { return p.platform }

func (p *poster) jsonClient(op, baseURL, token string, headers map[string]string) *jsonClient {
	return &jsonClient{
		op:       op,
		baseURL:  baseURL,
		client:   bearerClient(p.opts.HTTPClient, token, p.opts.Timeout),
		headers:  headers,
		now:      p.opts.Now,
		cooldown: p.opts.RateLimitCooldown,
	}
}

// publish runs one post under the retry policy. Transient failures are retried
// invisibly; a rate limit returns immediately as a RateLimited result.
func (p *poster) publish(ctx context.Context, fn func(context.Context) (distribution.Result, error)) (distribution.Result, error) {
	attempt := 0
	res, err := withRetry(ctx, p.opts.Retry, func(ctx context.Context) (distribution.Result, error) {
		attempt++
		if attempt > 1 {
			p.log.WithField("attempt", attempt).Info("retrying post")
		}
		return fn(ctx)
	})
	if errors.Is(err, errMissingID) {
		p.log.WithError(err).Warn("post accepted without a readable id")
		return distribution.Result{Platform: p.platform, Success: true}, nil
	}
	if err != nil {
		if faults.Is(err, faults.KindRateLimited) {
			at, ok := faults.RetryAfterOf(err)
			if !ok {
				at = p.opts.Now().Add(p.opts.RateLimitCooldown)
			}
			p.log.WithField("retry_after", at).Warn("rate limited")
			return distribution.Result{Platform: p.platform, RateLimited: true, RetryAfter: &at, Error: err.Error()}, nil
		}
		p.log.WithError(err).WithField("attempts", attempt).Warn("post failed")
		return distribution.Result{Platform: p.platform}, err
	}
	res.Platform = p.platform
	res.Success = true
	return res, nil
}

// probe turns any error into false.
func (p *poster) probe(ctx context.Context, enabled bool, fn func(context.Context) error) bool {
	if !enabled {
		return false
	}
	if err := fn(ctx); err != nil {
		p.log.WithError(err).Warn("connection test failed")
		return false
	}
	p.log.Info("connection test succeeded")
	return true
}
