package distribution

import (
	"context"
	"fmt"
	"time"

	"amplify-cloud/content"
)

// Result is the outcome of one publish attempt.
type Result struct {
	Platform    content.Platform `json:"platform"`
	Success     bool             `json:"success"`
	PostID      string           `json:"postId,omitempty"`
	PostURL     string           `json:"postUrl,omitempty"`
	Error       string           `json:"error,omitempty"`
	RateLimited bool             `json:"rateLimited,omitempty"`
	RetryAfter  *time.Time       `json:"retryAfter,omitempty"`
}

// PlatformAdapter publishes to one destination.
//
// Enabled is a local credential check and must not touch the network.
// TestConnection never panics or errors; it reports false instead.
// Post retries transient failures itself. A rate limit comes back as a
// Result with RateLimited set, not as an error.
type PlatformAdapter interface {
	Platform() content.Platform
	Enabled() bool
	Post(ctx context.Context, text string) (Result, error)
	TestConnection(ctx context.Context) bool
}

// Registry is the fixed set of adapters, keyed by platform. It is read-only
// after construction and safe to share.
type Registry struct {
	adapters map[content.Platform]PlatformAdapter
	order    []content.Platform
}

// NewRegistry keeps registration order for default fan-out.
func NewRegistry(adapters ...PlatformAdapter) (*Registry, error) {
	r := &Registry{adapters: make(map[content.Platform]PlatformAdapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		p := a.Platform()
		if _, dup := r.adapters[p]; dup {
			return nil, fmt.Errorf("distribution: duplicate adapter for %s", p)
		}
		r.adapters[p] = a
		r.order = append(r.order, p)
	}
	return r, nil
}

func (r *Registry) Get(p content.Platform) (PlatformAdapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Platforms returns registered platforms in registration order.
func (r *Registry) Platforms() []content.Platform {
	out := make([]content.Platform, len(r.order))
	copy(out, r.order)
	return out
}

// Summary splits results by outcome so partial success stays visible even
// though the content rollup collapses it into FAILED.
type Summary struct {
	Succeeded    []content.Platform `json:"succeeded"`
	Failed       []content.Platform `json:"failed"`
	RateLimited  []content.Platform `json:"rateLimited"`
	AllSucceeded bool               `json:"allSucceeded"`
}

func Summarize(results []Result) Summary {
	s := Summary{
		Succeeded:   []content.Platform{},
		Failed:      []content.Platform{},
		RateLimited: []content.Platform{},
	}
	for _, r := range results {
		switch {
		case r.Success:
			s.Succeeded = append(s.Succeeded, r.Platform)
		case r.RateLimited:
			s.RateLimited = append(s.RateLimited, r.Platform)
		default:
			s.Failed = append(s.Failed, r.Platform)
		}
	}
	s.AllSucceeded = len(results) > 0 && len(s.Succeeded) == len(results)
	return s
}
