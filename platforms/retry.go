// Package platforms holds the publishing adapters. Each adapter retries its
// own transient failures and reports rate limits as results.
package platforms

import (
	"context"
	"errors"
	"time"

	"amplify-cloud/faults"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryPolicy is the per-post budget: MaxRetries attempts after the first,
// delays doubling from BaseDelay and capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times after 1s, 2s and 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// retryable: only transient faults consume the budget. Anything else, including
// a post the platform accepted but answered oddly, is final.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return faults.KindOf(err) == faults.KindTransient
}

func newRetryPolicy[T any](p RetryPolicy) retrypolicy.RetryPolicy[T] {
	p = p.normalize()
	builder := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool { return retryable(err) }).
		WithMaxRetries(p.MaxRetries).
		ReturnLastFailure()
	if p.MaxDelay > p.BaseDelay {
		builder = builder.WithBackoff(p.BaseDelay, p.MaxDelay)
	} else {
		builder = builder.WithDelay(p.BaseDelay)
	}
	return builder.Build()
}

// withRetry runs fn under the policy. On exhaustion the last failure is
// returned unchanged so its kind survives.
func withRetry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	return failsafe.With[T](newRetryPolicy[T](p)).WithContext(ctx).Get(func() (T, error) {
		return fn(ctx)
	})
}
