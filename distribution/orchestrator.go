// Package distribution fans one content item out to publishing adapters,
// records every attempt, and rolls the outcomes up onto the content status.
package distribution

import (
	"context"
	"fmt"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/faults"
	"amplify-cloud/history"
	"github.com/sirupsen/logrus"
)

// ErrContentNotFound is the only failure that aborts a whole call.
var ErrContentNotFound = content.ErrNotFound

const defaultRateLimitCooldown = 15 * time.Minute

// Orchestrator is safe for concurrent use. Two concurrent Distribute calls
// for the same content are not serialized: their rollups race and the last
// status write wins.
type Orchestrator struct {
	registry *Registry
	contents content.Store
	history  history.Store

	logger        logrus.FieldLogger
	metrics       *Metrics
	now           func() time.Time
	cooldown      time.Duration
	skipRecovered bool
}

type Option func(*Orchestrator)

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRateLimitCooldown sets the retry hint used when an adapter reports a
// rate limit without a reset time.
func WithRateLimitCooldown(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.cooldown = d
		}
	}
}

// WithSkipRecovered makes RetryFailed ignore platforms whose latest attempt
// already succeeded.
func WithSkipRecovered(skip bool) Option {
	return func(o *Orchestrator) { o.skipRecovered = skip }
}

func New(registry *Registry, contents content.Store, hist history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		contents: contents,
		history:  hist,
		logger:   logrus.StandardLogger(),
		now:      time.Now,
		cooldown: defaultRateLimitCooldown,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Distribute posts content to each target in order and returns one result per
// distinct target. nil or empty platforms means every registered adapter.
func (o *Orchestrator) Distribute(ctx context.Context, contentID string, platforms []content.Platform) ([]Result, error) {
	start := o.now()
	c, err := o.contents.Get(ctx, contentID)
	if err != nil {
		if faults.Is(err, faults.KindNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("distribute %s: %w", contentID, err)
	}

	targets := o.targets(platforms)
	log := o.logger.WithFields(logrus.Fields{"content_id": contentID, "targets": len(targets)})
	log.Info("distributing content")

	results := make([]Result, 0, len(targets))
	for _, p := range targets {
		res := o.attempt(ctx, c, p)
		o.record(ctx, contentID, res)
		results = append(results, res)
	}

	status := o.rollup(ctx, contentID, results)
	o.metrics.observeRollup(status, o.now().Sub(start))
	log.WithField("status", status).Info("distribution finished")
	return results, nil
}

// RetryFailed re-distributes to the distinct platforms that have a FAILED or
// RATE_LIMITED record in history, each once.
func (o *Orchestrator) RetryFailed(ctx context.Context, contentID string) ([]Result, error) {
	records, err := o.history.ListByContent(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("retry %s: %w", contentID, err)
	}

	var platforms []content.Platform
	if o.skipRecovered {
		platforms = history.PendingPlatforms(records)
	} else {
		platforms = history.RetryablePlatforms(records)
	}

	if len(platforms) == 0 {
		if _, err := o.contents.Get(ctx, contentID); err != nil {
			if faults.Is(err, faults.KindNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("retry %s: %w", contentID, err)
		}
		o.logger.WithField("content_id", contentID).Info("no failed attempts to retry")
		return []Result{}, nil
	}

	o.logger.WithFields(logrus.Fields{"content_id": contentID, "platforms": platforms}).Info("retrying failed platforms")
	return o.Distribute(ctx, contentID, platforms)
}

// TestAllConnections probes every adapter independently. A panicking adapter
// is recorded as false.
func (o *Orchestrator) TestAllConnections(ctx context.Context) map[content.Platform]bool {
	out := make(map[content.Platform]bool, len(o.registry.order))
	for _, p := range o.registry.Platforms() {
		adapter, _ := o.registry.Get(p)
		ok := o.probe(ctx, adapter)
		out[p] = ok
		o.metrics.observeProbe(p, ok)
	}
	return out
}

func (o *Orchestrator) probe(ctx context.Context, adapter PlatformAdapter) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(logrus.Fields{"platform": adapter.Platform(), "panic": r}).Error("connection test panicked")
			ok = false
		}
	}()
	return adapter.TestConnection(ctx)
}

func (o *Orchestrator) targets(platforms []content.Platform) []content.Platform {
	if len(platforms) == 0 {
		return o.registry.Platforms()
	}
	seen := make(map[content.Platform]bool, len(platforms))
	out := make([]content.Platform, 0, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (o *Orchestrator) attempt(ctx context.Context, c *content.Content, p content.Platform) Result {
	adapter, ok := o.registry.Get(p)
	if !ok {
		return Result{Platform: p, Error: fmt.Sprintf("no adapter registered for %s", p)}
	}
	if !adapter.Enabled() {
		return Result{Platform: p, Error: faults.NotEnabled(string(p)).Error()}
	}

	res, err := o.post(ctx, adapter, c.Bundle.TextFor(p))
	if err != nil {
		res = Result{Error: err.Error()}
		if faults.Is(err, faults.KindRateLimited) {
			res.RateLimited = true
			retryAt, ok := faults.RetryAfterOf(err)
			if !ok {
				retryAt = o.now().Add(o.cooldown)
			}
			res.RetryAfter = &retryAt
		}
		o.logger.WithFields(logrus.Fields{"content_id": c.ID, "platform": p}).WithError(err).Warn("post failed")
	}
	res.Platform = p
	return res
}

func (o *Orchestrator) post(ctx context.Context, adapter PlatformAdapter, text string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s adapter panicked: %v", adapter.Platform(), r)
		}
	}()
	return adapter.Post(ctx, text)
}

func (o *Orchestrator) record(ctx context.Context, contentID string, res Result) {
	now := o.now().UTC()
	rec := history.Record{
		ContentID:   contentID,
		Platform:    res.Platform,
		Status:      history.StatusFor(res.Success, res.RateLimited),
		PostID:      res.PostID,
		PostURL:     res.PostURL,
		Error:       res.Error,
		RetryAfter:  res.RetryAfter,
		AttemptedAt: now,
	}
	if res.Success {
		rec.PostedAt = &now
	}
	o.metrics.observeAttempt(res.Platform, rec.Status)
	if _, err := o.history.Append(ctx, rec); err != nil {
		o.logger.WithFields(logrus.Fields{"content_id": contentID, "platform": res.Platform}).WithError(err).Error("failed to append attempt history")
	}
}

// rollup sets POSTED only when every target succeeded. Partial and total
// failure both become FAILED with no posted-at.
func (o *Orchestrator) rollup(ctx context.Context, contentID string, results []Result) content.Status {
	status := content.StatusFailed
	var postedAt *time.Time
	if Summarize(results).AllSucceeded {
		status = content.StatusPosted
		now := o.now().UTC()
		postedAt = &now
	}
	if err := o.contents.UpdateStatus(ctx, contentID, status, postedAt); err != nil {
		o.logger.WithField("content_id", contentID).WithError(err).Error("failed to update content status")
	}
	return status
}
