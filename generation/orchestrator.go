package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/faults"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoBackendAvailable means no provider has credentials. No network
	// call is made.
	ErrNoBackendAvailable = faults.Configuration("generate", "no AI provider available, configure at least one API key")

	ErrGenerationFailed = errors.New("generation failed")
)

// GenerationFailedError carries the error of the first provider tried. The
// fallback errors are logged, not returned.
type GenerationFailedError struct {
	Provider string
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Provider, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

func (e *GenerationFailedError) Is(target error) bool { return target == ErrGenerationFailed }

const defaultAttemptTimeout = 90 * time.Second

// Result is a validated bundle and the provider that wrote it.
type Result struct {
	Bundle   *content.Bundle `json:"bundle"`
	Provider string          `json:"provider"`
}

// Orchestrator holds no mutable state; it is safe for concurrent callers.
type Orchestrator struct {
	registry    *Registry
	defaultName string

	attemptTimeout time.Duration
	banned         []string
	templates      []string
	metrics        *Metrics
	logger         logrus.FieldLogger
}

type Option func(*Orchestrator)

// WithAttemptTimeout bounds each provider call. A timed-out provider is not
// retried; the next one is tried instead.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.attemptTimeout = d
		}
	}
}

// WithBannedPhrases replaces the default title denylist. An empty list keeps
// the defaults.
func WithBannedPhrases(phrases []string) Option {
	return func(o *Orchestrator) {
		if len(phrases) > 0 {
			o.banned = phrases
		}
	}
}

func WithTitleTemplates(templates []string) Option {
	return func(o *Orchestrator) {
		if len(templates) > 0 {
			o.templates = templates
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func New(registry *Registry, defaultName string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:       registry,
		defaultName:    defaultName,
		attemptTimeout: defaultAttemptTimeout,
		banned:         DefaultBannedPhrases,
		templates:      DefaultTitleTemplates,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultProvider is the configured default name, whether or not it is
// currently available.
func (o *Orchestrator) DefaultProvider() string { return o.defaultName }

// AvailableProviders lists providers with credentials in registration order.
func (o *Orchestrator) AvailableProviders() []string {
	available := o.registry.Available()
	out := make([]string, 0, len(available))
	for _, a := range available {
		out = append(out, a.Name())
	}
	return out
}

// selectProvider prefers the default and otherwise takes the first available
// provider in registration order.
func (o *Orchestrator) selectProvider() ProviderAdapter {
	if a, ok := o.registry.Get(o.defaultName); ok && a.Available() {
		return a
	}
	available := o.registry.Available()
	if len(available) == 0 {
		return nil
	}
	o.logger.WithFields(logrus.Fields{"default": o.defaultName, "provider": available[0].Name()}).Info("default provider unavailable, falling back")
	return available[0]
}

// Generate returns a bundle from the selected provider or, if that call fails
// or returns an invalid bundle, from the first other available provider that
// succeeds. When all fail the first provider's error is returned.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	primary := o.selectProvider()
	if primary == nil {
		return nil, ErrNoBackendAvailable
	}

	bundle, err := o.attempt(ctx, primary, req)
	if err == nil {
		return &Result{Bundle: bundle, Provider: primary.Name()}, nil
	}
	original := err
	o.logger.WithField("provider", primary.Name()).WithError(err).Warn("primary provider failed, trying fallbacks")

	for _, a := range o.registry.Available() {
		if a.Name() == primary.Name() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		o.metrics.observeFallback(a.Name())
		bundle, err := o.attempt(ctx, a, req)
		if err != nil {
			o.logger.WithField("provider", a.Name()).WithError(err).Warn("fallback provider failed")
			continue
		}
		return &Result{Bundle: bundle, Provider: a.Name()}, nil
	}

	return nil, &GenerationFailedError{Provider: primary.Name(), Err: original}
}

// attempt makes one bounded call and validates and repairs its output.
func (o *Orchestrator) attempt(ctx context.Context, p ProviderAdapter, req Request) (*content.Bundle, error) {
	actx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	start := time.Now()
	bundle, err := o.call(actx, p, req)
	if err == nil {
		if bundle == nil {
			err = faults.InvalidShape(p.Name(), "provider returned no bundle")
		} else if verr := bundle.Validate(); verr != nil {
			err = verr
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = faults.Transient(p.Name(), fmt.Errorf("timed out after %s: %w", o.attemptTimeout, err))
		}
		o.metrics.observeAttempt(p.Name(), faults.KindOf(err).String(), time.Since(start))
		return nil, err
	}
	o.metrics.observeAttempt(p.Name(), "success", time.Since(start))

	out := *bundle
	if phrase, bad := containsBanned(out.Title, o.banned); bad {
		replaced := replacementTitle(req, o.templates, o.banned)
		o.logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"phrase":   phrase,
			"old":      out.Title,
			"new":      replaced,
		}).Info("replaced banned title")
		o.metrics.observeRepair()
		out.Title = replaced
	}
	return &out, nil
}

func (o *Orchestrator) call(ctx context.Context, p ProviderAdapter, req Request) (bundle *content.Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.Transient(p.Name(), fmt.Errorf("provider panicked: %v", r))
		}
	}()
	return p.Generate(ctx, req)
}
