// Package providers holds the AI backends behind the generation
// orchestrator. Each one is a langchaingo model plus a rate limiter.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/faults"
	"amplify-cloud/generation"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"
)

const (
	ClaudeName   = "claude"
	GroqName     = "groq"
	DeepSeekName = "deepseek"

	defaultTimeout = 90 * time.Second
	defaultBurst   = 2
)

// Options apply to every provider.
type Options struct {
	Timeout           time.Duration
	RequestsPerMinute int
	// HTTPClient replaces the SDK transport; tests point it at httptest.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.RequestsPerMinute)), defaultBurst)
}

// LLM is a provider backed by a langchaingo chat model. A provider built
// without an API key reports unavailable and never calls out.
type LLM struct {
	name     string
	model    llms.Model
	system   string
	callOpts []llms.CallOption
	limiter  *rate.Limiter
	timeout  time.Duration
	log      logrus.FieldLogger
}

func newLLM(name string, model llms.Model, system string, opts Options, callOpts ...llms.CallOption) *LLM {
	opts = opts.withDefaults()
	return &LLM{
		name:     name,
		model:    model,
		system:   system,
		callOpts: callOpts,
		limiter:  opts.limiter(),
		timeout:  opts.Timeout,
		log:      opts.Logger.WithField("provider", name),
	}
}

func (p *LLM) Name() string { return p.name }

func (p *LLM) Available() bool { return p.model != nil }

func (p *LLM) Generate(ctx context.Context, req generation.Request) (*content.Bundle, error) {
	if p.model == nil {
		return nil, faults.Configuration(p.name, "API key not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, faults.Transient(p.name, fmt.Errorf("rate limiter: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msgs := make([]llms.MessageContent, 0, 2)
	if p.system != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, p.system))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, BuildPrompt(req)))

	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, msgs, p.callOpts...)
	if err != nil {
		return nil, faults.Transient(p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, faults.InvalidShape(p.name, "no content in response")
	}
	p.log.WithField("elapsed", time.Since(start).String()).Debug("model responded")

	bundle, err := ParseBundle(resp.Choices[0].Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return bundle, nil
}

// NewClaude talks to the Anthropic messages API.
func NewClaude(cfg config.ProviderConfig, opts Options) (*LLM, error) {
	var model llms.Model
	if cfg.APIKey != "" {
		args := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			args = append(args, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if opts.HTTPClient != nil {
			args = append(args, anthropic.WithHTTPClient(opts.HTTPClient))
		}
		m, err := anthropic.New(args...)
		if err != nil {
			return nil, fmt.Errorf("create claude client: %w", err)
		}
		model = m
	}
	return newLLM(ClaudeName, model, "", opts, llms.WithMaxTokens(4096), llms.WithTemperature(0.7)), nil
}

// NewGroq uses Groq's OpenAI-compatible endpoint.
func NewGroq(cfg config.ProviderConfig, opts Options) (*LLM, error) {
	return newOpenAICompatible(GroqName, cfg, opts)
}

// NewDeepSeek uses DeepSeek's OpenAI-compatible endpoint.
func NewDeepSeek(cfg config.ProviderConfig, opts Options) (*LLM, error) {
	return newOpenAICompatible(DeepSeekName, cfg, opts)
}

func newOpenAICompatible(name string, cfg config.ProviderConfig, opts Options) (*LLM, error) {
	var model llms.Model
	if cfg.APIKey != "" {
		args := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.BaseURL),
		}
		if opts.HTTPClient != nil {
			args = append(args, openai.WithHTTPClient(opts.HTTPClient))
		}
		m, err := openai.New(args...)
		if err != nil {
			return nil, fmt.Errorf("create %s client: %w", name, err)
		}
		model = m
	}
	return newLLM(name, model, systemPrompt, opts, llms.WithMaxTokens(8192), llms.WithTemperature(0.8)), nil
}

// FromConfig builds claude, groq and deepseek in that order.
func FromConfig(cfg config.AIConfig, logger logrus.FieldLogger) ([]generation.ProviderAdapter, error) {
	opts := Options{Timeout: cfg.Timeout, RequestsPerMinute: cfg.RequestsPerMinute, Logger: logger}

	claude, err := NewClaude(cfg.Claude, opts)
	if err != nil {
		return nil, err
	}
	groq, err := NewGroq(cfg.Groq, opts)
	if err != nil {
		return nil, err
	}
	deepseek, err := NewDeepSeek(cfg.DeepSeek, opts)
	if err != nil {
		return nil, err
	}
	return []generation.ProviderAdapter{claude, groq, deepseek}, nil
}
