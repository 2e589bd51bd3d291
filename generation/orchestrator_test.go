package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"amplify-cloud/content"
	"amplify-cloud/faults"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	available bool
	bundle    *content.Bundle
	err       error
	block     bool
	calls     int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Generate(ctx context.Context, _ Request) (*content.Bundle, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	b := *f.bundle
	return &b, nil
}

func bundle(title string) *content.Bundle {
	return &content.Bundle{
		Title:    title,
		LinkedIn: "L",
		Reddit:   "R",
		Facebook: "F",
		Twitter:  "T",
		Blogger:  "B",
	}
}

func request() Request {
	return Request{Topic: "Science", Concept: "Photosynthesis", Audience: "5th", Angle: "time savings"}
}

func newOrchestrator(t *testing.T, defaultName string, providers ...ProviderAdapter) (*Orchestrator, *Metrics) {
	t.Helper()
	reg, err := NewRegistry(providers...)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	m := NewMetrics(prometheus.NewRegistry())
	return New(reg, defaultName, WithLogger(logger), WithMetrics(m), WithAttemptTimeout(50*time.Millisecond)), m
}

func TestGenerateUsesDefault(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true, bundle: bundle("From Claude")}
	groq := &fakeProvider{name: "groq", available: true, bundle: bundle("From Groq")}
	o, _ := newOrchestrator(t, "groq", claude, groq)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, "From Groq", res.Bundle.Title)
	assert.Equal(t, 0, claude.calls)
}

func TestGenerateFallsThroughUnavailableDefaultInOrder(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: false}
	groq := &fakeProvider{name: "groq", available: true, bundle: bundle("G")}
	deepseek := &fakeProvider{name: "deepseek", available: true, bundle: bundle("D")}
	o, _ := newOrchestrator(t, "claude", claude, groq, deepseek)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, 0, claude.calls)
	assert.Equal(t, 0, deepseek.calls)
}

func TestGenerateUnknownDefaultUsesFirstAvailable(t *testing.T) {
	groq := &fakeProvider{name: "groq", available: true, bundle: bundle("G")}
	o, _ := newOrchestrator(t, "gpt", groq)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
}

func TestGenerateNoBackendAvailable(t *testing.T) {
	providers := []*fakeProvider{
		{name: "claude"}, {name: "groq"}, {name: "deepseek"},
	}
	o, _ := newOrchestrator(t, "claude", providers[0], providers[1], providers[2])

	_, err := o.Generate(context.Background(), request())
	require.ErrorIs(t, err, ErrNoBackendAvailable)
	assert.True(t, faults.Is(err, faults.KindConfiguration))
	for _, p := range providers {
		assert.Equal(t, 0, p.calls, p.name)
	}
	assert.Empty(t, o.AvailableProviders())
}

func TestGenerateFallsBackOnError(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true, err: faults.Transient("claude", errors.New("overloaded"))}
	groq := &fakeProvider{name: "groq", available: false}
	deepseek := &fakeProvider{name: "deepseek", available: true, bundle: bundle("D")}
	o, m := newOrchestrator(t, "claude", claude, groq, deepseek)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "deepseek", res.Provider)
	assert.Equal(t, 1, claude.calls)
	assert.Equal(t, 0, groq.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("deepseek")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("claude", "transient")))
}

func TestGenerateFallsBackOnInvalidBundle(t *testing.T) {
	partial := bundle("Half")
	partial.Twitter = ""
	claude := &fakeProvider{name: "claude", available: true, bundle: partial}
	groq := &fakeProvider{name: "groq", available: true, bundle: bundle("Whole")}
	o, _ := newOrchestrator(t, "claude", claude, groq)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, "Whole", res.Bundle.Title)
}

func TestGenerateReturnsOriginalErrorWhenAllFail(t *testing.T) {
	original := faults.InvalidShape("claude", "no JSON object in response")
	claude := &fakeProvider{name: "claude", available: true, err: original}
	groq := &fakeProvider{name: "groq", available: true, err: errors.New("groq down")}
	deepseek := &fakeProvider{name: "deepseek", available: true, err: errors.New("deepseek down")}
	o, _ := newOrchestrator(t, "claude", claude, groq, deepseek)

	_, err := o.Generate(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, original)
	assert.True(t, faults.Is(err, faults.KindInvalidShape))
	assert.NotContains(t, err.Error(), "deepseek down")

	var gf *GenerationFailedError
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, "claude", gf.Provider)
	assert.Equal(t, 1, groq.calls)
	assert.Equal(t, 1, deepseek.calls)
}

func TestGenerateTimeoutFallsThrough(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true, block: true}
	groq := &fakeProvider{name: "groq", available: true, bundle: bundle("G")}
	o, _ := newOrchestrator(t, "claude", claude, groq)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, 1, claude.calls)
}

func TestGenerateRepairsBannedTitle(t *testing.T) {
	original := bundle("My Sunday Prep Struggle Is Over")
	claude := &fakeProvider{name: "claude", available: true, bundle: original}
	o, m := newOrchestrator(t, "claude", claude)

	res, err := o.Generate(context.Background(), request())
	require.NoError(t, err)

	lower := strings.ToLower(res.Bundle.Title)
	for _, phrase := range DefaultBannedPhrases {
		assert.NotContains(t, lower, phrase)
	}
	assert.Contains(t, res.Bundle.Title, "Photosynthesis")

	want := *original
	want.Title = res.Bundle.Title
	assert.Equal(t, want, *res.Bundle)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairs))

	again, err := o.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, res.Bundle.Title, again.Bundle.Title)
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	claude := &fakeProvider{name: "claude", available: true, bundle: bundle("x")}
	o, _ := newOrchestrator(t, "claude", claude)

	_, err := o.Generate(context.Background(), Request{Topic: "Science"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "concept, audience, angle")
	assert.Equal(t, 0, claude.calls)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&fakeProvider{name: "claude"}, &fakeProvider{name: "claude"})
	require.Error(t, err)

	_, err = NewRegistry(&fakeProvider{name: ""})
	require.Error(t, err)
}

func TestAvailableProvidersAndDefault(t *testing.T) {
	o, _ := newOrchestrator(t, "claude",
		&fakeProvider{name: "claude"},
		&fakeProvider{name: "groq", available: true},
		&fakeProvider{name: "deepseek", available: true},
	)
	assert.Equal(t, []string{"groq", "deepseek"}, o.AvailableProviders())
	assert.Equal(t, "claude", o.DefaultProvider())
}

func TestReplacementTitleSkipsBannedTemplates(t *testing.T) {
	req := request()
	title := replacementTitle(req, []string{"{concept} Weekend Prep", "Loving {concept}"}, DefaultBannedPhrases)
	assert.Equal(t, "Loving Photosynthesis", title)

	title = replacementTitle(req, []string{"weekend prep"}, DefaultBannedPhrases)
	assert.Equal(t, "A New Way to Teach Photosynthesis", title)
}
