// Package generation turns a request into a validated content bundle using
// whichever registered AI provider is available, falling back across
// providers when one fails.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"amplify-cloud/content"
)

var ErrInvalidRequest = errors.New("invalid generation request")

// Focus is an optional struggle/solution pair that steers the copy.
type Focus struct {
	Title    string `json:"title"`
	Struggle string `json:"struggle"`
	Solution string `json:"solution,omitempty"`
}

// Request is read-only once built.
type Request struct {
	Topic        string   `json:"topic"`
	Concept      string   `json:"concept"`
	Audience     string   `json:"audience"`
	Angle        string   `json:"angle"`
	ProofURL     string   `json:"proofUrl,omitempty"`
	ProofTitle   string   `json:"proofTitle,omitempty"`
	RecentTitles []string `json:"recentTitles,omitempty"`
	RecentHooks  []string `json:"recentHooks,omitempty"`
	Focus        *Focus   `json:"focus,omitempty"`
	StandardsRef string   `json:"standardsRef,omitempty"`
}

func (r Request) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"topic", r.Topic},
		{"concept", r.Concept},
		{"audience", r.Audience},
		{"angle", r.Angle},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// ProviderAdapter wraps one LLM backend.
//
// Available is a local credential check and must not touch the network.
// Generate returns a fully populated bundle or an error, never partial data.
type ProviderAdapter interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, req Request) (*content.Bundle, error)
}

// Registry is an ordered, read-only set of providers.
type Registry struct {
	adapters []ProviderAdapter
	byName   map[string]ProviderAdapter
}

func NewRegistry(adapters ...ProviderAdapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := a.Name()
		if name == "" {
			return nil, errors.New("generation: provider with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("generation: duplicate provider %q", name)
		}
		r.byName[name] = a
		r.adapters = append(r.adapters, a)
	}
	return r, nil
}

func (r *Registry) Get(name string) (ProviderAdapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names lists every provider in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Name())
	}
	return out
}

// Available lists providers that currently report credentials, in order.
func (r *Registry) Available() []ProviderAdapter {
	var out []ProviderAdapter
	for _, a := range r.adapters {
		if a.Available() {
			out = append(out, a)
		}
	}
	return out
}
