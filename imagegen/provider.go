// Package imagegen abstracts text-to-image providers behind a small
// adapter interface so the generation pipeline never depends on a
// concrete vendor SDK.
package imagegen

import (
	"context"
	"fmt"
)

// Provider is the adapter interface for text-to-image backends.
// Implement this to add new generation vendors.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string
	// GenerateImage renders one image for the prompt and returns a URL
	// where the raster can be fetched. model may be empty for the
	// provider's default.
	GenerateImage(ctx context.Context, prompt string, model string) (string, error)
}

// Registry selects a provider by name with a configured default, the same
// way delivery providers are registered by type.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultName string, providers ...Provider) *Registry {
	providerMap := make(map[string]Provider, len(providers))
	for _, p := range providers {
		providerMap[p.Name()] = p
	}
	return &Registry{providers: providerMap, defaultName: defaultName}
}

// Resolve returns the provider for name, or the default when name is
// empty. Unknown names are an error rather than a silent fallback so a
// caller's explicit override is never ignored.
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("no image provider registered for %q", name)
	}
	return p, nil
}
