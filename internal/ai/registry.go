package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry resolves an assistant's provider name and model to a Provider.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	guard     *Guard
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// WithGuard makes every provider returned by Get go through g.
func (r *Registry) WithGuard(g *Guard) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = g
	return r
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	g := r.guard
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	p, err := f(ctx, model)
	if err != nil {
		return nil, err
	}
	return Guarded(p, g), nil
}

// OpenAIFactory builds OpenAIProviders that share base settings and differ by
// model only.
func OpenAIFactory(base OpenAIConfig) ProviderFactory {
	return func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		cfg := base
		if m := strings.TrimSpace(model); m != "" {
			cfg.Model = m
		}
		return NewOpenAIProvider(cfg), nil
	}
}
