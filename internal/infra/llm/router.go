// Provider router. Selects a Provider at request time; the current
// implementation is a pass-through to the configured default.
package llm

import (
	"context"
	"fmt"
)

// Router selects a Provider for each request.
type Router struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewRouter creates a Router with an initial set of providers and a default key.
func NewRouter(providers map[string]Provider, defaultProvider string) *Router {
	// defensive copy so the caller cannot mutate the internal map.
	ps := make(map[string]Provider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultProvider: defaultProvider}
}

// Register adds (or replaces) a provider under the given key.
func (r *Router) Register(key string, p Provider) {
	r.providers[key] = p
}

// Route returns the provider for the current request.
// Returns an error if the default provider is not registered.
func (r *Router) Route(_ context.Context) (Provider, error) {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", r.defaultProvider, r.keys())
	}
	return p, nil
}

// RouteEmbedder returns a provider capable of computing embeddings.
// Anthropic cannot embed, so the router falls back to ollama, then openai.
func (r *Router) RouteEmbedder(_ context.Context) (Provider, error) {
	if p, ok := r.providers[r.defaultProvider]; ok && r.defaultProvider != "anthropic" {
		return p, nil
	}
	for _, key := range []string{"ollama", "openai"} {
		if p, ok := r.providers[key]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("llm router: no embedding-capable provider registered (available: %v)", r.keys())
}

func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	return out
}
