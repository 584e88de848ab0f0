package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/paperworksdev/scholargen/internal/config"
	"github.com/paperworksdev/scholargen/internal/vault"
)

// Registry lazily constructs and caches one Adapter per provider identifier.
// Construction is not cheap (client handles, TLS setup), so instances live
// for the process lifetime; Clear exists for credential rotation and tests.
type Registry struct {
	mu       sync.Mutex
	adapters map[string]Adapter
	vault    *vault.Vault
}

// NewRegistry creates an empty registry. Keys are resolved through the given
// vault when a provider config carries a key reference instead of a literal key.
func NewRegistry(v *vault.Vault) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		vault:    v,
	}
}

// Get returns the cached adapter for id, constructing it from the current
// configuration on first use. The registry mutex is held across construction
// so concurrent first calls for the same id cannot race to create duplicate
// instances with independent internal state.
func (r *Registry) Get(ctx context.Context, id string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[id]; ok {
		return a, nil
	}

	a, err := r.build(ctx, id)
	if err != nil {
		return nil, err
	}
	r.adapters[id] = a

	log.Debug().Str("provider", id).Msg("adapter constructed")
	return a, nil
}

// Clear drops the cached instance for id so the next Get reconstructs it
// from current configuration.
func (r *Registry) Clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, id)
}

// ClearAll drops every cached instance.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = make(map[string]Adapter)
}

// build constructs the concrete adapter for a provider identifier.
func (r *Registry) build(ctx context.Context, id string) (Adapter, error) {
	cfg, ok := config.Get().Providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}

	switch id {
	case "gemini":
		return NewGeminiAdapter(ctx, r.resolveKey(cfg))
	case "groq", "deepseek", "openai":
		return NewChatAdapter(id, cfg.BaseURL, r.resolveKey(cfg), cfg.TimeoutDuration()), nil
	case "ollama":
		return NewOllamaAdapter(cfg.BaseURL, cfg.TimeoutDuration()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
}

// resolveKey returns the provider's API key: a literal key from config wins,
// then the key reference is resolved through the vault. A provider without a
// resolvable key is constructed keyless and reports unavailable.
func (r *Registry) resolveKey(cfg config.ProviderConfig) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if cfg.KeyRef == "" || r.vault == nil {
		return ""
	}
	key, err := r.vault.ResolveKeyRef(cfg.KeyRef)
	if err != nil {
		log.Debug().Str("key_ref", cfg.KeyRef).Err(err).Msg("key reference did not resolve")
		return ""
	}
	return key
}
