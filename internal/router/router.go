// Package router dispatches generation requests across the configured
// provider backends. It walks the fallback priority order, skips providers
// that are rate-limited or unreachable, rotates models by recent success
// rate, and keeps a per-provider usage ledger in memory.
package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/paperworksdev/scholargen/internal/config"
	"github.com/paperworksdev/scholargen/internal/provider"
	"github.com/paperworksdev/scholargen/internal/rotation"
	"github.com/paperworksdev/scholargen/internal/store"
	"github.com/paperworksdev/scholargen/internal/tracing"
)

// AdapterSource yields a provider adapter by id. *provider.Registry is the
// production implementation.
type AdapterSource interface {
	Get(ctx context.Context, id string) (provider.Adapter, error)
}

// Request is a routed generation request. Provider and Model are optional
// overrides; when empty the router picks the provider from the fallback
// order and the model from the rotation strategy.
type Request struct {
	ID           string
	Prompt       string
	SystemPrompt string
	Provider     string
	Model        string
	Quality      rotation.Quality
	Temperature  float64
	TopP         float64
	MaxTokens    int
	PromptTokens int
}

// Router routes generation requests with fallback. A single mutex guards
// the usage ledger and the rolling request window; it is never held across
// an adapter call or availability probe.
type Router struct {
	adapters AdapterSource
	rotation *rotation.Strategy
	audit    *store.Store // optional; nil disables audit logging

	mu     sync.Mutex
	usage  map[string]*providerUsage
	window []requestRecord

	now func() time.Time
}

// New creates a Router. audit may be nil, in which case generation outcomes
// are not persisted.
func New(adapters AdapterSource, rot *rotation.Strategy, audit *store.Store) *Router {
	return &Router{
		adapters: adapters,
		rotation: rot,
		audit:    audit,
		usage:    make(map[string]*providerUsage),
		now:      time.Now,
	}
}

// Generate dispatches the request to the first provider that accepts it.
// The explicitly requested provider (if any) is attempted first, then the
// remaining providers in fallback order. The first successful response is
// returned immediately; a provider failure marks the model outcome, records
// the error in the ledger, and falls through to the next candidate.
func (r *Router) Generate(ctx context.Context, req *Request) (*provider.Response, error) {
	cfg := config.Get()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	quality := req.Quality
	if quality == "" {
		quality = rotation.QualityBalanced
	}

	candidates := r.candidates(cfg, req.Provider)
	if len(candidates) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	start := r.now()
	attempts := 0
	var lastErr error

	for _, id := range candidates {
		pcfg := cfg.Providers[id]

		if !r.withinLimits(id, pcfg.Limits, req.PromptTokens) {
			log.Debug().Str("provider", id).Str("request_id", req.ID).
				Msg("provider rate-limited, skipping")
			continue
		}
		if !r.probe(ctx, id) {
			log.Debug().Str("provider", id).Str("request_id", req.ID).
				Msg("provider unavailable, skipping")
			continue
		}

		model := req.Model
		if model == "" {
			model = r.rotation.NextModel(r.rotation.SelectModels(id, quality))
		}
		if model == "" {
			model = pcfg.Model
		}

		adapter, err := r.adapters.Get(ctx, id)
		if err != nil {
			lastErr = err
			r.recordFailure(id, err)
			continue
		}

		attempts++
		attemptCtx, span := tracing.StartAttemptSpan(ctx, id, model)
		attemptStart := r.now()

		resp, err := adapter.Generate(attemptCtx, &provider.Request{
			Prompt:       req.Prompt,
			SystemPrompt: req.SystemPrompt,
			Model:        model,
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			MaxTokens:    req.MaxTokens,
		})
		latency := r.now().Sub(attemptStart)

		if err != nil {
			tracing.RecordError(attemptCtx, err)
			span.End()
			r.rotation.MarkUsage(model, false)
			r.recordFailure(id, err)
			lastErr = err
			log.Warn().Err(err).Str("provider", id).Str("model", model).
				Str("request_id", req.ID).Dur("latency", latency).
				Msg("provider attempt failed")
			continue
		}

		tracing.SetResultAttributes(attemptCtx, id, model, resp.TokensUsed, resp.Cost)
		span.End()
		r.rotation.MarkUsage(model, true)
		r.recordSuccess(id, resp.TokensUsed, resp.Cost)
		r.logOutcome(req, resp, quality, r.now().Sub(start), true, "")

		log.Info().Str("provider", id).Str("model", model).
			Str("request_id", req.ID).Int("tokens", resp.TokensUsed).
			Dur("latency", latency).Msg("generation routed")
		return resp, nil
	}

	err := &AllProvidersFailedError{Attempts: attempts, LastErr: lastErr}
	r.logOutcome(req, nil, quality, r.now().Sub(start), false, err.Error())
	return nil, err
}

// BestProvider returns the id of the first enabled provider in fallback
// order that passes its rate checks and availability probe. When every
// enabled provider is blocked it returns the first enabled one, so callers
// always get a deterministic answer while any provider is enabled at all.
func (r *Router) BestProvider(ctx context.Context) (string, error) {
	cfg := config.Get()
	candidates := r.candidates(cfg, "")
	if len(candidates) == 0 {
		return "", ErrNoProvidersAvailable
	}

	for _, id := range candidates {
		if !r.withinLimits(id, cfg.Providers[id].Limits, 0) {
			continue
		}
		if r.probe(ctx, id) {
			return id, nil
		}
	}
	return candidates[0], nil
}

// Stats returns the configured limits and current usage ledger for every
// configured provider.
func (r *Router) Stats() map[string]ProviderStats {
	cfg := config.Get()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]ProviderStats, len(cfg.Providers))
	for id, pcfg := range cfg.Providers {
		st := ProviderStats{
			Enabled:           pcfg.Enabled,
			Priority:          pcfg.Priority,
			DefaultModel:      pcfg.Model,
			RequestsPerMinute: pcfg.Limits.RequestsPerMinute,
			TokensPerDay:      pcfg.Limits.TokensPerDay,
		}
		if u, ok := r.usage[id]; ok {
			st.Usage = u.snapshot()
		}
		out[id] = st
	}
	return out
}

// Health probes every enabled provider and reports reachability, the
// default model's rolling success rate, and current usage. A probe failure
// for one provider never affects another's report.
func (r *Router) Health(ctx context.Context) map[string]ProviderHealth {
	cfg := config.Get()
	window := cfg.Routing.RotationWindow()

	out := make(map[string]ProviderHealth)
	for id, pcfg := range cfg.Providers {
		if !pcfg.Enabled {
			continue
		}

		h := ProviderHealth{
			SuccessRate: r.rotation.SuccessRate(pcfg.Model, window),
		}

		adapter, err := r.adapters.Get(ctx, id)
		if err != nil {
			h.Error = err.Error()
		} else {
			h.Reachable = adapter.Available(ctx)
			if !h.Reachable {
				h.Error = "availability probe failed"
			}
		}

		r.mu.Lock()
		if u, ok := r.usage[id]; ok {
			h.Usage = u.snapshot()
		}
		r.mu.Unlock()

		out[id] = h
	}
	return out
}

// ResetDailyStats zeroes the daily counters for every tracked provider.
// Failure counts and last errors are preserved, as is the rolling request
// window used for per-minute accounting.
func (r *Router) ResetDailyStats() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.usage {
		u.requestsToday = 0
		u.tokensToday = 0
		u.costToday = 0
		u.lastRequest = time.Time{}
	}
	log.Info().Msg("daily usage stats reset")
}

// candidates builds the ordered, deduplicated list of enabled provider ids
// to attempt. explicit, when non-empty and enabled, goes first.
func (r *Router) candidates(cfg *config.Config, explicit string) []string {
	order := cfg.Routing.FallbackOrder
	if len(order) == 0 {
		for id := range cfg.Providers {
			order = append(order, id)
		}
		sort.Slice(order, func(i, j int) bool {
			pi, pj := cfg.Providers[order[i]].Priority, cfg.Providers[order[j]].Priority
			if pi != pj {
				return pi < pj
			}
			return order[i] < order[j]
		})
	}

	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if pcfg, ok := cfg.Providers[id]; ok && pcfg.Enabled {
			out = append(out, id)
		}
	}

	if explicit != "" {
		add(explicit)
	}
	for _, id := range order {
		add(id)
	}
	return out
}

// withinLimits checks the provider's rate ceilings: the daily token budget
// first, then the per-minute request count and per-minute token volume over
// the rolling window. A zero ceiling is not enforced.
func (r *Router) withinLimits(id string, limits config.RateLimitConfig, pendingTokens int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneWindowLocked(now)

	if limits.TokensPerDay > 0 {
		u := r.usageLocked(id)
		if u.tokensToday >= limits.TokensPerDay {
			return false
		}
	}

	if limits.RequestsPerMinute > 0 || limits.TokensPerMinute > 0 {
		cutoff := now.Add(-time.Minute)
		requests := 0
		var tokens int64
		for _, rec := range r.window {
			if rec.provider == id && rec.at.After(cutoff) {
				requests++
				tokens += int64(rec.tokens)
			}
		}
		if limits.RequestsPerMinute > 0 && requests >= limits.RequestsPerMinute {
			return false
		}
		if limits.TokensPerMinute > 0 && tokens+int64(pendingTokens) > limits.TokensPerMinute {
			return false
		}
	}

	return true
}

// probe runs the adapter's availability check without holding the router
// mutex. A failed probe increments the provider's failure count; a
// successful one resets it.
func (r *Router) probe(ctx context.Context, id string) bool {
	adapter, err := r.adapters.Get(ctx, id)
	ok := err == nil && adapter.Available(ctx)

	r.mu.Lock()
	u := r.usageLocked(id)
	if ok {
		u.failureCount = 0
	} else {
		u.failureCount++
		if err != nil {
			u.lastError = err.Error()
		}
	}
	r.mu.Unlock()
	return ok
}

func (r *Router) recordSuccess(id string, tokens int, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	u := r.usageLocked(id)
	u.requestsToday++
	u.tokensToday += int64(tokens)
	u.costToday += cost
	u.lastRequest = now
	u.failureCount = 0

	r.window = append(r.window, requestRecord{at: now, provider: id, tokens: tokens})
	r.pruneWindowLocked(now)
}

func (r *Router) recordFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.usageLocked(id)
	u.failureCount++
	u.lastError = err.Error()
}

// usageLocked returns the ledger entry for id, creating it on first use.
// The caller must hold the router mutex.
func (r *Router) usageLocked(id string) *providerUsage {
	u, ok := r.usage[id]
	if !ok {
		u = &providerUsage{}
		r.usage[id] = u
	}
	return u
}

// pruneWindowLocked drops request records older than the window span.
// The caller must hold the router mutex.
func (r *Router) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-requestWindow)
	kept := r.window[:0]
	for _, rec := range r.window {
		if rec.at.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	r.window = kept
}

// logOutcome persists the final request outcome to the audit store.
// Best-effort: failures are logged and dropped.
func (r *Router) logOutcome(req *Request, resp *provider.Response, quality rotation.Quality, latency time.Duration, ok bool, errMsg string) {
	if r.audit == nil {
		return
	}

	g := &store.Generation{
		ID:           req.ID,
		Timestamp:    r.now().UTC().Format(time.RFC3339),
		Quality:      string(quality),
		PromptTokens: int64(req.PromptTokens),
		LatencyMs:    latency.Milliseconds(),
		Success:      ok,
		ErrorMessage: errMsg,
	}
	if resp != nil {
		g.Provider = resp.Provider
		g.Model = resp.Model
		g.TokensUsed = int64(resp.TokensUsed)
		g.CostUSD = resp.Cost
	}

	if err := r.audit.InsertGeneration(g); err != nil {
		log.Warn().Err(err).Str("request_id", req.ID).Msg("audit log write failed")
	}
}
