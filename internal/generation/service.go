// Package generation is the public facade over the strategy router. It
// validates prompts, applies configured generation defaults, caches
// deterministic responses, and exposes a chunked streaming variant.
package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/paperworksdev/scholargen/internal/config"
	"github.com/paperworksdev/scholargen/internal/provider"
	"github.com/paperworksdev/scholargen/internal/rotation"
	"github.com/paperworksdev/scholargen/internal/router"
	"github.com/paperworksdev/scholargen/internal/tokenizer"
	"github.com/paperworksdev/scholargen/internal/tracing"
)

// ErrInvalidInput is returned when the prompt is empty or whitespace-only.
var ErrInvalidInput = errors.New("prompt must not be empty")

// ErrPromptTooLarge is returned when the estimated prompt token count
// exceeds the configured ceiling.
var ErrPromptTooLarge = errors.New("prompt exceeds maximum token count")

// Generator is the routing backend the facade delegates to.
// *router.Router is the production implementation.
type Generator interface {
	Generate(ctx context.Context, req *router.Request) (*provider.Response, error)
	Stats() map[string]router.ProviderStats
	Health(ctx context.Context) map[string]router.ProviderHealth
	ResetDailyStats()
}

// Options carries per-request overrides. Zero values fall back to the
// configured generation defaults; nil Temperature/TopP means "use default"
// so that an explicit 0 remains expressible.
type Options struct {
	SystemPrompt string
	Provider     string
	Model        string
	Quality      rotation.Quality
	Temperature  *float64
	TopP         *float64
	MaxTokens    int
}

// Service is the public generation API.
type Service struct {
	routes Generator
	tok    *tokenizer.Tokenizer
	cache  *responseCache // nil when caching is disabled
}

// NewService creates the generation facade. The response cache is sized
// from the current configuration; when caching is disabled the cache is
// left nil.
func NewService(routes Generator) (*Service, error) {
	s := &Service{
		routes: routes,
		tok:    tokenizer.New(),
	}

	cfg := config.Get()
	if cfg.Cache.Enabled {
		cache, err := newResponseCache(cfg.Cache.MaxEntries, cfg.Cache.TTLSeconds)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// GenerateText produces a completed text generation for the prompt.
// Empty or whitespace-only prompts are rejected with ErrInvalidInput
// before any provider is touched.
func (s *Service) GenerateText(ctx context.Context, prompt string, opts *Options) (*provider.Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrInvalidInput
	}
	if opts == nil {
		opts = &Options{}
	}

	cfg := config.Get()
	gen := cfg.Generation

	temperature := gen.DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	topP := gen.DefaultTopP
	if opts.TopP != nil {
		topP = *opts.TopP
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = gen.DefaultMaxTokens
	}

	promptTokens := s.tok.CountPrompt(opts.Model, opts.SystemPrompt, prompt)
	if gen.MaxPromptTokens > 0 && promptTokens > gen.MaxPromptTokens {
		return nil, ErrPromptTooLarge
	}

	var key string
	if s.cache != nil && temperature == 0 {
		key = cacheKey(prompt, opts.SystemPrompt, opts.Provider, opts.Model,
			string(opts.Quality), temperature, topP, maxTokens)
		if resp, ok := s.cache.get(key); ok {
			log.Debug().Str("provider", resp.Provider).Str("model", resp.Model).
				Msg("generation served from cache")
			return resp, nil
		}
	}

	requestID := uuid.NewString()
	ctx, span := tracing.StartGenerationSpan(ctx, requestID)
	defer span.End()

	resp, err := s.routes.Generate(ctx, &router.Request{
		ID:           requestID,
		Prompt:       prompt,
		SystemPrompt: opts.SystemPrompt,
		Provider:     opts.Provider,
		Model:        opts.Model,
		Quality:      opts.Quality,
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		PromptTokens: promptTokens,
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	if key != "" {
		s.cache.set(key, resp)
	}
	return resp, nil
}

// GenerateTextStream produces the same result as GenerateText but delivers
// the text over a channel in fixed-size chunks. The generation runs to
// completion before the first chunk is sent; the channel is closed after
// the last chunk, or early if ctx is cancelled.
func (s *Service) GenerateTextStream(ctx context.Context, prompt string, opts *Options) (<-chan string, error) {
	resp, err := s.GenerateText(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	chunkSize := config.Get().Generation.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultStreamChunkSize
	}

	out := make(chan string)
	go func() {
		defer close(out)
		runes := []rune(resp.Text)
		for i := 0; i < len(runes); i += chunkSize {
			end := i + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case out <- string(runes[i:end]):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stats reports the per-provider usage ledger.
func (s *Service) Stats() map[string]router.ProviderStats {
	return s.routes.Stats()
}

// Health probes the enabled providers.
func (s *Service) Health(ctx context.Context) map[string]router.ProviderHealth {
	return s.routes.Health(ctx)
}

// ResetDailyStats zeroes the daily usage counters.
func (s *Service) ResetDailyStats() {
	s.routes.ResetDailyStats()
}
