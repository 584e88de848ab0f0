package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"

	"github.com/paperworksdev/scholargen/internal/pricing"
	"github.com/paperworksdev/scholargen/internal/tracing"
)

// GeminiAdapter wraps the official genai client. Unlike the HTTP adapters it
// carries a constructed SDK client handle; construction failure (bad or
// missing credentials) leaves the handle nil and the adapter unavailable.
type GeminiAdapter struct {
	cli *genai.Client
}

// NewGeminiAdapter creates a Gemini adapter. An empty API key produces an
// adapter that reports unavailable rather than an error, matching the
// "absent credentials disable the provider" contract.
func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return &GeminiAdapter{}, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &GeminiAdapter{cli: cli}, nil
}

// Name returns the provider identifier.
func (g *GeminiAdapter) Name() string {
	return "gemini"
}

// Available reflects whether a client handle could be constructed. No
// network call is made.
func (g *GeminiAdapter) Available(ctx context.Context) bool {
	return g.cli != nil
}

// Generate performs one GenerateContent call and normalises the reply.
func (g *GeminiAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	if g.cli == nil {
		return nil, fmt.Errorf("gemini: %w: no API key configured", ErrUnavailable)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: req.Prompt}}, Role: genai.RoleUser},
	}

	ctx, span := tracing.StartUpstreamSpan(ctx, "generativelanguage.googleapis.com", "gemini")
	defer span.End()

	start := time.Now()
	resp, err := g.cli.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.Warn().Str("provider", "gemini").Str("model", req.Model).Err(err).Msg("generation call failed")
		return nil, &UpstreamError{Provider: "gemini", Model: req.Model, Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err := fmt.Errorf("response contained no candidates")
		tracing.RecordError(ctx, err)
		return nil, &UpstreamError{Provider: "gemini", Model: req.Model, Err: err}
	}

	// An empty part list yields an empty string, which is a valid result.
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	var tokens int
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	var cost float64
	if resp.UsageMetadata != nil {
		cost = pricing.EstimateCost(req.Model,
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount))
	}

	log.Info().
		Str("provider", "gemini").
		Str("model", req.Model).
		Dur("latency", time.Since(start)).
		Int("tokens", tokens).
		Float64("cost", cost).
		Msg("generation complete")

	return &Response{
		Text:       text,
		Provider:   "gemini",
		Model:      req.Model,
		TokensUsed: tokens,
		Cost:       cost,
		Timestamp:  time.Now(),
	}, nil
}
