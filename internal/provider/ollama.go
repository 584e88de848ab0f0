package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paperworksdev/scholargen/internal/tracing"
)

// ollamaProbeTimeout bounds the availability probe against a local server.
const ollamaProbeTimeout = 5 * time.Second

// OllamaAdapter calls a locally hosted Ollama server. Ollama reports no
// billable usage, so TokensUsed and Cost are always zero in its responses.
type OllamaAdapter struct {
	baseURL string
	httpc   *http.Client
}

// NewOllamaAdapter creates an adapter for the Ollama server at baseURL
// (e.g. "http://localhost:11434").
func NewOllamaAdapter(baseURL string, timeout time.Duration) *OllamaAdapter {
	return &OllamaAdapter{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (o *OllamaAdapter) Name() string {
	return "ollama"
}

// Available probes the local server with a list-models request under a short
// timeout. Any failure means unavailable; the probe never returns an error.
func (o *OllamaAdapter) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate performs one /api/generate call against the local server.
func (o *OllamaAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.TopP > 0 {
		options["top_p"] = req.TopP
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	body, err := json.Marshal(ollamaRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: encoding request: %w", err)
	}

	url := o.baseURL + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	ctx, span := tracing.StartUpstreamSpan(ctx, url, "ollama")
	defer span.End()

	start := time.Now()
	resp, err := o.httpc.Do(httpReq.WithContext(ctx))
	if err != nil {
		tracing.RecordError(ctx, err)
		log.Warn().Str("provider", "ollama").Str("model", req.Model).Err(err).Msg("generation call failed")
		return nil, &UpstreamError{Provider: "ollama", Model: req.Model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("unexpected status %s: %s", resp.Status, string(raw))
		tracing.RecordError(ctx, err)
		log.Warn().Str("provider", "ollama").Str("model", req.Model).Err(err).Msg("generation call failed")
		return nil, &UpstreamError{Provider: "ollama", Model: req.Model, Err: err}
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{Provider: "ollama", Model: req.Model, Err: fmt.Errorf("decoding response: %w", err)}
	}

	log.Info().
		Str("provider", "ollama").
		Str("model", req.Model).
		Dur("latency", time.Since(start)).
		Int("tokens", 0).
		Msg("generation complete")

	// Local backend: no usage reporting, no cost.
	return &Response{
		Text:       out.Response,
		Provider:   "ollama",
		Model:      req.Model,
		TokensUsed: 0,
		Cost:       0,
		Timestamp:  time.Now(),
	}, nil
}
