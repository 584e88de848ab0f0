package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paperworksdev/scholargen/internal/pricing"
	"github.com/paperworksdev/scholargen/internal/tracing"
)

// ChatAdapter calls an OpenAI-compatible chat-completions endpoint. Groq,
// DeepSeek and OpenAI all speak this wire format; only the base URL and
// credentials differ.
type ChatAdapter struct {
	id      string
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewChatAdapter creates an adapter for an OpenAI-compatible backend.
// The base URL is the API root (e.g. "https://api.groq.com/openai/v1");
// "/chat/completions" is appended per call.
func NewChatAdapter(id, baseURL, apiKey string, timeout time.Duration) *ChatAdapter {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &ChatAdapter{
		id:      id,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Name returns the provider identifier.
func (a *ChatAdapter) Name() string {
	return a.id
}

// Available reports whether the adapter holds credentials. No network call
// is made: a constructed client with a key is assumed reachable until a
// generation attempt proves otherwise.
func (a *ChatAdapter) Available(ctx context.Context) bool {
	return a.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate performs one chat-completions call and normalises the reply.
func (a *ChatAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%s: %w: no API key configured", a.id, ErrUnavailable)
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", a.id, err)
	}

	url := a.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", a.id, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	ctx, span := tracing.StartUpstreamSpan(ctx, url, a.id)
	defer span.End()
	tracing.InjectHeaders(ctx, httpReq)

	start := time.Now()
	resp, err := a.httpc.Do(httpReq.WithContext(ctx))
	if err != nil {
		tracing.RecordError(ctx, err)
		log.Warn().Str("provider", a.id).Str("model", req.Model).Err(err).Msg("generation call failed")
		return nil, &UpstreamError{Provider: a.id, Model: req.Model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("unexpected status %s: %s", resp.Status, string(raw))
		tracing.RecordError(ctx, err)
		log.Warn().Str("provider", a.id).Str("model", req.Model).Err(err).Msg("generation call failed")
		return nil, &UpstreamError{Provider: a.id, Model: req.Model, Err: err}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{Provider: a.id, Model: req.Model, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return nil, &UpstreamError{Provider: a.id, Model: req.Model, Err: fmt.Errorf("response contained no choices")}
	}

	cost := pricing.EstimateCost(req.Model, out.Usage.PromptTokens, out.Usage.CompletionTokens)
	latency := time.Since(start)

	log.Info().
		Str("provider", a.id).
		Str("model", req.Model).
		Dur("latency", latency).
		Int("tokens", out.Usage.TotalTokens).
		Float64("cost", cost).
		Msg("generation complete")

	return &Response{
		Text:       out.Choices[0].Message.Content,
		Provider:   a.id,
		Model:      req.Model,
		TokensUsed: out.Usage.TotalTokens,
		Cost:       cost,
		Timestamp:  time.Now(),
	}, nil
}
