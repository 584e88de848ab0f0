// Package provider implements the uniform adapter layer over the concrete
// LLM backends. Each adapter builds a backend-specific request, invokes the
// backend with a bounded timeout, and normalises the reply into a Response.
// Cross-cutting concerns (provider selection, rate accounting, fallback)
// live in the router package.
package provider

import (
	"context"
	"time"
)

// Request is the normalised generation input handed to an adapter. The model
// has already been resolved by the caller (rotation strategy or explicit
// override).
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	TopP         float64
	MaxTokens    int
}

// Response is the normalised generation output. TokensUsed and Cost are zero
// when the backend does not report usage (true for local backends).
// A Response is never mutated after an adapter returns it.
type Response struct {
	Text       string    `json:"text"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	Timestamp  time.Time `json:"timestamp"`
}

// Adapter is the capability set every concrete backend implements. Adding a
// provider means adding one implementation, not modifying the router.
type Adapter interface {
	// Generate performs one generation call. An empty generated string is a
	// valid result and is returned as such, not as an error.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Available is a cheap capability probe. Cloud adapters report whether a
	// client handle could be constructed; local adapters perform a bounded
	// network probe. Available never panics and never blocks beyond the
	// probe timeout.
	Available(ctx context.Context) bool

	// Name returns the provider identifier (e.g. "gemini").
	Name() string
}
