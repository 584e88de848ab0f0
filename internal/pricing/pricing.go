// Package pricing estimates the monetary cost of generation calls from
// published per-million-token rates. Estimates are best-effort: unknown
// models cost 0 and local backends are free.
package pricing

import "strings"

// ModelPricing holds the per-million-token costs for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Pricing maps model identifiers to their token pricing in USD.
var Pricing = map[string]ModelPricing{
	// Gemini
	"gemini-2.5-pro":        {1.25, 10.00},
	"gemini-2.5-flash":      {0.30, 2.50},
	"gemini-2.5-flash-lite": {0.10, 0.40},
	"gemini-2.0-flash":      {0.10, 0.40},

	// Groq-hosted open models
	"llama-3.3-70b-versatile": {0.59, 0.79},
	"llama-3.1-8b-instant":    {0.05, 0.08},
	"mixtral-8x7b-32768":      {0.24, 0.24},
	"qwen-2.5-72b":            {0.90, 0.90},

	// DeepSeek
	"deepseek-chat":     {0.27, 1.10},
	"deepseek-reasoner": {0.55, 2.19},

	// OpenAI
	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4-turbo": {10.00, 30.00},
}

// GetPricing returns the pricing for the given model. It first attempts an
// exact match, then falls back to a prefix match against known model names.
// The second return value indicates whether pricing was found.
func GetPricing(model string) (ModelPricing, bool) {
	// Exact match.
	if p, ok := Pricing[model]; ok {
		return p, true
	}

	// Prefix match, useful for versioned model names like
	// "gemini-2.5-flash-preview-05-20" that should map to base pricing.
	for name, p := range Pricing {
		if strings.HasPrefix(model, name) {
			return p, true
		}
	}

	return ModelPricing{}, false
}

// EstimateCost calculates the estimated cost in USD for the given number of
// input and output tokens on the specified model. Returns 0.0 if the model
// is not found in the pricing table.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := GetPricing(model)
	if !ok {
		return 0.0
	}
	return (float64(tokensIn)*p.InputPerMillion + float64(tokensOut)*p.OutputPerMillion) / 1_000_000
}
