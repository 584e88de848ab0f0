// Package tokenizer estimates prompt token counts using tiktoken encodings.
// The counts gate prompts against the configured size ceiling and feed the
// per-minute token accounting; exact counts come back from the providers.
package tokenizer

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer provides token counting using tiktoken encodings.
// Encodings are cached via sync.Once to avoid repeated initialization.
type Tokenizer struct {
	cl100kOnce sync.Once
	cl100kEnc  *tiktoken.Tiktoken
	cl100kErr  error

	o200kOnce sync.Once
	o200kEnc  *tiktoken.Tiktoken
	o200kErr  error
}

// modelEncodings maps model names to their tiktoken encoding. Non-OpenAI
// models use cl100k_base as an approximation; the estimate only needs to be
// in the right ballpark for prompt-size gating.
var modelEncodings = map[string]string{
	"gpt-4":       "cl100k_base",
	"gpt-4-turbo": "cl100k_base",

	"gpt-4o":      "o200k_base",
	"gpt-4o-mini": "o200k_base",

	"gemini-2.5-pro":        "cl100k_base",
	"gemini-2.5-flash":      "cl100k_base",
	"gemini-2.5-flash-lite": "cl100k_base",

	"llama-3.3-70b-versatile": "cl100k_base",
	"llama-3.1-8b-instant":    "cl100k_base",

	"deepseek-chat":     "cl100k_base",
	"deepseek-reasoner": "cl100k_base",
}

// New creates a new Tokenizer instance.
func New() *Tokenizer {
	return &Tokenizer{}
}

// GetEncoding returns the encoding name for the given model.
// Unknown models default to cl100k_base.
func (t *Tokenizer) GetEncoding(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}

	// Try prefix matching for versioned model names.
	lower := strings.ToLower(model)
	for m, enc := range modelEncodings {
		if strings.HasPrefix(lower, m) {
			return enc
		}
	}

	return "cl100k_base"
}

// getEncoder returns the cached tiktoken encoder for the given model.
func (t *Tokenizer) getEncoder(model string) (*tiktoken.Tiktoken, error) {
	switch t.GetEncoding(model) {
	case "o200k_base":
		t.o200kOnce.Do(func() {
			t.o200kEnc, t.o200kErr = tiktoken.GetEncoding("o200k_base")
		})
		return t.o200kEnc, t.o200kErr
	default:
		t.cl100kOnce.Do(func() {
			t.cl100kEnc, t.cl100kErr = tiktoken.GetEncoding("cl100k_base")
		})
		return t.cl100kEnc, t.cl100kErr
	}
}

// CountTokens counts the number of tokens in the given text for the
// specified model. Returns 0 if the encoder cannot be initialised.
func (t *Tokenizer) CountTokens(model, text string) int {
	enc, err := t.getEncoder(model)
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// CountPrompt estimates the token cost of a full prompt: system prompt plus
// user prompt, with a small per-section framing overhead and 3 tokens of
// reply priming.
func (t *Tokenizer) CountPrompt(model, systemPrompt, prompt string) int {
	enc, err := t.getEncoder(model)
	if err != nil {
		return 0
	}

	total := 0
	if systemPrompt != "" {
		total += 4
		total += len(enc.Encode(systemPrompt, nil, nil))
	}
	total += 4
	total += len(enc.Encode(prompt, nil, nil))
	total += 3

	return total
}
