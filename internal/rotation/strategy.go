// Package rotation selects which concrete model a provider should run for a
// given quality tier, biased by each model's recent success rate. History is
// kept in memory over a rolling window and pruned on every insertion.
package rotation

import (
	"sync"
	"time"
)

// Quality is a caller-selected hint biasing model selection within a provider.
type Quality string

const (
	QualityFast     Quality = "fast"
	QualityBalanced Quality = "balanced"
	QualityQuality  Quality = "quality"
)

// defaultCatalog ranks candidate models per provider and quality tier.
// Providers without an entry (e.g. locally hosted backends) fall back to
// their configured default model.
var defaultCatalog = map[string]map[Quality][]string{
	"gemini": {
		QualityFast:     {"gemini-2.5-flash-lite", "gemini-2.5-flash"},
		QualityBalanced: {"gemini-2.5-flash", "gemini-2.5-flash-lite"},
		QualityQuality:  {"gemini-2.5-pro", "gemini-2.5-flash"},
	},
	"groq": {
		QualityFast:     {"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
		QualityBalanced: {"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
		QualityQuality:  {"llama-3.3-70b-versatile", "qwen-2.5-72b"},
	},
	"deepseek": {
		QualityFast:     {"deepseek-chat"},
		QualityBalanced: {"deepseek-chat"},
		QualityQuality:  {"deepseek-reasoner", "deepseek-chat"},
	},
	"openai": {
		QualityFast:     {"gpt-4o-mini"},
		QualityBalanced: {"gpt-4o-mini", "gpt-4o"},
		QualityQuality:  {"gpt-4o", "gpt-4o-mini"},
	},
}

// outcome is one timestamped generation result for a model.
type outcome struct {
	at time.Time
	ok bool
}

// Strategy tracks per-model success history and picks the next model from a
// ranked candidate list. All methods are safe for concurrent use.
type Strategy struct {
	mu        sync.Mutex
	history   map[string][]outcome
	window    time.Duration
	threshold float64
	defaults  map[string]string // provider id → configured default model
}

// NewStrategy creates a Strategy. window is the rolling interval over which
// success rates are computed; threshold is the success rate at or above
// which a model with history outranks an untested one; defaults maps each
// provider to its configured default model.
func NewStrategy(window time.Duration, threshold float64, defaults map[string]string) *Strategy {
	if window <= 0 {
		window = time.Hour
	}
	return &Strategy{
		history:   make(map[string][]outcome),
		window:    window,
		threshold: threshold,
		defaults:  defaults,
	}
}

// SelectModels returns the ranked candidate models for a provider and
// quality tier. If the provider has no tier mapping, the provider's default
// model is returned as the single candidate.
func (s *Strategy) SelectModels(provider string, quality Quality) []string {
	if tiers, ok := defaultCatalog[provider]; ok {
		if models, ok := tiers[quality]; ok && len(models) > 0 {
			out := make([]string, len(models))
			copy(out, models)
			return out
		}
	}
	if def, ok := s.defaults[provider]; ok && def != "" {
		return []string{def}
	}
	return nil
}

// NextModel picks one model from the candidate list, which is treated as
// priority-ordered. The precedence rule is explicit:
//
//  1. A candidate with recorded history whose windowed success rate is at or
//     above the reliability threshold outranks all untested candidates;
//     among such candidates the highest rate wins, ties going to list order.
//  2. Otherwise every candidate is scored, untested candidates at the
//     optimistic default 1.0 and tested candidates at their actual rate,
//     and the highest score wins, ties going to list order. An untested model
//     therefore beats one with a poor track record.
//
// With no history at all, every candidate scores 1.0 and the first is
// returned (cold start).
func (s *Strategy) NextModel(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.window)

	bestProven := -1
	bestProvenRate := -1.0
	bestAny := 0
	bestAnyScore := -1.0

	for i, model := range candidates {
		attempts, successes := s.countLocked(model, cutoff)

		score := 1.0 // optimistic default for untested models
		if attempts > 0 {
			score = float64(successes) / float64(attempts)
			if score >= s.threshold && score > bestProvenRate {
				bestProven = i
				bestProvenRate = score
			}
		}
		if score > bestAnyScore {
			bestAny = i
			bestAnyScore = score
		}
	}

	if bestProven >= 0 {
		return candidates[bestProven]
	}
	return candidates[bestAny]
}

// MarkUsage appends a timestamped outcome for the model and prunes entries
// older than the rolling window. Pruning on every insertion bounds memory.
func (s *Strategy) MarkUsage(model string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-s.window)

	kept := s.history[model][:0]
	for _, o := range s.history[model] {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	s.history[model] = append(kept, outcome{at: now, ok: success})
}

// SuccessRate computes the model's success rate over the trailing window.
// A model with no history rates 1.0 (optimistic); there is never a division
// by zero.
func (s *Strategy) SuccessRate(model string, window time.Duration) float64 {
	if window <= 0 {
		window = s.window
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	attempts, successes := s.countLocked(model, time.Now().Add(-window))
	if attempts == 0 {
		return 1.0
	}
	return float64(successes) / float64(attempts)
}

// countLocked tallies attempts and successes for a model since cutoff.
// Callers must hold s.mu.
func (s *Strategy) countLocked(model string, cutoff time.Time) (attempts, successes int) {
	for _, o := range s.history[model] {
		if !o.at.After(cutoff) {
			continue
		}
		attempts++
		if o.ok {
			successes++
		}
	}
	return attempts, successes
}
