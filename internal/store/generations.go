package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Generation is a single audit record of a routed text generation attempt
// that produced a final outcome (success or exhausted fallback).
type Generation struct {
	ID           string
	Timestamp    string
	Provider     string
	Model        string
	Quality      string
	PromptTokens int64
	TokensUsed   int64
	CostUSD      float64
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// GenerationStats holds aggregate statistics for a range of generations.
type GenerationStats struct {
	TotalGenerations int64
	TotalTokens      int64
	TotalCost        float64
	Successes        int64
	Failures         int64
}

// InsertGeneration stores a new generation record. The caller is
// responsible for providing a unique ID (typically a UUID).
func (s *Store) InsertGeneration(g *Generation) error {
	successInt := 0
	if g.Success {
		successInt = 1
	}

	_, err := s.writer.Exec(`
		INSERT INTO generations (
			id, timestamp, provider, model, quality,
			prompt_tokens, tokens_used, cost_usd, latency_ms,
			success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Timestamp, g.Provider, g.Model, g.Quality,
		g.PromptTokens, g.TokensUsed, g.CostUSD, g.LatencyMs,
		successInt, g.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("store: insert generation: %w", err)
	}
	return nil
}

// GetGeneration retrieves a single generation by its ID.
// Returns sql.ErrNoRows if the record does not exist.
func (s *Store) GetGeneration(id string) (*Generation, error) {
	g := &Generation{}
	var successInt int

	err := s.reader.QueryRow(`
		SELECT id, timestamp, provider, model, quality,
		       prompt_tokens, tokens_used, cost_usd, latency_ms,
		       success, error_message
		FROM generations WHERE id = ?`, id,
	).Scan(
		&g.ID, &g.Timestamp, &g.Provider, &g.Model, &g.Quality,
		&g.PromptTokens, &g.TokensUsed, &g.CostUSD, &g.LatencyMs,
		&successInt, &g.ErrorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get generation %s: %w", id, err)
	}

	g.Success = successInt != 0
	return g, nil
}

// ListGenerations returns a page of generations ordered by timestamp
// descending.
func (s *Store) ListGenerations(limit, offset int) ([]*Generation, error) {
	rows, err := s.reader.Query(`
		SELECT id, timestamp, provider, model, quality,
		       prompt_tokens, tokens_used, cost_usd, latency_ms,
		       success, error_message
		FROM generations
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list generations: %w", err)
	}
	defer rows.Close()

	var results []*Generation
	for rows.Next() {
		g := &Generation{}
		var successInt int
		if err := rows.Scan(
			&g.ID, &g.Timestamp, &g.Provider, &g.Model, &g.Quality,
			&g.PromptTokens, &g.TokensUsed, &g.CostUSD, &g.LatencyMs,
			&successInt, &g.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("store: scan generation row: %w", err)
		}
		g.Success = successInt != 0
		results = append(results, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list generations iteration: %w", err)
	}
	return results, nil
}

// GetGenerationStats computes aggregate statistics for all generations
// whose timestamp is >= since.
func (s *Store) GetGenerationStats(since time.Time) (*GenerationStats, error) {
	sinceStr := since.UTC().Format(time.RFC3339)
	stats := &GenerationStats{}

	err := s.reader.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(tokens_used), 0),
			COALESCE(SUM(cost_usd), 0.0),
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM generations
		WHERE timestamp >= ?`, sinceStr,
	).Scan(
		&stats.TotalGenerations,
		&stats.TotalTokens,
		&stats.TotalCost,
		&stats.Successes,
		&stats.Failures,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return stats, nil
		}
		return nil, fmt.Errorf("store: get generation stats: %w", err)
	}

	return stats, nil
}
