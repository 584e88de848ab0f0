// Package server exposes the generation facade over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/paperworksdev/scholargen/internal/generation"
	"github.com/paperworksdev/scholargen/internal/rotation"
	"github.com/paperworksdev/scholargen/internal/router"
	"github.com/paperworksdev/scholargen/internal/store"
)

// generateRequest is the JSON body accepted by the generate endpoints.
type generateRequest struct {
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	Quality      string   `json:"quality,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
}

func (g *generateRequest) options() *generation.Options {
	return &generation.Options{
		SystemPrompt: g.SystemPrompt,
		Provider:     g.Provider,
		Model:        g.Model,
		Quality:      rotation.Quality(g.Quality),
		Temperature:  g.Temperature,
		TopP:         g.TopP,
		MaxTokens:    g.MaxTokens,
	}
}

// Handler serves the generation API.
type Handler struct {
	svc         *generation.Service
	store       *store.Store // optional; nil disables the audit endpoints
	logger      zerolog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler. st may be nil, in which case the audit
// listing endpoint returns 404. A maxBodySize of 0 means unlimited.
func NewHandler(svc *generation.Service, st *store.Store, logger zerolog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		svc:         svc,
		store:       st,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// HandleGenerate serves POST /v1/generate.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.svc.GenerateText(r.Context(), req.Prompt, req.options())
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to write generate response")
	}
}

// HandleGenerateStream serves POST /v1/generate/stream. The full generation
// runs first; its text is then delivered as a sequence of SSE chunk events
// followed by a done event carrying the response metadata.
func (h *Handler) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	chunks, err := h.svc.GenerateTextStream(r.Context(), req.Prompt, req.options())
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sse := NewSSEWriter(w)
	seq := 0
	for chunk := range chunks {
		seq++
		evt := &SSEEvent{
			Event: "chunk",
			ID:    strconv.Itoa(seq),
			Data:  chunk,
		}
		if err := sse.WriteEvent(evt); err != nil {
			h.logger.Debug().Err(err).Msg("stream client went away")
			return
		}
	}

	_ = sse.WriteEvent(&SSEEvent{Event: "done", Data: "{}"})
}

// HandleHealth serves GET /health: a per-provider reachability and success
// rate report.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.svc.Health(r.Context())

	status := http.StatusOK
	healthy := false
	for _, p := range report {
		if p.Reachable {
			healthy = true
			break
		}
	}
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    statusLabel(healthy),
		"providers": report,
	})
}

// HandleStats serves GET /stats: the per-provider usage ledger.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.svc.Stats())
}

// HandleResetStats serves POST /admin/reset-stats.
func (h *Handler) HandleResetStats(w http.ResponseWriter, r *http.Request) {
	h.svc.ResetDailyStats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"reset"}`))
}

// HandleGenerations serves GET /v1/generations: a page of recent audit
// records, newest first.
func (h *Handler) HandleGenerations(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSONError(w, http.StatusNotFound, "audit log not enabled")
		return
	}

	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)
	if limit > 500 {
		limit = 500
	}

	records, err := h.store.ListGenerations(limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list generations")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"generations": records})
}

// decodeGenerateRequest reads and parses the request body, writing an error
// response and returning ok=false on failure.
func (h *Handler) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (*generateRequest, bool) {
	var body io.Reader = r.Body
	if h.maxBodySize > 0 {
		body = io.LimitReader(r.Body, h.maxBodySize)
	}

	var req generateRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return &req, true
}

// writeGenerateError maps facade and router errors onto HTTP statuses.
func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	var allFailed *router.AllProvidersFailedError

	switch {
	case errors.Is(err, generation.ErrInvalidInput),
		errors.Is(err, generation.ErrPromptTooLarge):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, router.ErrNoProvidersAvailable):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &allFailed):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error().Err(err).Msg("generation failed")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func statusLabel(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "router_error",
		},
	}
	data, _ := json.Marshal(resp)
	_, _ = w.Write(data)
}
