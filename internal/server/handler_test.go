package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperworksdev/scholargen/internal/config"
	"github.com/paperworksdev/scholargen/internal/generation"
	"github.com/paperworksdev/scholargen/internal/provider"
	"github.com/paperworksdev/scholargen/internal/router"
)

// fakeGenerator is a scriptable routing backend for handler tests.
type fakeGenerator struct {
	text    string
	err     error
	healthy bool
	resets  int
}

func (f *fakeGenerator) Generate(ctx context.Context, req *router.Request) (*provider.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{
		Text:       f.text,
		Provider:   "gemini",
		Model:      "gemini-2.5-flash",
		TokensUsed: 12,
		Timestamp:  time.Now(),
	}, nil
}

func (f *fakeGenerator) Stats() map[string]router.ProviderStats {
	return map[string]router.ProviderStats{
		"gemini": {Enabled: true, Priority: 1},
	}
}

func (f *fakeGenerator) Health(ctx context.Context) map[string]router.ProviderHealth {
	return map[string]router.ProviderHealth{
		"gemini": {Reachable: f.healthy, SuccessRate: 1.0},
	}
}

func (f *fakeGenerator) ResetDailyStats() { f.resets++ }

func newTestServer(t *testing.T, gen *fakeGenerator) *httptest.Server {
	t.Helper()
	config.Set(config.DefaultConfig())
	t.Cleanup(func() { config.Set(config.DefaultConfig()) })

	svc, err := generation.NewService(gen)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	handler := NewHandler(svc, nil, zerolog.Nop(), 1<<20)
	srv := NewServer(handler, "127.0.0.1:0", 0, 0, 0, false)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleGenerate_OK(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: "an abstract"})

	resp := postJSON(t, ts.URL+"/v1/generate", `{"prompt":"write an abstract"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var body provider.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Text != "an abstract" {
		t.Errorf("text: got %q", body.Text)
	}
	if body.Provider != "gemini" {
		t.Errorf("provider: got %q", body.Provider)
	}
}

func TestHandleGenerate_EmptyPrompt(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: "x"})

	resp := postJSON(t, ts.URL+"/v1/generate", `{"prompt":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHandleGenerate_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: "x"})

	resp := postJSON(t, ts.URL+"/v1/generate", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHandleGenerate_AllProvidersFailed(t *testing.T) {
	gen := &fakeGenerator{err: &router.AllProvidersFailedError{Attempts: 3, LastErr: errors.New("boom")}}
	ts := newTestServer(t, gen)

	resp := postJSON(t, ts.URL+"/v1/generate", `{"prompt":"hello"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", resp.StatusCode)
	}
}

func TestHandleGenerate_NoProviders(t *testing.T) {
	gen := &fakeGenerator{err: router.ErrNoProvidersAvailable}
	ts := newTestServer(t, gen)

	resp := postJSON(t, ts.URL+"/v1/generate", `{"prompt":"hello"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestHandleGenerateStream_SSE(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{text: strings.Repeat("z", 150)})

	resp := postJSON(t, ts.URL+"/v1/generate/stream", `{"prompt":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: got %q", ct)
	}

	chunkEvents := 0
	doneSeen := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: chunk" {
			chunkEvents++
		}
		if line == "event: done" {
			doneSeen = true
		}
	}
	if chunkEvents != 2 {
		t.Errorf("chunk events: got %d, want 2", chunkEvents)
	}
	if !doneSeen {
		t.Error("done event not received")
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{healthy: true})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status field: got %q, want ok", body.Status)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{healthy: false})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestHandleStats(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var stats map[string]router.ProviderStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := stats["gemini"]; !ok {
		t.Error("stats missing gemini")
	}
}

func TestHandleResetStats(t *testing.T) {
	gen := &fakeGenerator{}
	ts := newTestServer(t, gen)

	resp := postJSON(t, ts.URL+"/admin/reset-stats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if gen.resets != 1 {
		t.Errorf("resets: got %d, want 1", gen.resets)
	}
}

func TestHandleGenerations_NoStore(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/v1/generations")
	if err != nil {
		t.Fatalf("GET /v1/generations: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}
}
