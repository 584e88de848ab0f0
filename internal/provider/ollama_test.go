package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaAdapter_Available(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("probe path: got %q", r.URL.Path)
		}
		w.Write([]byte(`{"models": []}`))
	}))
	defer ts.Close()

	a := NewOllamaAdapter(ts.URL, 10*time.Second)
	if !a.Available(context.Background()) {
		t.Error("Available: got false for a responding server")
	}
}

func TestOllamaAdapter_Available_ServerDown(t *testing.T) {
	// Closed server: probe must fail quietly.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	a := NewOllamaAdapter(ts.URL, 10*time.Second)
	if a.Available(context.Background()) {
		t.Error("Available: got true for a closed server")
	}
}

func TestOllamaAdapter_Generate(t *testing.T) {
	var gotReq ollamaRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"response": "local answer"}`))
	}))
	defer ts.Close()

	a := NewOllamaAdapter(ts.URL, 10*time.Second)
	resp, err := a.Generate(context.Background(), &Request{
		Prompt:      "summarise this",
		Model:       "llama3.1",
		Temperature: 0.2,
		MaxTokens:   128,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if resp.Text != "local answer" {
		t.Errorf("text: got %q", resp.Text)
	}
	if resp.TokensUsed != 0 || resp.Cost != 0 {
		t.Errorf("local backend must report zero usage, got tokens=%d cost=%v", resp.TokensUsed, resp.Cost)
	}
	if gotReq.Stream {
		t.Error("stream flag must be false")
	}
	if gotReq.Options["num_predict"] != float64(128) {
		t.Errorf("num_predict: got %v", gotReq.Options["num_predict"])
	}
}
