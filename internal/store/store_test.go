package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if st.Path() != path {
		t.Errorf("Path: got %q, want %q", st.Path(), path)
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close must be idempotent.
	if err := st.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open with nested dir: %v", err)
	}
	st.Close()
}

func TestPing(t *testing.T) {
	st := openTestStore(t)
	if err := st.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func testGeneration(id string, success bool) *Generation {
	return &Generation{
		ID:           id,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Provider:     "gemini",
		Model:        "gemini-2.5-flash",
		Quality:      "balanced",
		PromptTokens: 120,
		TokensUsed:   340,
		CostUSD:      0.0012,
		LatencyMs:    850,
		Success:      success,
	}
}

func TestInsertGeneration_GetGeneration(t *testing.T) {
	st := openTestStore(t)

	want := testGeneration("gen-1", true)
	if err := st.InsertGeneration(want); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}

	got, err := st.GetGeneration("gen-1")
	if err != nil {
		t.Fatalf("GetGeneration: %v", err)
	}
	if got.Provider != want.Provider || got.Model != want.Model {
		t.Errorf("round trip: got %+v", got)
	}
	if got.TokensUsed != want.TokensUsed || got.CostUSD != want.CostUSD {
		t.Errorf("counters: got tokens=%d cost=%v", got.TokensUsed, got.CostUSD)
	}
	if !got.Success {
		t.Error("Success flag lost")
	}
}

func TestGetGeneration_Missing(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.GetGeneration("nope"); err == nil {
		t.Fatal("GetGeneration: expected error for missing record")
	}
}

func TestListGenerations(t *testing.T) {
	st := openTestStore(t)

	for i, id := range []string{"a", "b", "c"} {
		g := testGeneration(id, true)
		// Spread timestamps so ordering is deterministic.
		g.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Second).Format(time.RFC3339)
		if err := st.InsertGeneration(g); err != nil {
			t.Fatalf("InsertGeneration %s: %v", id, err)
		}
	}

	got, err := st.ListGenerations(2, 0)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("page size: got %d, want 2", len(got))
	}
	if got[0].ID != "c" {
		t.Errorf("newest first: got %q, want %q", got[0].ID, "c")
	}
}

func TestGetGenerationStats(t *testing.T) {
	st := openTestStore(t)

	if err := st.InsertGeneration(testGeneration("ok-1", true)); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}
	if err := st.InsertGeneration(testGeneration("ok-2", true)); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}
	fail := testGeneration("fail-1", false)
	fail.ErrorMessage = "all providers failed"
	if err := st.InsertGeneration(fail); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}

	stats, err := st.GetGenerationStats(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetGenerationStats: %v", err)
	}
	if stats.TotalGenerations != 3 {
		t.Errorf("TotalGenerations: got %d, want 3", stats.TotalGenerations)
	}
	if stats.Successes != 2 || stats.Failures != 1 {
		t.Errorf("successes/failures: got %d/%d, want 2/1", stats.Successes, stats.Failures)
	}
	if stats.TotalTokens != 3*340 {
		t.Errorf("TotalTokens: got %d, want %d", stats.TotalTokens, 3*340)
	}
}

func TestPrune(t *testing.T) {
	st := openTestStore(t)

	old := testGeneration("old", true)
	old.Timestamp = time.Now().UTC().AddDate(0, 0, -60).Format(time.RFC3339)
	if err := st.InsertGeneration(old); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}
	if err := st.InsertGeneration(testGeneration("fresh", true)); err != nil {
		t.Fatalf("InsertGeneration: %v", err)
	}

	n, err := st.Prune(30)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned rows: got %d, want 1", n)
	}

	if _, err := st.GetGeneration("fresh"); err != nil {
		t.Errorf("fresh record pruned: %v", err)
	}
}
