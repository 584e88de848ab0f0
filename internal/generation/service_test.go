package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paperworksdev/scholargen/internal/config"
	"github.com/paperworksdev/scholargen/internal/provider"
	"github.com/paperworksdev/scholargen/internal/router"
)

// fakeGenerator is a scriptable routing backend.
type fakeGenerator struct {
	resp   *provider.Response
	err    error
	last   *router.Request
	calls  int
	resets int
}

func (f *fakeGenerator) Generate(ctx context.Context, req *router.Request) (*provider.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &provider.Response{
		Text:       "generated text",
		Provider:   "gemini",
		Model:      req.Model,
		TokensUsed: 10,
		Timestamp:  time.Now(),
	}, nil
}

func (f *fakeGenerator) Stats() map[string]router.ProviderStats { return nil }

func (f *fakeGenerator) Health(ctx context.Context) map[string]router.ProviderHealth { return nil }

func (f *fakeGenerator) ResetDailyStats() { f.resets++ }

func newTestService(t *testing.T, gen Generator) *Service {
	t.Helper()
	svc, err := NewService(gen)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func installConfig(t *testing.T, mutate func(cfg *config.Config)) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	config.Set(cfg)
	t.Cleanup(func() { config.Set(config.DefaultConfig()) })
}

func TestGenerateText_EmptyPromptRejected(t *testing.T) {
	installConfig(t, nil)
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	for _, prompt := range []string{"", "   ", "\n\t "} {
		if _, err := svc.GenerateText(context.Background(), prompt, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("prompt %q: got %v, want ErrInvalidInput", prompt, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("router called %d times for invalid prompts", gen.calls)
	}
}

func TestGenerateText_DefaultsApplied(t *testing.T) {
	installConfig(t, nil)
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	if _, err := svc.GenerateText(context.Background(), "write an abstract", nil); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}

	req := gen.last
	if req.Temperature != config.DefaultTemperature {
		t.Errorf("temperature: got %v, want %v", req.Temperature, config.DefaultTemperature)
	}
	if req.TopP != config.DefaultTopP {
		t.Errorf("top_p: got %v, want %v", req.TopP, config.DefaultTopP)
	}
	if req.MaxTokens != config.DefaultMaxTokens {
		t.Errorf("max_tokens: got %v, want %v", req.MaxTokens, config.DefaultMaxTokens)
	}
	if req.ID == "" {
		t.Error("request ID not assigned")
	}
}

func TestGenerateText_ExplicitZeroTemperature(t *testing.T) {
	installConfig(t, nil)
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	zero := 0.0
	if _, err := svc.GenerateText(context.Background(), "deterministic please", &Options{Temperature: &zero}); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if gen.last.Temperature != 0 {
		t.Errorf("temperature: got %v, want 0", gen.last.Temperature)
	}
}

func TestGenerateText_RouterErrorPassesThrough(t *testing.T) {
	installConfig(t, nil)
	wantErr := &router.AllProvidersFailedError{Attempts: 2, LastErr: errors.New("boom")}
	gen := &fakeGenerator{err: wantErr}
	svc := newTestService(t, gen)

	_, err := svc.GenerateText(context.Background(), "hello", nil)
	var got *router.AllProvidersFailedError
	if !errors.As(err, &got) {
		t.Fatalf("error: got %T, want *router.AllProvidersFailedError", err)
	}
}

func TestGenerateText_PromptTooLarge(t *testing.T) {
	installConfig(t, func(cfg *config.Config) {
		cfg.Generation.MaxPromptTokens = 10
	})
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	long := strings.Repeat("academic discourse analysis ", 50)
	if _, err := svc.GenerateText(context.Background(), long, nil); !errors.Is(err, ErrPromptTooLarge) {
		t.Fatalf("error: got %v, want ErrPromptTooLarge", err)
	}
	if gen.calls != 0 {
		t.Error("router called despite oversized prompt")
	}
}

func TestGenerateText_CacheHitForDeterministicRequests(t *testing.T) {
	installConfig(t, func(cfg *config.Config) {
		cfg.Cache.Enabled = true
	})
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	zero := 0.0
	opts := &Options{Temperature: &zero}

	if _, err := svc.GenerateText(context.Background(), "same prompt", opts); err != nil {
		t.Fatalf("first GenerateText: %v", err)
	}
	if _, err := svc.GenerateText(context.Background(), "same prompt", opts); err != nil {
		t.Fatalf("second GenerateText: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("router calls: got %d, want 1 (second should be cached)", gen.calls)
	}

	// A non-deterministic request must bypass the cache.
	if _, err := svc.GenerateText(context.Background(), "same prompt", nil); err != nil {
		t.Fatalf("third GenerateText: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("router calls: got %d, want 2", gen.calls)
	}
}

func TestGenerateTextStream_ChunksOfConfiguredSize(t *testing.T) {
	installConfig(t, nil)
	text := strings.Repeat("x", 250)
	gen := &fakeGenerator{resp: &provider.Response{Text: text, Provider: "gemini", Model: "gemini-2.5-flash"}}
	svc := newTestService(t, gen)

	chunks, err := svc.GenerateTextStream(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("GenerateTextStream: %v", err)
	}

	var got []string
	for c := range chunks {
		got = append(got, c)
	}

	if len(got) != 3 {
		t.Fatalf("chunk count: got %d, want 3", len(got))
	}
	if len(got[0]) != 100 || len(got[1]) != 100 || len(got[2]) != 50 {
		t.Errorf("chunk sizes: got %d/%d/%d, want 100/100/50", len(got[0]), len(got[1]), len(got[2]))
	}
	if strings.Join(got, "") != text {
		t.Error("reassembled chunks do not equal the original text")
	}
}

func TestGenerateTextStream_EmptyPromptRejected(t *testing.T) {
	installConfig(t, nil)
	svc := newTestService(t, &fakeGenerator{})

	if _, err := svc.GenerateTextStream(context.Background(), "  ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error: got %v, want ErrInvalidInput", err)
	}
}

func TestGenerateTextStream_CancelledContextStopsDelivery(t *testing.T) {
	installConfig(t, nil)
	text := strings.Repeat("y", 1000)
	gen := &fakeGenerator{resp: &provider.Response{Text: text}}
	svc := newTestService(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := svc.GenerateTextStream(ctx, "hello", nil)
	if err != nil {
		t.Fatalf("GenerateTextStream: %v", err)
	}

	<-chunks
	cancel()

	// The channel must close without delivering the full text.
	n := 1
	for range chunks {
		n++
	}
	if n >= 10 {
		t.Errorf("received all %d chunks despite cancellation", n)
	}
}

func TestResetDailyStats_Delegates(t *testing.T) {
	installConfig(t, nil)
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	svc.ResetDailyStats()
	if gen.resets != 1 {
		t.Errorf("resets: got %d, want 1", gen.resets)
	}
}
