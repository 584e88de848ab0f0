package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/paperworksdev/scholargen/internal/config"
)

func installRegistryConfig(t *testing.T) {
	t.Helper()
	cfg := config.DefaultConfig()
	// Literal keys so no keyring or environment lookup happens.
	for id, pcfg := range cfg.Providers {
		pcfg.APIKey = "test-key"
		pcfg.KeyRef = ""
		cfg.Providers[id] = pcfg
	}
	config.Set(cfg)
	t.Cleanup(func() { config.Set(config.DefaultConfig()) })
}

func TestRegistry_GetReturnsSameInstance(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	a1, err := r.Get(context.Background(), "groq")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a2, err := r.Get(context.Background(), "groq")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if a1 != a2 {
		t.Error("Get returned different instances for the same id")
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	if _, err := r.Get(context.Background(), "mystery"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("error: got %v, want ErrUnknownProvider", err)
	}
}

func TestRegistry_ClearForcesRebuild(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	a1, err := r.Get(context.Background(), "deepseek")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	r.Clear("deepseek")
	a2, err := r.Get(context.Background(), "deepseek")
	if err != nil {
		t.Fatalf("Get after Clear: %v", err)
	}
	if a1 == a2 {
		t.Error("Clear did not drop the cached instance")
	}
}

func TestRegistry_ClearAll(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	a1, _ := r.Get(context.Background(), "groq")
	r.ClearAll()
	a2, _ := r.Get(context.Background(), "groq")
	if a1 == a2 {
		t.Error("ClearAll did not drop cached instances")
	}
}

func TestRegistry_ConcurrentGetSingleInstance(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	const workers = 16
	adapters := make([]Adapter, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := r.Get(context.Background(), "openai")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			adapters[i] = a
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if adapters[i] != adapters[0] {
			t.Fatalf("worker %d got a different instance", i)
		}
	}
}

func TestRegistry_AdapterNames(t *testing.T) {
	installRegistryConfig(t)
	r := NewRegistry(nil)

	for _, id := range []string{"groq", "deepseek", "openai", "ollama"} {
		a, err := r.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get(%q): %v", id, err)
		}
		if a.Name() != id {
			t.Errorf("Name: got %q, want %q", a.Name(), id)
		}
	}
}
