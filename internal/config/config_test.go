package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

// resetGlobal restores the process-wide config after a test that calls Load.
func resetGlobal(t *testing.T) {
	t.Helper()
	prev := Get()
	t.Cleanup(func() { Set(prev) })
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scholargen.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.BindAddress != "127.0.0.1" {
		t.Errorf("BindAddress = %q, want 127.0.0.1", cfg.Server.BindAddress)
	}
	if len(cfg.Providers) != 5 {
		t.Fatalf("len(Providers) = %d, want 5", len(cfg.Providers))
	}
	for _, id := range []string{"gemini", "groq", "deepseek"} {
		if !cfg.Providers[id].Enabled {
			t.Errorf("provider %s should be enabled by default", id)
		}
	}
	for _, id := range []string{"openai", "ollama"} {
		if cfg.Providers[id].Enabled {
			t.Errorf("provider %s should be disabled by default", id)
		}
	}
	if got := cfg.Routing.FallbackOrder; len(got) != 5 || got[0] != "gemini" {
		t.Errorf("FallbackOrder = %v", got)
	}
	if cfg.Routing.ReliabilityThreshold != 0.8 {
		t.Errorf("ReliabilityThreshold = %v, want 0.8", cfg.Routing.ReliabilityThreshold)
	}
	if cfg.Generation.StreamChunkSize != 100 {
		t.Errorf("StreamChunkSize = %d, want 100", cfg.Generation.StreamChunkSize)
	}

	if err := validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	resetGlobal(t)

	path := writeConfigFile(t, `
[server]
port = 9100
log_level = "debug"

[providers.gemini]
model = "gemini-2.5-pro"
priority = 3

[routing]
rotation_window_minutes = 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Providers["gemini"].Model != "gemini-2.5-pro" {
		t.Errorf("gemini model = %q", cfg.Providers["gemini"].Model)
	}
	if cfg.Providers["gemini"].Priority != 3 {
		t.Errorf("gemini priority = %d, want 3", cfg.Providers["gemini"].Priority)
	}
	if cfg.Routing.RotationWindowMinutes != 30 {
		t.Errorf("RotationWindowMinutes = %d, want 30", cfg.Routing.RotationWindowMinutes)
	}

	// Values the file does not mention keep their defaults.
	if cfg.Server.BindAddress != DefaultBindAddress {
		t.Errorf("BindAddress = %q, want default", cfg.Server.BindAddress)
	}
	if cfg.Providers["groq"].Model != "llama-3.3-70b-versatile" {
		t.Errorf("groq model = %q, want default", cfg.Providers["groq"].Model)
	}

	// Load installs the result globally.
	if Get().Server.Port != 9100 {
		t.Errorf("Get().Server.Port = %d after Load", Get().Server.Port)
	}
	if ConfigFilePath() != path {
		t.Errorf("ConfigFilePath = %q, want %q", ConfigFilePath(), path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	resetGlobal(t)
	t.Setenv("SCHOLARGEN_SERVER_PORT", "9200")

	path := writeConfigFile(t, `
[server]
port = 9100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Port = %d, env should win over file", cfg.Server.Port)
	}
}

func TestLoadProviderEnvOverride(t *testing.T) {
	resetGlobal(t)
	t.Setenv("SCHOLARGEN_GROQ_API_KEY", "gsk-test")
	t.Setenv("SCHOLARGEN_OLLAMA_ENABLED", "true")

	cfg, err := Load(writeConfigFile(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers["groq"].APIKey != "gsk-test" {
		t.Errorf("groq api key = %q", cfg.Providers["groq"].APIKey)
	}
	if !cfg.Providers["ollama"].Enabled {
		t.Error("ollama should be enabled via env")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	resetGlobal(t)

	path := writeConfigFile(t, "[server\nport = nope")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "port zero",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Server.LogLevel = "verbose" },
			want:   "server.log_level",
		},
		{
			name:   "empty data dir",
			mutate: func(c *Config) { c.Server.DataDir = "" },
			want:   "server.data_dir",
		},
		{
			name:   "negative priority",
			mutate: func(c *Config) { p := c.Providers["gemini"]; p.Priority = -1; c.Providers["gemini"] = p },
			want:   "priority",
		},
		{
			name:   "unknown fallback provider",
			mutate: func(c *Config) { c.Routing.FallbackOrder = []string{"gemini", "mistral"} },
			want:   "fallback_order",
		},
		{
			name:   "reliability threshold above one",
			mutate: func(c *Config) { c.Routing.ReliabilityThreshold = 1.5 },
			want:   "reliability_threshold",
		},
		{
			name:   "temperature out of range",
			mutate: func(c *Config) { c.Generation.DefaultTemperature = 2.5 },
			want:   "default_temperature",
		},
		{
			name:   "top_p out of range",
			mutate: func(c *Config) { c.Generation.DefaultTopP = 1.2 },
			want:   "default_top_p",
		},
		{
			name:   "zero max tokens",
			mutate: func(c *Config) { c.Generation.DefaultMaxTokens = 0 },
			want:   "default_max_tokens",
		},
		{
			name:   "zero stream chunk",
			mutate: func(c *Config) { c.Generation.StreamChunkSize = 0 },
			want:   "stream_chunk_size",
		},
		{
			name: "bad tracing exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			want: "tracing.exporter",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestTimeoutDuration(t *testing.T) {
	p := ProviderConfig{Timeout: 30}
	if got := p.TimeoutDuration(); got.Seconds() != 30 {
		t.Errorf("TimeoutDuration = %v, want 30s", got)
	}
	p.Timeout = 0
	if got := p.TimeoutDuration(); got.Seconds() != DefaultProviderTimeout {
		t.Errorf("TimeoutDuration = %v, want default", got)
	}
}

func TestRotationWindow(t *testing.T) {
	r := RoutingConfig{RotationWindowMinutes: 15}
	if got := r.RotationWindow(); got.Minutes() != 15 {
		t.Errorf("RotationWindow = %v, want 15m", got)
	}
	r.RotationWindowMinutes = 0
	if got := r.RotationWindow(); got.Minutes() != DefaultRotationWindowMinutes {
		t.Errorf("RotationWindow = %v, want default", got)
	}
}

func TestExportConfigRoundTrip(t *testing.T) {
	resetGlobal(t)

	cfg := DefaultConfig()
	cfg.Server.Port = 9300
	Set(cfg)

	path := filepath.Join(t.TempDir(), "export.toml")
	if err := ExportConfig(path); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var back Config
	if err := toml.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshalling export: %v", err)
	}
	if back.Server.Port != 9300 {
		t.Errorf("round-trip port = %d, want 9300", back.Server.Port)
	}
	if len(back.Providers) != 5 {
		t.Errorf("round-trip providers = %d, want 5", len(back.Providers))
	}
}
