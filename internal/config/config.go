package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Set installs cfg as the current configuration without validation.
// Intended for callers that construct configuration programmatically,
// such as tests.
func Set(cfg *Config) {
	set(cfg)
}

// Config is the top-level configuration for scholargen.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"     toml:"server"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"  toml:"providers"`
	Routing    RoutingConfig             `mapstructure:"routing"    toml:"routing"`
	Generation GenerationConfig          `mapstructure:"generation" toml:"generation"`
	Cache      CacheConfig               `mapstructure:"cache"      toml:"cache"`
	Tracing    TracingConfig             `mapstructure:"tracing"    toml:"tracing"`
}

// ServerConfig holds the core server settings.
type ServerConfig struct {
	BindAddress  string `mapstructure:"bind_address"  toml:"bind_address"`
	Port         int    `mapstructure:"port"          toml:"port"`
	LogLevel     string `mapstructure:"log_level"     toml:"log_level"`
	DataDir      string `mapstructure:"data_dir"      toml:"data_dir"`
	ReadTimeout  int    `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" toml:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"  toml:"idle_timeout"`
	MaxBodySize  int64  `mapstructure:"max_body_size" toml:"max_body_size"`
}

// ProviderConfig describes a single LLM provider backend.
type ProviderConfig struct {
	Name     string          `mapstructure:"name"     toml:"name"`
	APIKey   string          `mapstructure:"api_key"  toml:"api_key"`
	KeyRef   string          `mapstructure:"key_ref"  toml:"key_ref"`
	Model    string          `mapstructure:"model"    toml:"model"`
	BaseURL  string          `mapstructure:"base_url" toml:"base_url"`
	Enabled  bool            `mapstructure:"enabled"  toml:"enabled"`
	Priority int             `mapstructure:"priority" toml:"priority"`
	Timeout  int             `mapstructure:"timeout"  toml:"timeout"` // seconds
	Limits   RateLimitConfig `mapstructure:"limits"   toml:"limits"`
}

// TimeoutDuration returns the provider timeout as a time.Duration.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return time.Duration(DefaultProviderTimeout) * time.Second
	}
	return time.Duration(p.Timeout) * time.Second
}

// RateLimitConfig holds the per-provider rate ceilings. A zero value means
// the corresponding ceiling is not enforced.
type RateLimitConfig struct {
	RequestsPerMinute int   `mapstructure:"requests_per_minute" toml:"requests_per_minute"`
	TokensPerDay      int64 `mapstructure:"tokens_per_day"      toml:"tokens_per_day"`
	TokensPerMinute   int64 `mapstructure:"tokens_per_minute"   toml:"tokens_per_minute"`
}

// RoutingConfig controls how generation requests are dispatched to providers.
type RoutingConfig struct {
	FallbackOrder         []string `mapstructure:"fallback_order"          toml:"fallback_order"`
	RotationWindowMinutes int      `mapstructure:"rotation_window_minutes" toml:"rotation_window_minutes"`
	ReliabilityThreshold  float64  `mapstructure:"reliability_threshold"   toml:"reliability_threshold"`
}

// RotationWindow returns the model-rotation window as a time.Duration.
func (r RoutingConfig) RotationWindow() time.Duration {
	if r.RotationWindowMinutes <= 0 {
		return time.Duration(DefaultRotationWindowMinutes) * time.Minute
	}
	return time.Duration(r.RotationWindowMinutes) * time.Minute
}

// GenerationConfig controls generation defaults and the streaming facade.
type GenerationConfig struct {
	DefaultTemperature float64 `mapstructure:"default_temperature" toml:"default_temperature"`
	DefaultTopP        float64 `mapstructure:"default_top_p"       toml:"default_top_p"`
	DefaultMaxTokens   int     `mapstructure:"default_max_tokens"  toml:"default_max_tokens"`
	MaxPromptTokens    int     `mapstructure:"max_prompt_tokens"   toml:"max_prompt_tokens"`
	StreamChunkSize    int     `mapstructure:"stream_chunk_size"   toml:"stream_chunk_size"`
}

// CacheConfig controls the in-memory response cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"     toml:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" toml:"ttl_seconds"`
	MaxEntries int  `mapstructure:"max_entries" toml:"max_entries"`
}

// TracingConfig controls OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"      toml:"enabled"`
	Exporter    string  `mapstructure:"exporter"     toml:"exporter"`     // "stdout", "otlp-grpc", "otlp-http"
	Endpoint    string  `mapstructure:"endpoint"     toml:"endpoint"`     // e.g. "localhost:4317"
	ServiceName string  `mapstructure:"service_name" toml:"service_name"` // defaults to "scholargen"
	SampleRate  float64 `mapstructure:"sample_rate"  toml:"sample_rate"`  // 0.0 to 1.0
	Insecure    bool    `mapstructure:"insecure"     toml:"insecure"`     // skip TLS for dev
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (SCHOLARGEN_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.scholargen/scholargen.toml
//  4. ./scholargen.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// Set all defaults from the default config so viper knows every key.
	setViperDefaults(v)

	// Environment variable overlay: SCHOLARGEN_SERVER_PORT etc.
	v.SetEnvPrefix("SCHOLARGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Determine which file(s) to read.
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".scholargen"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("scholargen")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file exists we still proceed with defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Store the resolved config file path.
	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Expand ~ in data_dir.
	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)

	// Per-provider environment overrides: SCHOLARGEN_<PROVIDER>_API_KEY,
	// _MODEL, _BASE_URL, _ENABLED. These make the common "only credentials
	// come from the environment" setup work without a config file at all.
	applyProviderEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// applyProviderEnv overlays provider settings from environment variables.
func applyProviderEnv(cfg *Config) {
	for id, p := range cfg.Providers {
		prefix := "SCHOLARGEN_" + strings.ToUpper(id) + "_"
		if v := os.Getenv(prefix + "API_KEY"); v != "" {
			p.APIKey = v
		}
		if v := os.Getenv(prefix + "MODEL"); v != "" {
			p.Model = v
		}
		if v := os.Getenv(prefix + "BASE_URL"); v != "" {
			p.BaseURL = v
		}
		if v := os.Getenv(prefix + "ENABLED"); v != "" {
			p.Enabled = strings.EqualFold(v, "true") || v == "1"
		}
		cfg.Providers[id] = p
	}
}

// InitConfig writes the default configuration file to ~/.scholargen/scholargen.toml.
// If the file already exists it is not overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".scholargen")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
func ExportConfig(path string) error {
	cfg := Get()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)

	// Routing
	v.SetDefault("routing.fallback_order", d.Routing.FallbackOrder)
	v.SetDefault("routing.rotation_window_minutes", d.Routing.RotationWindowMinutes)
	v.SetDefault("routing.reliability_threshold", d.Routing.ReliabilityThreshold)

	// Generation
	v.SetDefault("generation.default_temperature", d.Generation.DefaultTemperature)
	v.SetDefault("generation.default_top_p", d.Generation.DefaultTopP)
	v.SetDefault("generation.default_max_tokens", d.Generation.DefaultMaxTokens)
	v.SetDefault("generation.max_prompt_tokens", d.Generation.MaxPromptTokens)
	v.SetDefault("generation.stream_chunk_size", d.Generation.StreamChunkSize)

	// Cache
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)

	// Tracing
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	// Providers
	for id, p := range d.Providers {
		v.SetDefault("providers."+id+".name", p.Name)
		v.SetDefault("providers."+id+".key_ref", p.KeyRef)
		v.SetDefault("providers."+id+".model", p.Model)
		v.SetDefault("providers."+id+".base_url", p.BaseURL)
		v.SetDefault("providers."+id+".enabled", p.Enabled)
		v.SetDefault("providers."+id+".priority", p.Priority)
		v.SetDefault("providers."+id+".timeout", p.Timeout)
		v.SetDefault("providers."+id+".limits.requests_per_minute", p.Limits.RequestsPerMinute)
		v.SetDefault("providers."+id+".limits.tokens_per_day", p.Limits.TokensPerDay)
		v.SetDefault("providers."+id+".limits.tokens_per_minute", p.Limits.TokensPerMinute)
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
