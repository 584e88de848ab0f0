package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.read_timeout must be non-negative, got %d", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.write_timeout must be non-negative, got %d", cfg.Server.WriteTimeout))
	}
	if cfg.Server.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.idle_timeout must be non-negative, got %d", cfg.Server.IdleTimeout))
	}
	if cfg.Server.MaxBodySize < 0 {
		errs = append(errs, fmt.Sprintf("server.max_body_size must be non-negative, got %d", cfg.Server.MaxBodySize))
	}

	// Provider validation
	for id, p := range cfg.Providers {
		if p.Priority < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.priority must be non-negative, got %d", id, p.Priority))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.timeout must be non-negative", id))
		}
		if p.Limits.RequestsPerMinute < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.limits.requests_per_minute must be non-negative, got %d", id, p.Limits.RequestsPerMinute))
		}
		if p.Limits.TokensPerDay < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.limits.tokens_per_day must be non-negative, got %d", id, p.Limits.TokensPerDay))
		}
		if p.Limits.TokensPerMinute < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.limits.tokens_per_minute must be non-negative, got %d", id, p.Limits.TokensPerMinute))
		}
	}

	// Routing validation
	for _, id := range cfg.Routing.FallbackOrder {
		if _, ok := cfg.Providers[id]; !ok {
			errs = append(errs, fmt.Sprintf("routing.fallback_order references unknown provider %q", id))
		}
	}
	if cfg.Routing.RotationWindowMinutes < 0 {
		errs = append(errs, fmt.Sprintf("routing.rotation_window_minutes must be non-negative, got %d", cfg.Routing.RotationWindowMinutes))
	}
	if cfg.Routing.ReliabilityThreshold < 0 || cfg.Routing.ReliabilityThreshold > 1 {
		errs = append(errs, fmt.Sprintf("routing.reliability_threshold must be between 0 and 1, got %f", cfg.Routing.ReliabilityThreshold))
	}

	// Generation validation
	if cfg.Generation.DefaultTemperature < 0 || cfg.Generation.DefaultTemperature > 2 {
		errs = append(errs, fmt.Sprintf("generation.default_temperature must be between 0 and 2, got %f", cfg.Generation.DefaultTemperature))
	}
	if cfg.Generation.DefaultTopP < 0 || cfg.Generation.DefaultTopP > 1 {
		errs = append(errs, fmt.Sprintf("generation.default_top_p must be between 0 and 1, got %f", cfg.Generation.DefaultTopP))
	}
	if cfg.Generation.DefaultMaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("generation.default_max_tokens must be at least 1, got %d", cfg.Generation.DefaultMaxTokens))
	}
	if cfg.Generation.MaxPromptTokens < 0 {
		errs = append(errs, fmt.Sprintf("generation.max_prompt_tokens must be non-negative, got %d", cfg.Generation.MaxPromptTokens))
	}
	if cfg.Generation.StreamChunkSize < 1 {
		errs = append(errs, fmt.Sprintf("generation.stream_chunk_size must be at least 1, got %d", cfg.Generation.StreamChunkSize))
	}

	// Cache validation
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Sprintf("cache.ttl_seconds must be non-negative, got %d", cfg.Cache.TTLSeconds))
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Sprintf("cache.max_entries must be at least 1 when the cache is enabled, got %d", cfg.Cache.MaxEntries))
	}

	// Tracing validation
	if cfg.Tracing.Enabled {
		validExporters := []string{"stdout", "otlp-grpc", "otlp-http"}
		if !isValidEnum(cfg.Tracing.Exporter, validExporters) {
			errs = append(errs, fmt.Sprintf("tracing.exporter must be one of %v, got %q", validExporters, cfg.Tracing.Exporter))
		}
		if cfg.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name must not be empty when tracing is enabled")
		}
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be between 0 and 1, got %f", cfg.Tracing.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
