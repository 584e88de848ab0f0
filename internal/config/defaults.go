package config

// DefaultBindAddress is the default bind address (localhost only for security).
const DefaultBindAddress = "127.0.0.1"

// DefaultPort is the default port for the generation API server.
const DefaultPort = 8642

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.scholargen"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "scholargen.toml"

// DefaultProviderTimeout is the default provider timeout in seconds. Long
// because large-model generation regularly runs over a minute.
const DefaultProviderTimeout = 120

// DefaultProbeTimeout is the timeout in seconds for local-backend
// availability probes.
const DefaultProbeTimeout = 5

// DefaultReadTimeout is the default HTTP server read timeout in seconds.
const DefaultReadTimeout = 10

// DefaultWriteTimeout is the default HTTP server write timeout in seconds.
// Set high (5 minutes) to accommodate slow generation responses.
const DefaultWriteTimeout = 300

// DefaultIdleTimeout is the default HTTP server idle timeout in seconds.
const DefaultIdleTimeout = 120

// DefaultMaxBodySize is the default maximum request body size in bytes (1 MB).
const DefaultMaxBodySize = 1 << 20

// DefaultRotationWindowMinutes is the rolling window over which model
// success rates are computed.
const DefaultRotationWindowMinutes = 60

// DefaultReliabilityThreshold is the success rate at or above which a model
// with recorded history outranks an untested model.
const DefaultReliabilityThreshold = 0.8

// DefaultTemperature is the default sampling temperature.
const DefaultTemperature = 0.7

// DefaultTopP is the default nucleus-sampling parameter.
const DefaultTopP = 0.95

// DefaultMaxTokens is the default maximum number of generated tokens.
const DefaultMaxTokens = 4096

// DefaultMaxPromptTokens caps the estimated prompt size accepted by the facade.
const DefaultMaxPromptTokens = 32000

// DefaultStreamChunkSize is the chunk size in characters for the simulated
// streaming facade.
const DefaultStreamChunkSize = 100

// DefaultCacheTTL is the default response cache TTL in seconds.
const DefaultCacheTTL = 300

// DefaultCacheMaxEntries is the default response cache capacity.
const DefaultCacheMaxEntries = 512

// DefaultTracingExporter is the default tracing exporter type.
const DefaultTracingExporter = "otlp-grpc"

// DefaultTracingEndpoint is the default OTLP collector endpoint.
const DefaultTracingEndpoint = "localhost:4317"

// DefaultTracingServiceName is the default service name for traces.
const DefaultTracingServiceName = "scholargen"

// DefaultTracingSampleRate is the default sampling rate (1.0 = 100%).
const DefaultTracingSampleRate = 1.0

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidQualityTiers lists the allowed quality tier values.
var ValidQualityTiers = []string{"fast", "balanced", "quality"}

// DefaultFallbackOrder is the priority sequence in which providers are
// attempted when the caller does not request one explicitly.
var DefaultFallbackOrder = []string{"gemini", "groq", "deepseek", "openai", "ollama"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:  DefaultBindAddress,
			Port:         DefaultPort,
			LogLevel:     DefaultLogLevel,
			DataDir:      DefaultDataDir,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxBodySize:  DefaultMaxBodySize,
		},
		Providers: map[string]ProviderConfig{
			"gemini": {
				Name:     "Google Gemini",
				KeyRef:   "keyring://scholargen/gemini",
				Model:    "gemini-2.5-flash",
				Enabled:  true,
				Priority: 1,
				Timeout:  DefaultProviderTimeout,
				Limits: RateLimitConfig{
					RequestsPerMinute: 15,
					TokensPerDay:      1_000_000,
					TokensPerMinute:   32_000,
				},
			},
			"groq": {
				Name:     "Groq",
				KeyRef:   "keyring://scholargen/groq",
				Model:    "llama-3.3-70b-versatile",
				BaseURL:  "https://api.groq.com/openai/v1",
				Enabled:  true,
				Priority: 2,
				Timeout:  DefaultProviderTimeout,
				Limits: RateLimitConfig{
					RequestsPerMinute: 30,
					TokensPerDay:      500_000,
					TokensPerMinute:   12_000,
				},
			},
			"deepseek": {
				Name:     "DeepSeek",
				KeyRef:   "keyring://scholargen/deepseek",
				Model:    "deepseek-chat",
				BaseURL:  "https://api.deepseek.com/v1",
				Enabled:  true,
				Priority: 3,
				Timeout:  DefaultProviderTimeout,
				Limits: RateLimitConfig{
					RequestsPerMinute: 60,
					TokensPerDay:      2_000_000,
					TokensPerMinute:   64_000,
				},
			},
			"openai": {
				Name:     "OpenAI",
				KeyRef:   "keyring://scholargen/openai",
				Model:    "gpt-4o-mini",
				BaseURL:  "https://api.openai.com/v1",
				Enabled:  false,
				Priority: 4,
				Timeout:  DefaultProviderTimeout,
				Limits: RateLimitConfig{
					RequestsPerMinute: 60,
					TokensPerDay:      2_000_000,
					TokensPerMinute:   64_000,
				},
			},
			"ollama": {
				Name:     "Ollama",
				Model:    "llama3.1",
				BaseURL:  "http://localhost:11434",
				Enabled:  false,
				Priority: 5,
				Timeout:  DefaultProviderTimeout,
				Limits: RateLimitConfig{
					RequestsPerMinute: 120,
				},
			},
		},
		Routing: RoutingConfig{
			FallbackOrder:         DefaultFallbackOrder,
			RotationWindowMinutes: DefaultRotationWindowMinutes,
			ReliabilityThreshold:  DefaultReliabilityThreshold,
		},
		Generation: GenerationConfig{
			DefaultTemperature: DefaultTemperature,
			DefaultTopP:        DefaultTopP,
			DefaultMaxTokens:   DefaultMaxTokens,
			MaxPromptTokens:    DefaultMaxPromptTokens,
			StreamChunkSize:    DefaultStreamChunkSize,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: DefaultCacheTTL,
			MaxEntries: DefaultCacheMaxEntries,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    DefaultTracingExporter,
			Endpoint:    DefaultTracingEndpoint,
			ServiceName: DefaultTracingServiceName,
			SampleRate:  DefaultTracingSampleRate,
			Insecure:    false,
		},
	}
}
