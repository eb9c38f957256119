package config

// Config is the root configuration for the arena.
type Config struct {
	// Trial configures trial budgets and caching behavior.
	Trial TrialConfig `yaml:"trial" validate:"required"`

	// Cache configures the plan cache backend.
	Cache CacheConfig `yaml:"cache" validate:"required"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging" validate:"required"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures the OpenTelemetry exporter.
	Tracing TracingConfig `yaml:"tracing"`
}

// TrialConfig holds the knobs that bound a plan trial.
type TrialConfig struct {
	// WorkFloor is the minimum number of work units each candidate may
	// consume before ranking.
	WorkFloor int `yaml:"work_floor" validate:"gt=0"`

	// CollectionFraction scales the work budget with collection size. The
	// effective budget is max(WorkFloor, CollectionFraction * records).
	CollectionFraction float64 `yaml:"collection_fraction" validate:"gte=0,lte=1"`

	// MaxResults ends the trial early once any candidate has buffered this
	// many results.
	MaxResults int `yaml:"max_results" validate:"gt=0"`

	// CachingMode controls when ranking decisions are persisted
	// (always, sometimes, never).
	CachingMode string `yaml:"caching_mode" validate:"oneof=always sometimes never"`
}

// CacheConfig selects and sizes the plan cache backend.
type CacheConfig struct {
	// Backend is the cache implementation (memory or sqlite).
	Backend string `yaml:"backend" validate:"oneof=memory sqlite"`

	// MaxEntries bounds the in-memory LRU cache.
	MaxEntries int `yaml:"max_entries" validate:"gt=0"`

	// Path is the sqlite database path. Required when Backend is sqlite.
	Path string `yaml:"path" validate:"required_if=Backend sqlite"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format" validate:"oneof=console json"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	ListenAddress string `yaml:"listen_address" validate:"required_if=Enabled true"`

	// Path is the HTTP path for metrics.
	Path string `yaml:"path"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool `yaml:"enabled"`

	// Exporter specifies the trace exporter (otlp, stdout, none).
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// Default returns a configuration with every knob at its default value.
func Default() *Config {
	return &Config{
		Trial: TrialConfig{
			WorkFloor:          10000,
			CollectionFraction: 0.3,
			MaxResults:         101,
			CachingMode:        "sometimes",
		},
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 5000,
			Path:       "plan_cache.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9090",
			Path:          "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}
