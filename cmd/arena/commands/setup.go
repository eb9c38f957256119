package commands

import (
	"context"

	"github.com/planarena/planarena/pkg/cache"
	"github.com/planarena/planarena/pkg/config"
	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/telemetry"
)

// telemetryConfig maps the application configuration onto the telemetry
// stack's configuration, honoring the global --verbose and --json flags.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.DefaultConfig()

	tc.Logging.Level = cfg.Logging.Level
	tc.Logging.Format = cfg.Logging.Format
	if verbose {
		tc.Logging.Level = "debug"
	}
	if jsonOutput {
		// Keep stdout clean for the JSON payload.
		tc.Logging.Output = "stderr"
	}

	tc.Metrics.Enabled = cfg.Metrics.Enabled
	tc.Metrics.ListenAddress = cfg.Metrics.ListenAddress
	if cfg.Metrics.Path != "" {
		tc.Metrics.Path = cfg.Metrics.Path
	}

	tc.Tracing.Enabled = cfg.Tracing.Enabled
	if cfg.Tracing.Exporter != "" {
		tc.Tracing.Exporter = cfg.Tracing.Exporter
	}
	tc.Tracing.Endpoint = cfg.Tracing.Endpoint
	if cfg.Tracing.SamplingRate > 0 {
		tc.Tracing.SamplingRate = cfg.Tracing.SamplingRate
	}

	return tc
}

// openCache builds the configured plan cache backend. The returned closer is
// a no-op for the in-memory backend.
func openCache(ctx context.Context, cfg *config.Config) (engine.PlanCache, func() error, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		store, err := cache.NewSQLiteStore(cache.SQLiteConfig{Path: cfg.Cache.Path})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		mem, err := cache.NewMemory(cfg.Cache.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() error { return nil }, nil
	}
}
