// Package telemetry provides observability instrumentation for the plan arena.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring and debugging plan trials.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "planarena"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger = logger.WithTrialID("trial-123").WithShape("find:{a:1}")
//	logger.Info("Starting plan trial")
//	logger.WithError(err).Error("Trial aborted")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into trial flow and performance:
//
//	ctx, span := tel.Tracer.StartTrialSpan(ctx, trialID, shapeKey, len(candidates))
//	defer span.End()
//
//	span.SetAttributes(
//	    telemetry.AttrWinnerIndex.Int(winner),
//	    telemetry.AttrWorkUnits.Int(totalWorks),
//	)
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development)
//
// # Metrics
//
// Prometheus metrics track trial behavior and cache effectiveness:
//
//	tel.Metrics.RecordTrialStarted("sometimes")
//	tel.Metrics.RecordTrialCompleted("winner_chosen", duration, workUnits)
//	tel.Metrics.RecordCacheCommit("sometimes")
//	tel.Metrics.RecordBackupSwitch()
//	tel.Metrics.RecordError("conflict", "WRITE_CONFLICT")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishTrialStarted(trialID, shapeKey, len(candidates))
//	tel.Events.PublishWinnerChosen(trialID, planSummary, score, hasBackup)
//	tel.Events.PublishBackupSwitched(trialID, failedSummary, backupSummary)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByTrialID, FilterByShapeKey
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	ctx = telemetry.WithTrialContext(ctx, trialID, shapeKey, "sometimes", len(candidates))
//	// ... run the trial ...
//	telemetry.EndTrialContext(ctx, trialID, winnerSummary, "winner_chosen", workUnits, err)
package telemetry
