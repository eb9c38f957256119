package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the plan arena.
type Metrics struct {
	config MetricsConfig

	// Trial metrics
	trialsStarted   *prometheus.CounterVec
	trialsCompleted *prometheus.CounterVec
	trialDuration   *prometheus.HistogramVec
	trialWorkUnits  *prometheus.HistogramVec

	// Candidate metrics
	candidateFailures *prometheus.CounterVec
	candidateYields   prometheus.Counter

	// Cache metrics
	cacheCommits   *prometheus.CounterVec
	cacheSkips     *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter

	// Dispatch metrics
	backupSwitches prometheus.Counter
	resultsEmitted prometheus.Counter

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// System metrics
	activeTrials prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Trial metrics
		trialsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_started_total",
				Help:      "Total number of plan trials started",
			},
			[]string{"caching_mode"},
		),
		trialsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_completed_total",
				Help:      "Total number of plan trials completed",
			},
			[]string{"outcome"},
		),
		trialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_duration_seconds",
				Help:      "Duration of plan trials in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),
		trialWorkUnits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_work_units",
				Help:      "Total work units consumed per trial across all candidates",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"outcome"},
		),

		// Candidate metrics
		candidateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_failures_total",
				Help:      "Total number of candidate plan failures",
			},
			[]string{"phase"},
		),
		candidateYields: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_yields_total",
				Help:      "Total number of yield suspensions honored during trials",
			},
		),

		// Cache metrics
		cacheCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_commits_total",
				Help:      "Total number of ranking decisions committed to the plan cache",
			},
			[]string{"caching_mode"},
		),
		cacheSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_skips_total",
				Help:      "Total number of cache commits skipped, by reason",
			},
			[]string{"reason"},
		),
		cacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of plan cache evictions, by reason",
			},
			[]string{"reason"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of plan cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of plan cache misses",
			},
		),

		// Dispatch metrics
		backupSwitches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_switches_total",
				Help:      "Total number of failovers from a winner to its backup plan",
			},
		),
		resultsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_emitted_total",
				Help:      "Total number of results emitted after winner selection",
			},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		// System metrics
		activeTrials: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_trials",
				Help:      "Current number of in-flight plan trials",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.trialsStarted,
		m.trialsCompleted,
		m.trialDuration,
		m.trialWorkUnits,
		m.candidateFailures,
		m.candidateYields,
		m.cacheCommits,
		m.cacheSkips,
		m.cacheEvictions,
		m.cacheHits,
		m.cacheMisses,
		m.backupSwitches,
		m.resultsEmitted,
		m.errorsByClass,
		m.errorsByCode,
		m.activeTrials,
	)

	return m, nil
}

// Trial Metrics

// RecordTrialStarted increments the counter for started trials.
func (m *Metrics) RecordTrialStarted(cachingMode string) {
	if m.trialsStarted == nil {
		return
	}
	m.trialsStarted.WithLabelValues(cachingMode).Inc()
	m.activeTrials.Inc()
}

// RecordTrialCompleted records a finished trial with its outcome, duration, and
// total work units consumed.
func (m *Metrics) RecordTrialCompleted(outcome string, duration time.Duration, workUnits int) {
	if m.trialsCompleted == nil {
		return
	}
	m.trialsCompleted.WithLabelValues(outcome).Inc()
	m.trialDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.trialWorkUnits.WithLabelValues(outcome).Observe(float64(workUnits))
	m.activeTrials.Dec()
}

// Candidate Metrics

// RecordCandidateFailure records a candidate plan failure in the given phase
// (trial or dispatch).
func (m *Metrics) RecordCandidateFailure(phase string) {
	if m.candidateFailures == nil {
		return
	}
	m.candidateFailures.WithLabelValues(phase).Inc()
}

// RecordYield records a yield suspension honored during a trial.
func (m *Metrics) RecordYield() {
	if m.candidateYields == nil {
		return
	}
	m.candidateYields.Inc()
}

// Cache Metrics

// RecordCacheCommit records a ranking decision committed to the plan cache.
func (m *Metrics) RecordCacheCommit(cachingMode string) {
	if m.cacheCommits == nil {
		return
	}
	m.cacheCommits.WithLabelValues(cachingMode).Inc()
}

// RecordCacheSkip records a cache commit skipped for the given reason
// (tie, zero_results, mode_never, shape_excluded, incomplete_cache_data).
func (m *Metrics) RecordCacheSkip(reason string) {
	if m.cacheSkips == nil {
		return
	}
	m.cacheSkips.WithLabelValues(reason).Inc()
}

// RecordCacheEviction records a plan cache eviction for the given reason.
func (m *Metrics) RecordCacheEviction(reason string) {
	if m.cacheEvictions == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a plan cache lookup outcome.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m.cacheHits == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// Dispatch Metrics

// RecordBackupSwitch records a failover from a failed winner to its backup plan.
func (m *Metrics) RecordBackupSwitch() {
	if m.backupSwitches == nil {
		return
	}
	m.backupSwitches.Inc()
}

// RecordResultsEmitted adds to the count of results emitted after winner selection.
func (m *Metrics) RecordResultsEmitted(n int) {
	if m.resultsEmitted == nil {
		return
	}
	m.resultsEmitted.Add(float64(n))
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
