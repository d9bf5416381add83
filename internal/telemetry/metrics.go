package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amgaina/CoreCutter/internal/config"
	"github.com/amgaina/CoreCutter/internal/engine"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides Prometheus metrics for optimization runs. A disabled
// instance accepts every call and records nothing.
type Metrics struct {
	config config.MetricsConfig

	optimizations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	patterns      prometheus.Histogram
	cores         prometheus.Histogram
	internal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics(cfg config.MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		optimizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimizations_total",
				Help:      "Total number of optimization requests by outcome and error kind",
			},
			[]string{"solver", "outcome", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "optimization_duration_seconds",
				Help:      "Duration of optimization requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"solver"},
		),
		patterns: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "patterns_enumerated",
				Help:      "Number of cutting patterns enumerated per request",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		cores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cores_required",
				Help:      "Number of master cores in returned plans",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		internal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "internal_errors_total",
				Help:      "Solver and consistency failures that indicate a defect or exhausted budget",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.optimizations,
		m.duration,
		m.patterns,
		m.cores,
		m.internal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Enabled reports whether metrics are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordOptimization records the outcome of one optimization.
func (m *Metrics) RecordOptimization(stats engine.Stats, cores int, err error) {
	if !m.Enabled() {
		return
	}

	outcome, kind := OutcomeSuccess, ""
	if err != nil {
		outcome = OutcomeFailure
		kind = string(engine.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
		if engine.IsInternalError(err) {
			m.internal.WithLabelValues(kind).Inc()
		}
	}

	m.optimizations.WithLabelValues(stats.Solver, outcome, kind).Inc()
	m.duration.WithLabelValues(stats.Solver).Observe(stats.Duration.Seconds())
	if stats.Patterns > 0 {
		m.patterns.Observe(float64(stats.Patterns))
	}
	if err == nil && cores > 0 {
		m.cores.Observe(float64(cores))
	}
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	})
}
