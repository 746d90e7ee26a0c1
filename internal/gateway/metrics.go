package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tapline-dev/tapline/internal/intercept"
)

// Compile-time check that Metrics observes pipeline runs.
var _ intercept.Observer = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the pipeline. It uses a
// private registry so test binaries can hold several instances.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	blockedTotal  *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers all pipeline collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tapline",
				Name:      "pipeline_runs_total",
				Help:      "Total pipeline runs completed",
			},
			[]string{"direction"},
		),
		blockedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tapline",
				Name:      "pipeline_blocked_total",
				Help:      "Pipeline runs ended by an interceptor block",
			},
			[]string{"direction"},
		),
		handlerErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tapline",
				Name:      "handler_errors_total",
				Help:      "Interceptor invocations that faulted",
			},
			[]string{"direction", "interceptor"},
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tapline",
				Name:      "pipeline_run_duration_seconds",
				Help:      "Pipeline run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
	}
}

// RunCompleted implements intercept.Observer.
func (m *Metrics) RunCompleted(dir intercept.Direction, elapsed time.Duration, blocked bool) {
	m.runsTotal.WithLabelValues(string(dir)).Inc()
	m.runDuration.WithLabelValues(string(dir)).Observe(elapsed.Seconds())
	if blocked {
		m.blockedTotal.WithLabelValues(string(dir)).Inc()
	}
}

// HandlerFailed implements intercept.Observer.
func (m *Metrics) HandlerFailed(dir intercept.Direction, id string) {
	m.handlerErrors.WithLabelValues(string(dir), id).Inc()
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
