// Package telemetry collects client-side metrics for SDK calls. Attaching a
// *Metrics to a client is optional; a nil *Metrics is a no-op everywhere.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pollAttempts    prometheus.Counter
}

// New builds a Metrics set backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "parakeet_requests_total",
			Help: "API requests issued by the SDK, by operation and HTTP status.",
		}, []string{"operation", "code"}),
		requestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parakeet_request_duration_seconds",
			Help:    "API request latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		pollAttempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "parakeet_poll_attempts_total",
			Help: "Retrieve calls made by run polling loops.",
		}),
	}
}

// ObserveRequest records one completed API request. code 0 means the request
// never produced an HTTP response.
func (m *Metrics) ObserveRequest(operation string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObservePollAttempt records one polling retrieve.
func (m *Metrics) ObservePollAttempt() {
	if m == nil {
		return
	}
	m.pollAttempts.Inc()
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so callers can register their own
// collectors alongside the SDK's.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
