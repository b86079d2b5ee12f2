// Package metrics holds the Prometheus collectors for upstream fetches and
// browser sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fishfacts"

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is a private registry plus the collectors registered on it.
// A private registry keeps tests independent of the global default.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal     *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	recordsFetched prometheus.Gauge
	sessionsActive prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_total",
			Help:      "Upstream species fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Latency of upstream species fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		recordsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_records_last_fetch",
			Help:      "Number of records returned by the most recent successful fetch.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Browser sessions currently held in memory.",
		}),
	}

	m.registry.MustRegister(m.fetchTotal, m.fetchDuration, m.recordsFetched, m.sessionsActive)
	return m
}

// ObserveFetch records one upstream fetch. records is ignored on failure.
func (m *Metrics) ObserveFetch(d time.Duration, records int, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.fetchTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.fetchTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.recordsFetched.Set(float64(records))
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
