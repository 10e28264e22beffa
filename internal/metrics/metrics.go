// Package metrics exposes fetch outcomes as Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tba"

// Metrics owns a private registry so tests and processes never collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry
	fetches  *prometheus.CounterVec
	requests *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Fetches by cache outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_requests_total",
			Help:      "Mirror requests by response status.",
		}, []string{"status"}),
	}
	registry.MustRegister(m.fetches, m.requests)
	return m
}

// Observe implements tba.Recorder.
func (m *Metrics) Observe(outcome string) {
	m.fetches.WithLabelValues(outcome).Inc()
}

// Served counts one mirror response.
func (m *Metrics) Served(status string) {
	m.requests.WithLabelValues(status).Inc()
}

// Fetches returns the outcome counter, for tests.
func (m *Metrics) Fetches() *prometheus.CounterVec {
	return m.fetches
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
