// Package metrics exposes Prometheus instruments for backend calls and
// login flow transitions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry    *prometheus.Registry
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	visitors    prometheus.Gauge
}

// New registers all portal instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "backend_calls_total",
			Help:      "Backend RPC calls by action and outcome.",
		}, []string{"action", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "backend_call_seconds",
			Help:      "Backend RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "flow_transitions_total",
			Help:      "Login flow stage changes.",
		}, []string{"from", "to"}),
		visitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "active_visitors",
			Help:      "Visitors with a live controller.",
		}),
	}
	reg.MustRegister(
		m.rpcCalls,
		m.rpcDuration,
		m.transitions,
		m.visitors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRPC matches backend.Observer.
func (m *Metrics) ObserveRPC(action, outcome string, elapsed time.Duration) {
	m.rpcCalls.WithLabelValues(action, outcome).Inc()
	m.rpcDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveTransition counts a stage change.
func (m *Metrics) ObserveTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// SetVisitors records the number of live controllers.
func (m *Metrics) SetVisitors(n int) {
	m.visitors.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
