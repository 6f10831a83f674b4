package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the bridge. Each instance owns
// its registry so servers in the same process do not collide.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	NodeExecutions   *prometheus.CounterVec
	registry         *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3connector_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3connector_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		NodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3connector_node_executions_total",
				Help: "Node executions by class and outcome",
			},
			[]string{"class", "outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(m.RequestCounter)
	registry.MustRegister(m.LatencyHistogram)
	registry.MustRegister(m.NodeExecutions)

	return m
}

func (m *Metrics) IncrementRequest(method, route string, status int) {
	m.RequestCounter.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
}

func (m *Metrics) RecordLatency(method, route string, seconds float64) {
	m.LatencyHistogram.WithLabelValues(method, route).Observe(seconds)
}

// RecordExecution counts one node run; outcome is "success" or an error kind.
func (m *Metrics) RecordExecution(class, outcome string) {
	m.NodeExecutions.WithLabelValues(class, outcome).Inc()
}

// Handler returns the Prometheus metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
