// Package metrics provides Prometheus metrics for outbound AI provider calls.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AIMetrics contains Prometheus metrics for AI provider operations
type AIMetrics struct {
	registry *prometheus.Registry

	providerRequestsTotal *prometheus.CounterVec
	providerDuration      *prometheus.HistogramVec
	fallbacksTotal        *prometheus.CounterVec
}

// NewAIMetrics creates and registers AI provider metrics on registry.
func NewAIMetrics(registry *prometheus.Registry) (*AIMetrics, error) {
	m := &AIMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AIMetrics) initMetrics() {
	m.providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_provider_requests_total",
			Help: "Total number of requests sent to AI providers",
		},
		[]string{"provider", "task", "status_code"}, // status_code 0: transport failure
	)

	m.providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ai_provider_request_duration_seconds",
			Help: "Time taken by AI provider requests",
			// 100ms to ~100s
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11),
		},
		[]string{"provider", "task"},
	)

	m.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Total number of AI results replaced by a local fallback value",
		},
		[]string{"task"},
	)
}

// Describe implements the Collector interface
func (m *AIMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.providerRequestsTotal.Describe(ch)
	m.providerDuration.Describe(ch)
	m.fallbacksTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *AIMetrics) Collect(ch chan<- prometheus.Metric) {
	m.providerRequestsTotal.Collect(ch)
	m.providerDuration.Collect(ch)
	m.fallbacksTotal.Collect(ch)
}

// RecordRequest records one provider round trip. A nil receiver is a no-op.
func (m *AIMetrics) RecordRequest(provider, task string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.providerRequestsTotal.WithLabelValues(provider, task, strconv.Itoa(status)).Inc()
	m.providerDuration.WithLabelValues(provider, task).Observe(seconds)
}

// RecordFallback records that a task answered with its local fallback.
func (m *AIMetrics) RecordFallback(task string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(task).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *AIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
