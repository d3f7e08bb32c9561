// Package metrics holds the gateway's Prometheus collectors on a
// dedicated registry, so /metrics serves only what the gateway itself
// registers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "llmguardian"

// Metrics owns the registry plus the collectors the pipeline writes
// directly. Components that keep their own tallies (cache stats, audit
// sink) are bridged in at wiring time via CounterFunc and GaugeFunc.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Detections      *prometheus.CounterVec
	ProviderRetries prometheus.Counter
	ProviderErrors  *prometheus.CounterVec
	TokensSaved     prometheus.Histogram
}

// New builds the registry and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completion requests by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pii_detections_total",
			Help:      "Sensitive values detected, by kind.",
		}, []string{"kind"}),
		ProviderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Provider attempts beyond the first.",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider call failures, by error kind.",
		}, []string{"kind"}),
		TokensSaved: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimizer_tokens_saved",
			Help:      "Estimated tokens saved per optimized prompt.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
	m.registry.MustRegister(
		m.Requests,
		m.StageDuration,
		m.Detections,
		m.ProviderRetries,
		m.ProviderErrors,
		m.TokensSaved,
	)
	return m
}

// Registry returns the gatherer backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one pipeline stage execution.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CounterFunc registers a counter that reads fn at scrape time. Used
// for components that already count with their own atomics.
func (m *Metrics) CounterFunc(name, help string, labels prometheus.Labels, fn func() int64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 { return float64(fn()) }))
}

// GaugeFunc registers a gauge that reads fn at scrape time, for live
// readings such as cache size.
func (m *Metrics) GaugeFunc(name, help string, labels prometheus.Labels, fn func() int64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 { return float64(fn()) }))
}
