// Package metrics exposes Prometheus metrics for the registry's search and
// signature pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "criminal_registry"

// Candidate outcomes recorded per image scan
const (
	OutcomeMatched     = "matched"
	OutcomeNoMatch     = "no_match"
	OutcomeSkipped     = "skipped"
	OutcomeUnmatchable = "unmatchable"
)

// Manager owns every collector and the registry they are registered on.
type Manager struct {
	registry *prometheus.Registry

	searches          *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	candidates        *prometheus.CounterVec
	extractions       *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec
	embeddingCache    *prometheus.CounterVec
	recordsWritten    *prometheus.CounterVec
}

// NewManager creates a manager backed by its own registry.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		searches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by kind (text, image) and result (ok, invalid, error)",
		}, []string{"kind", "result"}),
		searchDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search latency by kind",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		candidates: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "candidates_total",
			Help:      "Image scan candidates by outcome",
		}, []string{"outcome"}),
		extractions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signature",
			Name:      "extractions_total",
			Help:      "Calls to the facial-analysis service by operation and result",
		}, []string{"operation", "result"}),
		extractionLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signature",
			Name:      "extraction_duration_seconds",
			Help:      "Facial-analysis call latency by operation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
		embeddingCache: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signature",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		recordsWritten: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "writes_total",
			Help:      "Record writes by operation",
		}, []string{"operation"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (used by tests to gather).
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) ObserveSearch(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(kind, result).Inc()
	m.searchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Manager) AddCandidates(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.candidates.WithLabelValues(outcome).Add(float64(n))
}

func (m *Manager) ObserveExtraction(operation string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !success {
		result = "failed"
	}
	m.extractions.WithLabelValues(operation, result).Inc()
	m.extractionLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Manager) IncEmbeddingCache(result string) {
	if m == nil {
		return
	}
	m.embeddingCache.WithLabelValues(result).Inc()
}

func (m *Manager) IncRecordWrite(operation string) {
	if m == nil {
		return
	}
	m.recordsWritten.WithLabelValues(operation).Inc()
}
