package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every pipeline metric. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	clausesClassified    *prometheus.CounterVec
	classifierFallbacks  *prometheus.CounterVec
	riskSignalFallbacks  *prometheus.CounterVec
	unresolvedReferences prometheus.Counter
	modelLoads           *prometheus.CounterVec
	analysisDuration     prometheus.Histogram
	analysesTotal        *prometheus.CounterVec
	extractionErrors     *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager on its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clausewise",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector())
	}

	f := promauto.With(m.registry)

	m.clausesClassified = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "clauses_classified_total",
		Help:      "Clauses classified, by strategy and label.",
	}, []string{"source", "type"})

	m.classifierFallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "classifier_fallback_total",
		Help:      "Primary classification failures that fell back to rules.",
	}, []string{"reason"})

	m.riskSignalFallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "risk_signal_fallback_total",
		Help:      "Statistical risk signal failures that fell back to keyword tiers.",
	}, []string{"reason"})

	m.unresolvedReferences = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "unresolved_references_total",
		Help:      "Cross-references dropped because no target clause exists.",
	})

	m.modelLoads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "model_loads_total",
		Help:      "Lazy model strategy loads, by outcome.",
	}, []string{"outcome"})

	m.analysisDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end pipeline duration per document.",
		Buckets:   m.histogramBuckets,
	})

	m.analysesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "analyses_total",
		Help:      "Pipeline runs, by outcome.",
	}, []string{"outcome"})

	m.extractionErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "extraction_errors_total",
		Help:      "Text extraction failures, by document kind.",
	}, []string{"kind"})

	m.cacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "model_cache_lookups_total",
		Help:      "Model result cache lookups, by result.",
	}, []string{"result"})

	m.httpRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests.",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP API request latency.",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	return m
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RecordClassification(source, clauseType string) {
	if m == nil {
		return
	}
	m.clausesClassified.WithLabelValues(source, clauseType).Inc()
}

func (m *Manager) RecordClassifierFallback(reason string) {
	if m == nil {
		return
	}
	m.classifierFallbacks.WithLabelValues(reason).Inc()
}

func (m *Manager) RecordRiskSignalFallback(reason string) {
	if m == nil {
		return
	}
	m.riskSignalFallbacks.WithLabelValues(reason).Inc()
}

func (m *Manager) RecordUnresolvedReference() {
	if m == nil {
		return
	}
	m.unresolvedReferences.Inc()
}

func (m *Manager) RecordModelLoad(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.modelLoads.WithLabelValues(outcome).Inc()
}

func (m *Manager) RecordAnalysis(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.analysesTotal.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Manager) RecordExtractionError(kind string) {
	if m == nil {
		return
	}
	m.extractionErrors.WithLabelValues(kind).Inc()
}

func (m *Manager) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
