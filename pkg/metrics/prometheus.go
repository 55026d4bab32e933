// Package metrics provides Prometheus metrics for the voxmood front end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes recorded by RecordUpload.
const (
	UploadAccepted          = "accepted"
	UploadRejectedExtension = "rejected_extension"
	UploadRejectedSize      = "rejected_size"
	UploadIgnoredBusy       = "ignored_busy"
	UploadIgnoredResult     = "ignored_result"
)

// Analysis outcomes recorded by RecordAnalysis.
const (
	AnalysisSuccess      = "success"
	AnalysisNetworkError = "network_error"
	AnalysisServerError  = "server_error"
	AnalysisMalformed    = "malformed_response"
	AnalysisDispatch     = "dispatch_error"
	AnalysisOther        = "other_error"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	uploads          *prometheus.CounterVec
	analyses         *prometheus.CounterVec
	analysisLatency  prometheus.Histogram
	staleCompletions prometheus.Counter

	queueDepth     prometheus.Gauge
	queueCapacity  prometheus.Gauge
	workersBusy    prometheus.Gauge
	activeSessions prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "voxmood",
		subsystem:        "frontend",
		histogramBuckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "uploads_total",
		Help:      "Upload attempts by input source and gate outcome",
	}, []string{"source", "outcome"})

	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_total",
		Help:      "Remote analyses by outcome",
	}, []string{"outcome"})

	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_latency_milliseconds",
		Help:      "Round-trip latency of the prediction service in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.staleCompletions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stale_completions_total",
		Help:      "Analyses that finished after their session moved on",
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_depth",
		Help:      "Analysis jobs waiting for a worker",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of waiting analysis jobs",
	})

	m.workersBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workers_busy",
		Help:      "Workers currently waiting on the prediction service",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Browser sessions currently tracked",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component",
	}, []string{"component", "error_type"})
}

// RecordUpload counts one gate decision.
func (m *Manager) RecordUpload(source, outcome string) {
	m.uploads.WithLabelValues(source, outcome).Inc()
}

// RecordAnalysis counts a finished analysis and observes its latency.
func (m *Manager) RecordAnalysis(outcome string, latencyMs float64) {
	m.analyses.WithLabelValues(outcome).Inc()
	if latencyMs >= 0 {
		m.analysisLatency.Observe(latencyMs)
	}
}

// RecordUpload counts one gate decision on the global manager.
func RecordUpload(source, outcome string) {
	globalManager.RecordUpload(source, outcome)
}

// RecordAnalysis records an analysis outcome on the global manager.
// Pass a negative latency when no request was sent.
func RecordAnalysis(outcome string, latencyMs float64) {
	globalManager.RecordAnalysis(outcome, latencyMs)
}

// RecordStaleCompletion counts a discarded late response.
func RecordStaleCompletion() {
	globalManager.staleCompletions.Inc()
}

// UpdateQueueDepth sets the number of waiting jobs.
func UpdateQueueDepth(depth int) {
	globalManager.queueDepth.Set(float64(depth))
}

// UpdateQueueCapacity sets the queue bound.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// WorkerBusy marks a worker as waiting on the prediction service.
func WorkerBusy() {
	globalManager.workersBusy.Inc()
}

// WorkerIdle reverses WorkerBusy.
func WorkerIdle() {
	globalManager.workersBusy.Dec()
}

// UpdateActiveSessions sets the tracked session count.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordHTTPRequest records one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
