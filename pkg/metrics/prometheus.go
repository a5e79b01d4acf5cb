// Package metrics provides Prometheus metrics for the tally review service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the review service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Review core
	batchesLoaded      prometheus.Counter
	recordsLoaded      prometheus.Counter
	validationFailures *prometheus.CounterVec
	edits              *prometheus.CounterVec
	versionConflicts   prometheus.Counter
	approvals          prometheus.Counter
	sessions           prometheus.Gauge

	// Analysis pipeline
	pipelineLatency prometheus.Histogram
	pipelineErrors  prometheus.Counter
	jobsDuplicate   prometheus.Counter

	// Job queue and workers
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError *prometheus.CounterVec
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	workerErrors      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "review",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.batchesLoaded = m.counter("batches_loaded_total", "Total number of session batches loaded")
	m.recordsLoaded = m.counter("records_loaded_total", "Total number of participation records loaded")
	m.validationFailures = m.counterVec("validation_failures_total", "Rejected inputs by stage", "stage")
	m.edits = m.counterVec("edit_events_total", "Edit state machine events by kind", "kind")
	m.versionConflicts = m.counter("version_conflicts_total", "Commits rejected because the record changed underneath")
	m.approvals = m.counter("approvals_total", "Records approved through approve-all")
	m.sessions = m.gauge("sessions", "Number of sessions currently loaded")

	m.pipelineLatency = m.histogram("pipeline_fetch_latency_milliseconds",
		"Latency of analysis pipeline fetches in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
	m.pipelineErrors = m.counter("pipeline_errors_total", "Failed analysis pipeline fetches")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Analysis jobs skipped as already seen")

	m.queueSize = m.gauge("job_queue_size", "Current number of queued analysis jobs")
	m.queueCapacity = m.gauge("job_queue_capacity", "Capacity of the analysis job queue")
	m.queueEnqueued = m.counter("job_queue_enqueued_total", "Analysis jobs enqueued")
	m.queueDequeued = m.counter("job_queue_dequeued_total", "Analysis jobs dequeued")
	m.queueEnqueueError = m.counterVec("job_queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of analysis workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds",
		"End-to-end job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed in a worker")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordBatchLoaded counts a loaded batch and its records.
func RecordBatchLoaded(records int) {
	globalManager.batchesLoaded.Inc()
	globalManager.recordsLoaded.Add(float64(records))
}

// RecordValidationFailure counts a rejected input at stage.
func RecordValidationFailure(stage string) {
	globalManager.validationFailures.WithLabelValues(stage).Inc()
}

// RecordEdit counts an edit state machine event.
func RecordEdit(kind string) error {
	switch kind {
	case "began", "updated", "committed", "cancelled", "rejected":
		globalManager.edits.WithLabelValues(kind).Inc()
		return nil
	default:
		return ErrUnknownEditKind
	}
}

// RecordVersionConflict counts a rejected compare-and-swap.
func RecordVersionConflict() {
	globalManager.versionConflicts.Inc()
}

// RecordApprovals counts records approved in bulk.
func RecordApprovals(n int) {
	globalManager.approvals.Add(float64(n))
}

// UpdateSessionCount sets the number of loaded sessions.
func UpdateSessionCount(n int) {
	globalManager.sessions.Set(float64(n))
}

// RecordPipelineFetch records one pipeline fetch latency.
func RecordPipelineFetch(latencyMs float64) {
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordPipelineError counts a failed fetch.
func RecordPipelineError() {
	globalManager.pipelineErrors.Inc()
}

// RecordJobDuplicate counts a job id seen before.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueError.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
