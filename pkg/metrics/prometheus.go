// Package metrics provides Prometheus metrics for the coinsum service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Frame pipeline
	framesProcessed     prometheus.Counter
	framesFailed        *prometheus.CounterVec
	detections          prometheus.Counter
	detectionsByLabel   *prometheus.CounterVec
	malformedDetections prometheus.Counter
	suppressed          prometheus.Counter
	frameValue          *prometheus.GaugeVec
	inferenceLatency    prometheus.Histogram
	postprocessLatency  prometheus.Histogram
	reinitializations   prometheus.Counter
	activeStreams       prometheus.Gauge

	// Frame queues
	queueSize          *prometheus.GaugeVec
	queueCapacity      prometheus.Gauge
	queueUtilization   *prometheus.GaugeVec
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coinsum",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.framesProcessed = m.counter("frames_processed_total", "Frames that produced a result")
	m.framesFailed = m.counterVec("frames_failed_total", "Frames aborted by a per-frame error", "kind")
	m.detections = m.counter("detections_total", "Detections emitted after suppression")
	m.detectionsByLabel = m.counterVec("detections_by_label_total", "Detections emitted per coin label", "label")
	m.malformedDetections = m.counter("malformed_detections_total", "Raw detections dropped as malformed")
	m.suppressed = m.counter("suppressed_candidates_total", "Candidates removed by non-max suppression")
	m.frameValue = m.gaugeVec("frame_total_value", "Total coin value of the last frame", "stream")
	m.inferenceLatency = m.histogram("inference_latency_milliseconds", "Model inference latency in milliseconds")
	m.postprocessLatency = m.histogram("postprocess_latency_milliseconds", "Filter, suppression, remap and aggregation latency in milliseconds")
	m.reinitializations = m.counter("model_reinitializations_total", "Model buffer reinitialisations caused by input shape changes")
	m.activeStreams = m.gauge("active_streams", "Streams with a running controller")

	m.queueSize = m.gaugeVec("queue_size", "Frames waiting in a stream queue", "stream")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of each stream queue")
	m.queueUtilization = m.gaugeVec("queue_utilization_ratio", "Queue size divided by capacity", "stream")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Frames accepted by stream queues")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Frames handed to stream controllers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Frames rejected by stream queues", "reason")

	m.systemMemoryUsage = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "memory_usage_bytes", Help: "Heap bytes allocated", ConstLabels: m.constLabels,
	})
	m.systemGoroutineCount = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "goroutines", Help: "Number of goroutines", ConstLabels: m.constLabels,
	})
	m.systemGCPauseTime = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "gc_pause_milliseconds", Help: "Average GC pause in milliseconds", ConstLabels: m.constLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "error_type")
}

// RecordFrameProcessed increments the processed frame counter.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordFrameFailed increments the failed frame counter for an error kind.
func RecordFrameFailed(kind string) {
	globalManager.framesFailed.WithLabelValues(kind).Inc()
}

// RecordDetection counts one emitted detection.
func RecordDetection(label string) {
	globalManager.detections.Inc()
	globalManager.detectionsByLabel.WithLabelValues(label).Inc()
}

// RecordMalformedDetections adds dropped malformed rows.
func RecordMalformedDetections(n int) {
	if n > 0 {
		globalManager.malformedDetections.Add(float64(n))
	}
}

// RecordSuppressed adds candidates removed by suppression.
func RecordSuppressed(n int) {
	if n > 0 {
		globalManager.suppressed.Add(float64(n))
	}
}

// UpdateFrameValue sets the last total value observed on a stream.
func UpdateFrameValue(stream string, value int) {
	globalManager.frameValue.WithLabelValues(stream).Set(float64(value))
}

// RecordInferenceLatency observes model latency in milliseconds.
func RecordInferenceLatency(ms float64) {
	globalManager.inferenceLatency.Observe(ms)
}

// RecordPostprocessLatency observes post-processing latency in milliseconds.
func RecordPostprocessLatency(ms float64) {
	globalManager.postprocessLatency.Observe(ms)
}

// RecordReinitialization counts a model buffer reinitialisation.
func RecordReinitialization() {
	globalManager.reinitializations.Inc()
}

// UpdateActiveStreams sets the number of running stream controllers.
func UpdateActiveStreams(n int) {
	globalManager.activeStreams.Set(float64(n))
}

// UpdateQueueSize sets the backlog of a stream queue and its utilization.
func UpdateQueueSize(stream string, size, capacity int) {
	globalManager.queueSize.WithLabelValues(stream).Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.WithLabelValues(stream).Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the per-stream queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted frame.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue counts a frame handed to a controller.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError counts a rejected frame.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// ForgetStream drops per-stream series once a stream terminates.
func ForgetStream(stream string) {
	globalManager.frameValue.DeleteLabelValues(stream)
	globalManager.queueSize.DeleteLabelValues(stream)
	globalManager.queueUtilization.DeleteLabelValues(stream)
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseTime.Set(ms)
}

// RecordHTTPRequest records one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
