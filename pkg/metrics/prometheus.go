// Package metrics provides Prometheus metrics for the grader service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the grader service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction metrics
	predictions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	computationErrors  prometheus.Counter
	notReady           prometheus.Counter
	predictionLatency  prometheus.Histogram
	predictionScore    prometheus.Histogram

	// Model readiness
	modelLoaded   prometheus.Gauge
	modelFeatures prometheus.Gauge

	// Student records
	studentsTotal          prometheus.Gauge
	studentOperations      *prometheus.CounterVec
	repositoryQueryLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a
// fresh registry. Call it once at startup, before metrics are recorded
// from other goroutines; GetRegistry returns the new registry afterwards.
func Configure(opts ...Option) (err error) {
	registry := prometheus.NewRegistry()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidOptions, r)
		}
	}()

	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	globalManager, customRegistry = m, registry
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "grader",
		subsystem:        "",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Total number of successful predictions by letter grade"),
		[]string{"grade"},
	)
	m.validationFailures = auto.NewCounterVec(
		m.counterOpts("prediction_validation_failures_total", "Rejected prediction fields by field and reason"),
		[]string{"field", "reason"},
	)
	m.computationErrors = auto.NewCounter(
		m.counterOpts("prediction_computation_errors_total", "Predictions that failed inside the scaler or model"),
	)
	m.notReady = auto.NewCounter(
		m.counterOpts("prediction_not_ready_total", "Predictions requested while no model was loaded"),
	)
	m.predictionLatency = auto.NewHistogram(
		m.histogramOpts("prediction_latency_milliseconds", "Prediction latency in milliseconds", m.histogramBuckets),
	)
	m.predictionScore = auto.NewHistogram(
		m.histogramOpts("prediction_score", "Distribution of predicted scores", prometheus.LinearBuckets(0, 10, 11)),
	)

	m.modelLoaded = auto.NewGauge(
		m.gaugeOpts("model_loaded", "1 when a model is loaded and predictions are served"),
	)
	m.modelFeatures = auto.NewGauge(
		m.gaugeOpts("model_features", "Number of features the loaded model expects"),
	)

	m.studentsTotal = auto.NewGauge(
		m.gaugeOpts("students_total", "Number of stored student records"),
	)
	m.studentOperations = auto.NewCounterVec(
		m.counterOpts("student_operations_total", "Student record operations by operation and outcome"),
		[]string{"operation", "outcome"},
	)
	m.repositoryQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_query_latency_milliseconds", "Student repository query latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordPrediction counts a served prediction and observes its score.
func RecordPrediction(grade string, score float64) {
	globalManager.predictions.WithLabelValues(grade).Inc()
	globalManager.predictionScore.Observe(score)
}

// RecordValidationFailure counts a rejected field.
func RecordValidationFailure(field, reason string) {
	globalManager.validationFailures.WithLabelValues(field, reason).Inc()
}

// RecordComputationError increments the computation errors counter.
func RecordComputationError() {
	globalManager.computationErrors.Inc()
}

// RecordNotReady increments the not-ready counter.
func RecordNotReady() {
	globalManager.notReady.Inc()
}

// RecordPredictionLatency records prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// UpdateModelLoaded sets the readiness gauge and expected feature count.
func UpdateModelLoaded(loaded bool, features int) {
	v := 0.0
	if loaded {
		v = 1
	}
	globalManager.modelLoaded.Set(v)
	globalManager.modelFeatures.Set(float64(features))
}

// UpdateStudentsTotal sets the number of stored students.
func UpdateStudentsTotal(count int) {
	globalManager.studentsTotal.Set(float64(count))
}

// RecordStudentOperation counts a student operation outcome such as
// "ok", "not_found", "duplicate" or "invalid".
func RecordStudentOperation(operation, outcome string) {
	globalManager.studentOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
