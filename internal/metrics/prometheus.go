package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the Profile Sync Engine
type PrometheusMetrics struct {
	// Sync run metrics
	SyncRunsTotal       *prometheus.CounterVec
	SyncRunDuration     prometheus.Histogram
	ProfilesScannedTotal prometheus.Counter
	DriftDetectedTotal  prometheus.Counter
	ReimportsTotal      *prometheus.CounterVec

	// Remote push metrics
	RemotePushesTotal   *prometheus.CounterVec
	RemotePushDuration  prometheus.Histogram
	ProfilesAbandonedTotal prometheus.Counter
	LeaseContentionTotal   prometheus.Counter

	// Document host metrics
	DocumentRequestsTotal   *prometheus.CounterVec
	DocumentRequestDuration *prometheus.HistogramVec

	// Ledger metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// Profile population metrics
	ProfilesByStatus *prometheus.GaugeVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Sync run metrics
		SyncRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_runs_total",
				Help: "Total number of sync runs",
			},
			[]string{"trigger", "status"},
		),

		SyncRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profilesync_run_duration_seconds",
				Help:    "Time spent on complete sync runs",
				Buckets: prometheus.DefBuckets,
			},
		),

		ProfilesScannedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profilesync_profiles_scanned_total",
				Help: "Total number of profiles examined during sync runs",
			},
		),

		DriftDetectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profilesync_drift_detected_total",
				Help: "Total number of profiles whose company document was newer than the ledger",
			},
		),

		ReimportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_reimports_total",
				Help: "Total number of document reimports into the ledger",
			},
			[]string{"status"},
		),

		// Remote push metrics
		RemotePushesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_remote_pushes_total",
				Help: "Total number of pushes to the remote content store",
			},
			[]string{"status"},
		),

		RemotePushDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profilesync_remote_push_duration_seconds",
				Help:    "Duration of pushes to the remote content store",
				Buckets: prometheus.DefBuckets,
			},
		),

		ProfilesAbandonedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profilesync_profiles_abandoned_total",
				Help: "Total number of profiles moved to the abandoned state after repeated push failures",
			},
		),

		LeaseContentionTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profilesync_lease_contention_total",
				Help: "Total number of sync attempts skipped because another worker held the profile lease",
			},
		),

		// Document host metrics
		DocumentRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_document_requests_total",
				Help: "Total number of requests to the per-company document host",
			},
			[]string{"operation", "status"},
		),

		DocumentRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profilesync_document_request_duration_seconds",
				Help:    "Duration of requests to the per-company document host",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Ledger metrics
		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_database_operations_total",
				Help: "Total number of ledger database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profilesync_database_operation_duration_seconds",
				Help:    "Duration of ledger database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		// Profile population metrics
		ProfilesByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "profilesync_profiles",
				Help: "Number of profiles in the ledger by sync status",
			},
			[]string{"status"},
		),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilesync_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profilesync_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "profilesync_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "profilesync_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "profilesync_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "profilesync_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordSyncRun records a completed sync run
func (m *PrometheusMetrics) RecordSyncRun(trigger, status string, duration time.Duration) {
	m.SyncRunsTotal.WithLabelValues(trigger, status).Inc()
	m.SyncRunDuration.Observe(duration.Seconds())
}

// RecordProfileScanned records a profile examined during a sync run
func (m *PrometheusMetrics) RecordProfileScanned() {
	m.ProfilesScannedTotal.Inc()
}

// RecordDriftDetected records a profile whose document drifted ahead of the ledger
func (m *PrometheusMetrics) RecordDriftDetected() {
	m.DriftDetectedTotal.Inc()
}

// RecordReimport records a document reimport
func (m *PrometheusMetrics) RecordReimport(status string) {
	m.ReimportsTotal.WithLabelValues(status).Inc()
}

// RecordRemotePush records a push to the remote content store
func (m *PrometheusMetrics) RecordRemotePush(status string, duration time.Duration) {
	m.RemotePushesTotal.WithLabelValues(status).Inc()
	m.RemotePushDuration.Observe(duration.Seconds())
}

// RecordProfileAbandoned records a profile moved to the abandoned state
func (m *PrometheusMetrics) RecordProfileAbandoned() {
	m.ProfilesAbandonedTotal.Inc()
}

// RecordLeaseContention records a sync attempt skipped due to a held lease
func (m *PrometheusMetrics) RecordLeaseContention() {
	m.LeaseContentionTotal.Inc()
}

// RecordDocumentRequest records a request to the document host
func (m *PrometheusMetrics) RecordDocumentRequest(operation, status string, duration time.Duration) {
	m.DocumentRequestsTotal.WithLabelValues(operation, status).Inc()
	m.DocumentRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDatabaseOperation records a ledger database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateProfilesByStatus updates the per-status profile population gauge
func (m *PrometheusMetrics) UpdateProfilesByStatus(status string, count int64) {
	m.ProfilesByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
