package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipe_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_pipeline_jobs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"operation", "status"},
	)

	PipelineJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipe_pipeline_job_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	PipelineJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipe_pipeline_jobs_in_progress",
			Help: "Number of pipeline runs currently in progress",
		},
	)

	PipelineBytesIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_pipeline_bytes_in_total",
			Help: "Total bytes fed into transform processes",
		},
		[]string{"operation"},
	)

	PipelineBytesOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_pipeline_bytes_out_total",
			Help: "Total bytes drained from transform processes",
		},
		[]string{"operation"},
	)
)

// Store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_store_queries_total",
			Help: "Total number of store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipe_store_query_duration_seconds",
			Help:    "Store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Session metrics
var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipe_active_sessions",
			Help: "Number of active transcode sessions",
		},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipe_sessions_expired_total",
			Help: "Total number of sessions removed by the expiry sweep",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipe_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_pipe_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
