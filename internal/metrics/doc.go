// Package metrics provides Prometheus instrumentation for the
// media-pipe service. All metrics are prefixed with "media_pipe_" to
// avoid naming collisions with other applications.
//
// Metrics are declared with promauto so registration happens at import
// time; InitializeMetrics pre-populates the expected label combinations
// so every series is present from the first scrape.
package metrics
