package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	operations := []string{"encode", "extract_audio", "add_audio", "extract_subtitles", "embed_subtitles", "preview", "probe"}
	statuses := []string{"success", "size_exceeded", "spawn_error", "source_error",
		"broken_pipe", "transform_failed", "sink_error", "timeout"}

	for _, op := range operations {
		for _, st := range statuses {
			PipelineJobsTotal.WithLabelValues(op, st)
		}
		PipelineJobDuration.WithLabelValues(op)
		PipelineBytesIn.WithLabelValues(op)
		PipelineBytesOut.WithLabelValues(op)
	}

	for _, op := range []string{"initialize_schema", "create_session", "get_session",
		"update_session", "delete_session", "clean_expired_sessions",
		"create_job", "complete_job", "recent_jobs"} {
		StoreQueryTotal.WithLabelValues(op, "success")
		StoreQueryTotal.WithLabelValues(op, "error")
		StoreQueryDuration.WithLabelValues(op)
	}

	for _, st := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(st)
	}
}
