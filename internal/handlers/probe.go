package handlers

import (
	"net/http"
	"strconv"

	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
	"media-pipe/internal/pipeline"
	"media-pipe/internal/sink"
	"media-pipe/internal/source"
)

// Probe runs ffprobe over the uploaded stream and returns its JSON
// format and stream description. With streams=subtitles only the
// subtitle codec names are listed, one per line; an empty body means
// the input has no subtitle tracks.
func (h *Handlers) Probe(w http.ResponseWriter, r *http.Request) {
	if !h.acquireJob() {
		writeJSONError(w, "too many concurrent jobs", http.StatusServiceUnavailable)
		return
	}
	defer h.releaseJob()

	spec := h.builder.Probe()
	contentType := "application/json"
	if r.URL.Query().Get("streams") == "subtitles" {
		spec = h.builder.HasSubtitles()
		contentType = "text/plain; charset=utf-8"
	}

	desc := source.Descriptor{
		DeclaredSize: max64(r.ContentLength, 0),
		MaxSize:      h.config.MaxInputSize,
		ContentType:  r.Header.Get("Content-Type"),
	}
	src := source.NewReaderSource(desc, r.Body, source.DefaultChunkSize)
	snk := sink.NewBufferSink()

	_, err := pipeline.Run(r.Context(), src, spec, snk, pipeline.Options{
		Operation: "probe",
		Timeout:   h.config.RunTimeout,
	})
	if err != nil {
		kind := pipeline.KindOf(err)
		metrics.PipelineJobsTotal.WithLabelValues("probe", kind.String()).Inc()
		logging.Warn("Probe failed (%s): %v", kind, err)

		switch kind {
		case pipeline.ErrorSizeExceeded:
			writeJSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
		case pipeline.ErrorBrokenPipe, pipeline.ErrorTransformFailed:
			writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		case pipeline.ErrorTimeout:
			writeJSONError(w, err.Error(), http.StatusGatewayTimeout)
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	metrics.PipelineJobsTotal.WithLabelValues("probe", "success").Inc()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(snk.Len()))
	if _, err := w.Write(snk.Bytes()); err != nil {
		logging.Debug("failed to write probe response: %v", err)
	}
}
