package handlers

import (
	"net/http"
	"strconv"

	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
	"media-pipe/internal/pipeline"
	"media-pipe/internal/preview"
	"media-pipe/internal/source"
)

// Preview extracts the first frame of the uploaded stream and returns
// it as a bounded JPEG. Unlike Transcode the whole result is buffered,
// so errors always surface with a proper status code.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.acquireJob() {
		writeJSONError(w, "too many concurrent jobs", http.StatusServiceUnavailable)
		return
	}
	defer h.releaseJob()

	opts := preview.Options{}
	q := r.URL.Query()
	if v := q.Get("width"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxWidth = n
		}
	}
	if v := q.Get("height"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxHeight = n
		}
	}

	desc := source.Descriptor{
		DeclaredSize: max64(r.ContentLength, 0),
		MaxSize:      h.config.MaxInputSize,
		ContentType:  r.Header.Get("Content-Type"),
	}
	src := source.NewReaderSource(desc, r.Body, source.DefaultChunkSize)

	img, err := preview.Generate(r.Context(), h.builder, src, opts)
	if err != nil {
		kind := pipeline.KindOf(err)
		metrics.PipelineJobsTotal.WithLabelValues("preview", kind.String()).Inc()
		logging.Warn("Preview failed (%s): %v", kind, err)

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

	metrics.PipelineJobsTotal.WithLabelValues("preview", "success").Inc()
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	if _, err := w.Write(img); err != nil {
		logging.Debug("failed to write preview response: %v", err)
	}
}
