package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"media-pipe/internal/ffmpeg"
	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
	"media-pipe/internal/pipeline"
	"media-pipe/internal/sink"
	"media-pipe/internal/source"
	"media-pipe/internal/store"
	"media-pipe/internal/transform"
)

// Streaming operations accepted by the transcode endpoint.
const (
	OpEncode           = "encode"
	OpExtractAudio     = "extract_audio"
	OpExtractSubtitles = "extract_subtitles"
	OpAddAudio         = "add_audio"
	OpEmbedSubtitles   = "embed_subtitles"
)

var audioContentTypes = map[string]string{
	"mp3": "audio/mpeg",
	"ogg": "audio/ogg",
	"wav": "audio/wav",
}

// transcodePlan is everything needed to run one request's pipeline.
type transcodePlan struct {
	spec        transform.Spec
	contentType string
	// resolution is set for encode so the size estimate can use it.
	resolution string
	// session is non-nil for the two-step operations; it is consumed
	// (deleted, aux file removed) when the run succeeds.
	session *store.Session
}

// Transcode streams the request body through ffmpeg and streams the
// transformed output back. The response uses chunked encoding; a
// failure after the first output byte surfaces as a truncated body.
func (h *Handlers) Transcode(w http.ResponseWriter, r *http.Request) {
	operation := mux.Vars(r)["operation"]

	if !h.acquireJob() {
		writeJSONError(w, "too many concurrent jobs", http.StatusServiceUnavailable)
		return
	}
	defer h.releaseJob()

	plan, status, err := h.planTranscode(r, operation)
	if err != nil {
		writeJSONError(w, err.Error(), status)
		return
	}

	desc := source.Descriptor{
		DeclaredSize: max64(r.ContentLength, 0),
		MaxSize:      h.config.MaxInputSize,
		ContentType:  r.Header.Get("Content-Type"),
	}
	src := source.NewReaderSource(desc, r.Body, source.DefaultChunkSize)

	w.Header().Set("Content-Type", plan.contentType)
	snk := sink.NewWriterSink(w, sink.DefaultWriterConfig())

	jobID, jerr := h.store.CreateJob(r.Context(), operation)
	if jerr != nil {
		logging.Error("failed to record job for %s: %v", operation, jerr)
	}

	metrics.PipelineJobsInProgress.Inc()
	start := time.Now()

	result, runErr := pipeline.Run(r.Context(), src, plan.spec, snk, pipeline.Options{
		Operation:    operation,
		Timeout:      h.config.RunTimeout,
		EstimatedOut: ffmpeg.EstimateOutputSize(desc.DeclaredSize, operation, plan.resolution),
		Observer:     metrics.NewPipelineObserver(),
	})

	metrics.PipelineJobsInProgress.Dec()
	metrics.PipelineJobDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if runErr != nil {
		if plan.session != nil {
			h.releaseSession(plan.session)
		}
		h.finishTranscodeError(w, r, operation, jobID, src, runErr)
		return
	}

	metrics.PipelineJobsTotal.WithLabelValues(operation, "success").Inc()
	h.completeJob(jobID, "success", result.BytesIn, result.BytesOut, result.Duration, "")

	if plan.session != nil {
		h.consumeSession(r.Context(), plan.session)
	}

	logging.Info("Transcode %s complete: %d bytes in, %d bytes out in %v",
		operation, result.BytesIn, result.BytesOut, result.Duration)
}

// planTranscode resolves the operation and its parameters into a
// runnable plan. The returned status is the HTTP status for a non-nil
// error.
func (h *Handlers) planTranscode(r *http.Request, operation string) (*transcodePlan, int, error) {
	q := r.URL.Query()

	switch operation {
	case OpEncode:
		resolution := q.Get("resolution")
		if resolution == "" {
			resolution = "720p"
		}
		spec, err := h.builder.ResolutionEncode(resolution)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return &transcodePlan{spec: spec, contentType: "video/mp4", resolution: resolution}, 0, nil

	case OpExtractAudio:
		format := q.Get("format")
		if format == "" {
			format = "mp3"
		}
		spec, err := h.builder.AudioExtract(format, q.Get("bitrate"))
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return &transcodePlan{spec: spec, contentType: audioContentTypes[format]}, 0, nil

	case OpExtractSubtitles:
		track := 0
		if t := q.Get("track"); t != "" {
			parsed, err := strconv.Atoi(t)
			if err != nil {
				return nil, http.StatusBadRequest, fmt.Errorf("invalid track index %q", t)
			}
			track = parsed
		}
		spec, err := h.builder.SubtitleExtract(track)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return &transcodePlan{spec: spec, contentType: "application/x-subrip"}, 0, nil

	case OpAddAudio, OpEmbedSubtitles:
		return h.planSessionTranscode(r, operation)

	default:
		return nil, http.StatusNotFound, fmt.Errorf("unknown operation %q", operation)
	}
}

// planSessionTranscode resolves a two-step operation: the session must
// exist, belong to this operation, and already hold its side input.
func (h *Handlers) planSessionTranscode(r *http.Request, operation string) (*transcodePlan, int, error) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("%s requires a session parameter", operation)
	}

	session, err := h.store.MarkProcessing(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			return nil, http.StatusNotFound, err
		case errors.Is(err, store.ErrInvalidTransition):
			return nil, http.StatusConflict, err
		default:
			return nil, http.StatusInternalServerError, err
		}
	}
	if session.Operation != operation {
		return nil, http.StatusConflict,
			fmt.Errorf("session %s is for %s, not %s", sessionID, session.Operation, operation)
	}

	var spec transform.Spec
	switch operation {
	case OpAddAudio:
		spec, err = h.builder.AudioAdd(session.AuxPath, true)
	case OpEmbedSubtitles:
		spec, err = h.builder.SubtitleEmbed(session.AuxPath, session.Param)
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return &transcodePlan{spec: spec, contentType: "video/mp4", session: session}, 0, nil
}

// finishTranscodeError records the failure and, when no output byte has
// been streamed yet, maps the pipeline error kind onto an HTTP status.
// After the first byte the status line is already on the wire; the
// truncated chunked body is the only failure signal left.
func (h *Handlers) finishTranscodeError(w http.ResponseWriter, r *http.Request, operation string, jobID int64, src source.Source, runErr error) {
	kind := pipeline.KindOf(runErr)
	metrics.PipelineJobsTotal.WithLabelValues(operation, kind.String()).Inc()

	var pe *pipeline.Error
	partial := int64(0)
	errText := runErr.Error()
	if errors.As(runErr, &pe) {
		partial = pe.PartialBytesOut
		if pe.Stderr != "" {
			logging.Debug("Transcode %s stderr: %s", operation, pe.Stderr)
		}
	}

	h.completeJob(jobID, kind.String(), src.BytesRead(), partial, 0, errText)
	logging.Warn("Transcode %s failed (%s): %v", operation, kind, runErr)

	if partial > 0 {
		return
	}

	switch kind {
	case pipeline.ErrorSizeExceeded:
		writeJSONError(w, errText, http.StatusRequestEntityTooLarge)
	case pipeline.ErrorBrokenPipe, pipeline.ErrorTransformFailed:
		writeJSONError(w, errText, http.StatusUnprocessableEntity)
	case pipeline.ErrorTimeout:
		writeJSONError(w, errText, http.StatusGatewayTimeout)
	case pipeline.ErrorSource:
		writeJSONError(w, errText, http.StatusBadRequest)
	default:
		writeJSONError(w, errText, http.StatusInternalServerError)
	}
}

func (h *Handlers) completeJob(jobID int64, status string, bytesIn, bytesOut int64, duration time.Duration, errText string) {
	if jobID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.CompleteJob(ctx, jobID, status, bytesIn, bytesOut, duration, errText); err != nil {
		logging.Error("failed to complete job %d: %v", jobID, err)
	}
}

// releaseSession puts a failed two-step run's session back to
// awaiting_input so the client can retry without uploading the side
// input again. A fresh context is used because the request's may
// already be cancelled.
func (h *Handlers) releaseSession(session *store.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.store.ReleaseProcessing(ctx, session.ID); err != nil {
		logging.Warn("failed to release session %s after failed run: %v", session.ID, err)
	}
}

// consumeSession removes a finished session and its stored side input.
func (h *Handlers) consumeSession(ctx context.Context, session *store.Session) {
	if session.AuxPath != "" {
		if err := os.Remove(session.AuxPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove session file %s: %v", session.AuxPath, err)
		}
	}
	if err := h.store.DeleteSession(ctx, session.ID); err != nil {
		logging.Warn("failed to delete session %s: %v", session.ID, err)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
