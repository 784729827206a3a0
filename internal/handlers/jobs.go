package handlers

import (
	"net/http"
	"strconv"
	"time"

	"media-pipe/internal/logging"
	"media-pipe/internal/store"
)

// JobResponse is the JSON view of a recorded pipeline run.
type JobResponse struct {
	ID         int64  `json:"id"`
	Operation  string `json:"operation"`
	Status     string `json:"status"`
	BytesIn    int64  `json:"bytesIn"`
	BytesOut   int64  `json:"bytesOut"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"createdAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

func jobResponse(j store.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Operation:  j.Operation,
		Status:     j.Status,
		BytesIn:    j.BytesIn,
		BytesOut:   j.BytesOut,
		DurationMS: j.Duration.Milliseconds(),
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !j.FinishedAt.IsZero() {
		resp.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// ListJobs returns recent pipeline runs, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	jobs, err := h.store.RecentJobs(r.Context(), limit)
	if err != nil {
		logging.Error("failed to list jobs: %v", err)
		writeJSONError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, jobResponse(j))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}
