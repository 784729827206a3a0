package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"media-pipe/internal/logging"
	"media-pipe/internal/store"
)

// MaxAttachmentSize bounds side input uploads (subtitle or audio
// files). These are small relative to the media stream itself.
const MaxAttachmentSize = 100 << 20 // 100MB

// SessionResponse is the JSON view of a session.
type SessionResponse struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	Operation     string `json:"operation"`
	Param         string `json:"param,omitempty"`
	HasAttachment bool   `json:"hasAttachment"`
	ExpiresAt     string `json:"expiresAt"`
}

func sessionResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		State:         s.State,
		Operation:     s.Operation,
		Param:         s.Param,
		HasAttachment: s.AuxPath != "",
		ExpiresAt:     s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// CreateSession starts a two-step operation: the client uploads the
// side input next, then streams the media with the session id.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Operation string `json:"operation"`
		Param     string `json:"param"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Operation != OpAddAudio && req.Operation != OpEmbedSubtitles {
		writeJSONError(w,
			fmt.Sprintf("operation %q does not use sessions", req.Operation),
			http.StatusBadRequest)
		return
	}

	session, err := h.store.CreateSession(r.Context(), req.Operation, req.Param, h.config.SessionTTL)
	if err != nil {
		logging.Error("failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, sessionResponse(session))
}

// UploadAttachment stores the session's side input file and advances
// the session to awaiting_input.
func (h *Handlers) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	path := filepath.Join(h.config.UploadDir, uuid.New().String()+attachmentExt(session.Operation))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		logging.Error("failed to create attachment file: %v", err)
		writeJSONError(w, "failed to store attachment", http.StatusInternalServerError)
		return
	}

	limited := http.MaxBytesReader(w, r.Body, MaxAttachmentSize)
	written, err := io.Copy(f, limited)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(path); rerr != nil {
			logging.Warn("failed to remove partial attachment %s: %v", path, rerr)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, "attachment too large", http.StatusRequestEntityTooLarge)
			return
		}
		logging.Error("failed to store attachment: %v", err)
		writeJSONError(w, "failed to store attachment", http.StatusInternalServerError)
		return
	}
	if written == 0 {
		if rerr := os.Remove(path); rerr != nil {
			logging.Warn("failed to remove empty attachment %s: %v", path, rerr)
		}
		writeJSONError(w, "attachment is empty", http.StatusBadRequest)
		return
	}

	session, err = h.store.AttachAuxInput(r.Context(), sessionID, path)
	if err != nil {
		if rerr := os.Remove(path); rerr != nil {
			logging.Warn("failed to remove orphaned attachment %s: %v", path, rerr)
		}
		writeSessionError(w, err)
		return
	}

	logging.Debug("Stored %d byte attachment for session %s", written, sessionID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sessionResponse(session))
}

// GetSession returns the current state of a session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sessionResponse(session))
}

// DeleteSession cancels a session and removes its stored attachment.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	h.consumeSession(r.Context(), session)
	writeJSONStatus(w, "deleted")
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeJSONError(w, "session not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		logging.Error("session operation failed: %v", err)
		writeJSONError(w, "session operation failed", http.StatusInternalServerError)
	}
}

func attachmentExt(operation string) string {
	switch operation {
	case OpEmbedSubtitles:
		return ".srt"
	case OpAddAudio:
		return ".audio"
	default:
		return ""
	}
}
