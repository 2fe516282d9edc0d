package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

// Recorder controls recording and replays recorded sessions.
type Recorder interface {
	StartRecording(name string) (*store.Session, error)
	StopRecording() (*store.Session, error)
	Recording() (*store.Session, bool)
	Replay(id string, mode tracking.Mode) (*app.ReplayResult, error)
}

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store    *store.Store
	recorder Recorder // nil disables replay
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s *store.Store, rec Recorder) *SessionHandler {
	return &SessionHandler{store: s, recorder: rec}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/replay.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	if id, ok := strings.CutSuffix(path, "/replay"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.replay(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, path)
	case http.MethodDelete:
		h.delete(w, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) delete(w http.ResponseWriter, id string) {
	if h.recorder != nil {
		if active, ok := h.recorder.Recording(); ok && active.ID == id {
			writeError(w, http.StatusConflict, "session is being recorded")
			return
		}
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// replay handles POST /api/sessions/{id}/replay?mode=N. Without a mode the
// modes recorded with the session are followed.
func (h *SessionHandler) replay(w http.ResponseWriter, r *http.Request, id string) {
	if h.recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "replay not available")
		return
	}

	var mode tracking.Mode
	if q := r.URL.Query().Get("mode"); q != "" {
		m, ok := tracking.ParseMode(q)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}
		mode = m
	}

	res, err := h.recorder.Replay(id, mode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RecordingHandler serves /api/recording: GET reports the active recording,
// POST starts one, DELETE stops it.
type RecordingHandler struct {
	recorder Recorder
}

// NewRecordingHandler creates a new RecordingHandler.
func NewRecordingHandler(rec Recorder) *RecordingHandler {
	return &RecordingHandler{recorder: rec}
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sess, ok := h.recorder.Recording()
		if !ok {
			writeError(w, http.StatusNotFound, "not recording")
			return
		}
		writeJSON(w, http.StatusOK, sess)

	case http.MethodPost:
		var req startRecordingRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		sess, err := h.recorder.StartRecording(req.Name)
		switch {
		case errors.Is(err, app.ErrAlreadyRecording):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrNoStore):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to start recording")
		default:
			writeJSON(w, http.StatusCreated, sess)
		}

	case http.MethodDelete:
		sess, err := h.recorder.StopRecording()
		switch {
		case errors.Is(err, app.ErrNotRecording):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to stop recording")
		default:
			writeJSON(w, http.StatusOK, sess)
		}

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
