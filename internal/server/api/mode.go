package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/orbit/internal/tracking"
)

// ModeController selects the tracking mode.
type ModeController interface {
	Mode() tracking.Mode
	SetMode(m tracking.Mode) bool
}

// ModeHandler serves GET and POST /api/mode.
type ModeHandler struct {
	ctrl ModeController
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(ctrl ModeController) *ModeHandler {
	return &ModeHandler{ctrl: ctrl}
}

type modeRequest struct {
	Mode json.RawMessage `json:"mode"`
}

type modeResponse struct {
	Mode int    `json:"mode"`
	Name string `json:"name"`
}

func newModeResponse(m tracking.Mode) modeResponse {
	return modeResponse{Mode: int(m), Name: m.String()}
}

// ServeHTTP reports the mode on GET. On POST it selects the mode named in
// the body ({"mode": 3} or {"mode": "kalman"}); an unknown mode leaves the
// selection unchanged and answers 400.
func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newModeResponse(h.ctrl.Mode()))
	case http.MethodPost:
		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		m, ok := parseModeValue(req.Mode)
		if !ok || !h.ctrl.SetMode(m) {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}
		writeJSON(w, http.StatusOK, newModeResponse(m))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Toggle pauses and resumes processing.
type Toggle interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// EnabledHandler serves GET and POST /api/enabled.
type EnabledHandler struct {
	toggle Toggle
}

// NewEnabledHandler creates a new EnabledHandler.
func NewEnabledHandler(t Toggle) *EnabledHandler {
	return &EnabledHandler{toggle: t}
}

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

func (h *EnabledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req enabledBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.toggle.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := h.toggle.IsEnabled()
	writeJSON(w, http.StatusOK, enabledBody{Enabled: &enabled})
}
