// Package api provides the HTTP handlers for orbit's command and session surface.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayusman/orbit/internal/tracking"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// parseModeValue accepts a JSON number (1..3) or a JSON string naming a mode.
func parseModeValue(raw json.RawMessage) (tracking.Mode, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return tracking.ParseMode(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return tracking.ParseMode(strconv.Itoa(n))
	}
	return 0, false
}
