package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

type fakeMode struct {
	mode    tracking.Mode
	enabled bool
}

func (f *fakeMode) Mode() tracking.Mode { return f.mode }

func (f *fakeMode) SetMode(m tracking.Mode) bool {
	if !m.Valid() {
		return false
	}
	f.mode = m
	return true
}

func (f *fakeMode) IsEnabled() bool { return f.enabled }

func (f *fakeMode) SetEnabled(enabled bool) { f.enabled = enabled }

type fakeRecorder struct {
	store    *store.Store
	active   *store.Session
	replayed tracking.Mode
}

func (f *fakeRecorder) StartRecording(name string) (*store.Session, error) {
	if f.active != nil {
		return nil, app.ErrAlreadyRecording
	}
	sess := &store.Session{Name: name, Mode: 2, FrameWidth: 640, FrameHeight: 480}
	if err := f.store.Sessions().Create(sess); err != nil {
		return nil, err
	}
	f.active = sess
	return sess, nil
}

func (f *fakeRecorder) StopRecording() (*store.Session, error) {
	if f.active == nil {
		return nil, app.ErrNotRecording
	}
	sess := f.active
	f.active = nil
	return sess, nil
}

func (f *fakeRecorder) Recording() (*store.Session, bool) {
	return f.active, f.active != nil
}

func (f *fakeRecorder) Replay(id string, mode tracking.Mode) (*app.ReplayResult, error) {
	sess, err := f.store.Sessions().Get(id)
	if err != nil {
		return nil, err
	}
	f.replayed = mode
	return &app.ReplayResult{Session: sess, Mode: mode, Poses: []control.Pose{{Scale: 1}}}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestModeHandler(t *testing.T) {
	ctrl := &fakeMode{mode: tracking.ModeSmoothed}
	h := NewModeHandler(ctrl)

	t.Run("get", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/mode", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp modeResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Mode != 2 || resp.Name != "smoothed" {
			t.Errorf("response = %+v, want mode 2 smoothed", resp)
		}
	})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMode tracking.Mode
	}{
		{"number", `{"mode": 3}`, http.StatusOK, tracking.ModeKalman},
		{"name", `{"mode": "raw"}`, http.StatusOK, tracking.ModeRaw},
		{"numeric string", `{"mode": "2"}`, http.StatusOK, tracking.ModeSmoothed},
		{"out of range ignored", `{"mode": 7}`, http.StatusBadRequest, tracking.ModeSmoothed},
		{"unknown name ignored", `{"mode": "turbo"}`, http.StatusBadRequest, tracking.ModeSmoothed},
		{"missing", `{}`, http.StatusBadRequest, tracking.ModeSmoothed},
		{"malformed", `{`, http.StatusBadRequest, tracking.ModeSmoothed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl.mode = tracking.ModeSmoothed
			rec := do(t, h, http.MethodPost, "/api/mode", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ctrl.mode != tt.wantMode {
				t.Errorf("mode = %v, want %v", ctrl.mode, tt.wantMode)
			}
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/api/mode", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestEnabledHandler(t *testing.T) {
	ctrl := &fakeMode{enabled: true}
	h := NewEnabledHandler(ctrl)

	rec := do(t, h, http.MethodPost, "/api/enabled", `{"enabled": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ctrl.enabled {
		t.Error("expected processing to be paused")
	}

	rec = do(t, h, http.MethodPost, "/api/enabled", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, h, http.MethodGet, "/api/enabled", "")
	var body struct {
		Enabled bool `json:"enabled"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Enabled {
		t.Error("GET should report paused")
	}
}

func TestSessionHandler(t *testing.T) {
	s := newTestStore(t)
	rec := &fakeRecorder{store: s}
	h := NewSessionHandler(s, rec)

	t.Run("empty list", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/sessions", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
		}
		if got := resp.Body.String(); got != "{\"sessions\":[]}\n" {
			t.Errorf("body = %q", got)
		}
	})

	sess := &store.Session{Name: "desk", Mode: 3, FrameWidth: 640, FrameHeight: 480}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("get", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/sessions/"+sess.ID, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
		}
		var got store.Session
		json.NewDecoder(resp.Body).Decode(&got)
		if got.ID != sess.ID || got.Name != "desk" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/sessions/missing", "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusNotFound)
		}
	})

	t.Run("replay with mode", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/replay?mode=kalman", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", resp.Code, http.StatusOK, resp.Body.String())
		}
		if rec.replayed != tracking.ModeKalman {
			t.Errorf("replayed mode = %v, want kalman", rec.replayed)
		}
	})

	t.Run("replay recorded modes", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/replay", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
		}
		if rec.replayed != 0 {
			t.Errorf("replayed mode = %v, want 0", rec.replayed)
		}
	})

	t.Run("replay bad mode", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/replay?mode=9", "")
		if resp.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusBadRequest)
		}
	})

	t.Run("replay missing", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/sessions/missing/replay", "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusNotFound)
		}
	})

	t.Run("delete active recording conflicts", func(t *testing.T) {
		active, _ := rec.StartRecording("live")
		defer rec.StopRecording()

		resp := do(t, h, http.MethodDelete, "/api/sessions/"+active.ID, "")
		if resp.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusConflict)
		}
	})

	t.Run("delete", func(t *testing.T) {
		resp := do(t, h, http.MethodDelete, "/api/sessions/"+sess.ID, "")
		if resp.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", resp.Code, http.StatusNoContent)
		}
		resp = do(t, h, http.MethodDelete, "/api/sessions/"+sess.ID, "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want %d", resp.Code, http.StatusNotFound)
		}
	})

	t.Run("collection rejects post", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/sessions", "")
		if resp.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestSessionHandler_NoRecorder(t *testing.T) {
	s := newTestStore(t)
	h := NewSessionHandler(s, nil)

	resp := do(t, h, http.MethodPost, "/api/sessions/any/replay", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.Code, http.StatusServiceUnavailable)
	}
}

func TestRecordingHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewRecordingHandler(&fakeRecorder{store: s})

	if resp := do(t, h, http.MethodGet, "/api/recording", ""); resp.Code != http.StatusNotFound {
		t.Errorf("GET idle status = %d, want %d", resp.Code, http.StatusNotFound)
	}

	resp := do(t, h, http.MethodPost, "/api/recording", `{"name": "take 1"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.Code, http.StatusCreated)
	}
	var started store.Session
	json.NewDecoder(resp.Body).Decode(&started)
	if started.Name != "take 1" || started.ID == "" {
		t.Errorf("started = %+v", started)
	}

	if resp := do(t, h, http.MethodPost, "/api/recording", ""); resp.Code != http.StatusConflict {
		t.Errorf("second POST status = %d, want %d", resp.Code, http.StatusConflict)
	}

	if resp := do(t, h, http.MethodGet, "/api/recording", ""); resp.Code != http.StatusOK {
		t.Errorf("GET active status = %d, want %d", resp.Code, http.StatusOK)
	}

	if resp := do(t, h, http.MethodDelete, "/api/recording", ""); resp.Code != http.StatusOK {
		t.Errorf("DELETE status = %d, want %d", resp.Code, http.StatusOK)
	}
	if resp := do(t, h, http.MethodDelete, "/api/recording", ""); resp.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want %d", resp.Code, http.StatusNotFound)
	}
}

func TestParseModeValue(t *testing.T) {
	tests := []struct {
		raw    string
		want   tracking.Mode
		wantOK bool
	}{
		{`1`, tracking.ModeRaw, true},
		{`"kalman"`, tracking.ModeKalman, true},
		{`"3"`, tracking.ModeKalman, true},
		{`0`, 0, false},
		{`true`, 0, false},
		{``, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseModeValue(json.RawMessage(tt.raw))
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("parseModeValue(%s) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
