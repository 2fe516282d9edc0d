// Package server provides the HTTP surface of orbit: mode selection, the
// live pose feed, the camera preview stream and recorded sessions.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/log"
	"github.com/ayusman/orbit/internal/server/api"
	"github.com/ayusman/orbit/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App     // nil serves only health and static files
	Store     *store.Store // nil disables the session endpoints
}

// Server is the HTTP server for orbit.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *PoseHub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.hub = NewPoseHub(a.Poses())

		s.mux.Handle("/api/mode", api.NewModeHandler(a))
		s.mux.Handle("/api/enabled", api.NewEnabledHandler(a))
		s.mux.HandleFunc("/api/pose", s.handlePose)
		s.mux.HandleFunc("/api/stats", s.handleStats)
		s.mux.Handle("/api/pose/ws", s.hub)
		s.mux.Handle("/api/stream", NewStreamHandler(a.Frames()))
		s.mux.Handle("/api/recording", api.NewRecordingHandler(a))
	}

	if s.config.Store != nil {
		var rec api.Recorder
		if s.config.App != nil {
			rec = s.config.App
		}
		sessions := api.NewSessionHandler(s.config.Store, rec)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket pose hub, or nil when no app is configured.
func (s *Server) Hub() *PoseHub {
	return s.hub
}

// Run broadcasts poses to websocket clients until ctx ends.
func (s *Server) Run(ctx context.Context) {
	if s.hub == nil {
		<-ctx.Done()
		return
	}
	s.hub.Run(ctx)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", "error", err)
		}
	}()

	log.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type poseResponse struct {
	Pose  control.Pose `json:"pose"`
	Ready bool         `json:"ready"` // false until the first tick
	Mode  int          `json:"mode"`
	Name  string       `json:"name"`
}

// handlePose reports the latest pose without consuming the slot.
func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pose, ok := s.config.App.Poses().Latest()
	if !ok {
		pose = control.Pose{Scale: 1}
	}
	mode := s.config.App.Mode()
	writeJSON(w, http.StatusOK, poseResponse{Pose: pose, Ready: ok, Mode: int(mode), Name: mode.String()})
}

type statsResponse struct {
	control.Stats
	Dropped    uint64 `json:"dropped_poses"`
	Clients    int    `json:"ws_clients"`
	Recording  bool   `json:"recording"`
	Enabled    bool   `json:"enabled"`
	StreamSubs int    `json:"stream_subscribers"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	a := s.config.App
	_, recording := a.Recording()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:      a.Stats(),
		Dropped:    a.Poses().Dropped(),
		Clients:    s.hub.Clients(),
		Recording:  recording,
		Enabled:    a.IsEnabled(),
		StreamSubs: a.Frames().Subscribers(),
	})
}
