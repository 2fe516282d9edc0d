// Package app runs the orbit pipeline: camera frames go through hand
// detection and the control loop, and poses are handed to consumers.
package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/config"
	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/log"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

var (
	// ErrNoStore is returned by operations that need persistence when the
	// app runs without a store.
	ErrNoStore = errors.New("no store configured")
	// ErrAlreadyRecording is returned when a recording is already in progress.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned when no recording is in progress.
	ErrNotRecording = errors.New("not recording")
)

// Config holds the collaborators of the application. Only Settings is
// required; nil collaborators get their production defaults.
type Config struct {
	Settings *config.Config
	Store    *store.Store       // nil disables mode persistence and recording
	Camera   capture.Camera     // nil opens the configured device
	Detector detector.Detector  // nil starts the MediaPipe service, or the mock when unavailable

	// ForceMode, when valid, is the initial mode regardless of the mode
	// saved in the store, and replaces the saved one.
	ForceMode tracking.Mode
}

// App owns the pipeline and the state shared with its command surfaces.
type App struct {
	config   Config
	settings *config.Config
	camera   capture.Camera
	detector detector.Detector
	point    detector.ControlPoint
	slot     *control.PoseSlot
	frames   *capture.JPEGBuffer
	preview  *preview

	mu       sync.RWMutex
	loop     *control.Loop
	enabled  bool
	recorder *recorder
	cancel   context.CancelFunc
	done     chan struct{}

	stats atomic.Pointer[control.Stats]
}

// New creates a new App. The initial tracking mode is the one saved in the
// store, or the configured mode when nothing was saved.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}

	a := &App{
		config:   cfg,
		settings: cfg.Settings,
		camera:   cfg.Camera,
		detector: cfg.Detector,
		point:    cfg.Settings.ControlPoint(),
		slot:     control.NewPoseSlot(),
		frames:   capture.NewJPEGBuffer(),
		enabled:  true,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.Settings.CaptureConfig())
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(cfg.Settings.DetectorConfig()); err == nil {
			a.detector = mp
			log.Info("using MediaPipe hand detection")
		} else {
			log.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	mode := cfg.ForceMode
	if !mode.Valid() {
		mode = a.restoreMode(cfg.Settings.Mode())
	}

	w, h := a.camera.FrameSize()
	loop, err := a.newLoop(w, h, mode)
	if err != nil {
		return nil, err
	}
	a.loop = loop

	if cfg.ForceMode.Valid() {
		a.saveMode(mode)
	}

	return a, nil
}

func (a *App) newLoop(width, height int, mode tracking.Mode) (*control.Loop, error) {
	cc, err := a.settings.ControlConfig(width, height)
	if err != nil {
		return nil, err
	}
	cc.Mode = mode
	return control.NewLoop(cc)
}

// restoreMode returns the mode saved in the store, or fallback.
func (a *App) restoreMode(fallback tracking.Mode) tracking.Mode {
	if a.config.Store == nil {
		return fallback
	}

	v, err := a.config.Store.Settings().Get(store.SettingMode)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load saved mode", "error", err)
		}
		return fallback
	}

	m, ok := tracking.ParseMode(v)
	if !ok {
		log.Warn("ignoring invalid saved mode", "value", v)
		return fallback
	}
	log.Info("restored tracking mode", "mode", m)
	return m
}

// Start opens the camera and begins the pipeline. The pipeline stops when
// ctx is cancelled, Stop is called, or the preview window asks to quit.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	// The device may deliver a different size than requested.
	w, h := a.camera.FrameSize()
	if cc := a.loop.Config(); int(cc.FrameWidth) != w || int(cc.FrameHeight) != h {
		loop, err := a.newLoop(w, h, a.loop.Mode())
		if err != nil {
			a.camera.Close()
			return err
		}
		a.loop = loop
	}

	if a.settings.Store.Record {
		if err := a.startRecordingLocked(""); err != nil && !errors.Is(err, ErrNoStore) {
			log.Warn("recording not started", "error", err)
		}
	}

	if a.settings.UI.Preview {
		a.preview = newPreview("orbit")
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, cancel, a.done)

	log.Info("pipeline started", "mode", a.loop.Mode(), "fps", a.camera.FPS(), "width", w, "height", h)
	return nil
}

// Stop halts the pipeline, waits for the tick in progress, and releases the
// camera, the detector and any recording.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if _, err := a.StopRecording(); err != nil && !errors.Is(err, ErrNotRecording) {
		log.Error("failed to finish recording", "error", err)
	}

	if a.preview != nil {
		a.preview.Close()
		a.preview = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Error("error closing camera", "error", err)
	}

	if err := a.detector.Close(); err != nil {
		log.Error("error closing detector", "error", err)
	}

	log.Info("pipeline stopped")
}

// Done is closed when the pipeline goroutine exits. Before Start it is
// already closed.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return a.done
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		log.Info("tracking enabled changed", "enabled", enabled)
	}
	a.enabled = enabled
}

// IsEnabled returns whether frames are being processed.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetMode selects the tracking mode from any goroutine. The change lands on
// the next tick. Invalid modes are ignored and SetMode returns false.
func (a *App) SetMode(m tracking.Mode) bool {
	if !m.Valid() {
		return false
	}

	a.mu.RLock()
	loop := a.loop
	a.mu.RUnlock()

	prev := loop.Mode()
	loop.SetMode(m)

	a.saveMode(m)

	if prev != m {
		log.Info("tracking mode selected", "mode", m)
	}
	return true
}

func (a *App) saveMode(m tracking.Mode) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().Set(store.SettingMode, strconv.Itoa(int(m))); err != nil {
		log.Warn("failed to save mode", "mode", m, "error", err)
	}
}

// Mode returns the selected tracking mode.
func (a *App) Mode() tracking.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loop.Mode()
}

// Process runs one input through the control loop, hands the pose to the
// slot, and records the input when a recording is active. It must be called
// from one goroutine at a time; the pipeline is that goroutine while running.
func (a *App) Process(in control.Input) control.Pose {
	a.mu.RLock()
	loop, rec := a.loop, a.recorder
	pose := loop.Tick(in)
	if rec != nil {
		rec.Add(in, loop.AppliedMode())
	}
	a.mu.RUnlock()

	stats := loop.Stats()
	a.stats.Store(&stats)
	a.slot.Offer(pose)
	return pose
}

// Stats returns loop counters as of the last tick.
func (a *App) Stats() control.Stats {
	if s := a.stats.Load(); s != nil {
		return *s
	}
	return control.Stats{}
}

// Poses returns the slot the pipeline offers poses to.
func (a *App) Poses() *control.PoseSlot {
	return a.slot
}

// Frames returns the buffer holding the latest JPEG frame for streaming.
func (a *App) Frames() *capture.JPEGBuffer {
	return a.frames
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Settings returns the configuration the app was built with.
func (a *App) Settings() *config.Config {
	return a.settings
}
