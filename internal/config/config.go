// Package config loads the orbit configuration file.
//
// The file is JSON. Fields omitted from the file keep their defaults, so a
// partial file only needs to name what it changes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/filter"
	"github.com/ayusman/orbit/internal/tracking"
)

// maxFileSize caps the size of a config file.
const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration.
type Config struct {
	Camera   CameraConfig           `json:"camera"`
	Tracking TrackingConfig         `json:"tracking"`
	Rotation control.RotationConfig `json:"rotation"`
	Scale    control.ScaleConfig    `json:"scale"`
	Detector DetectorConfig         `json:"detector"`
	Server   ServerConfig           `json:"server"`
	Store    StoreConfig            `json:"store"`
	UI       UIConfig               `json:"ui"`
	LogLevel string                 `json:"log_level"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int  `json:"device"`
	Width  int  `json:"width"`
	Height int  `json:"height"`
	FPS    int  `json:"fps"`
	Mirror bool `json:"mirror"`
}

// TrackingConfig configures estimators and the baseline.
type TrackingConfig struct {
	Mode             string              `json:"mode"` // "raw", "smoothed", "kalman" or 1..3
	SmoothingAlpha   float64             `json:"smoothing_alpha"`
	Kalman           filter.KalmanConfig `json:"kalman"`
	ReanchorInterval string              `json:"reanchor_interval"` // duration string like "1s"
	ControlPoint     string              `json:"control_point"`     // "index_tip" or "center"
}

// DetectorConfig configures the MediaPipe hand service.
type DetectorConfig struct {
	MaxHands              int     `json:"max_hands"`
	MinConfidence         float64 `json:"min_confidence"`
	MinTrackingConfidence float64 `json:"min_tracking_confidence"`
	ScriptPath            string  `json:"script_path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path   string `json:"path"`
	Record bool   `json:"record"`
}

// UIConfig toggles the local user interfaces.
type UIConfig struct {
	Preview bool `json:"preview"`
	Tray    bool `json:"tray"`
}

// Default returns the built-in configuration.
func Default() *Config {
	det := detector.DefaultConfig()
	return &Config{
		Camera: CameraConfig{
			Width:  capture.DefaultWidth,
			Height: capture.DefaultHeight,
			FPS:    capture.DefaultFPS,
			Mirror: true,
		},
		Tracking: TrackingConfig{
			Mode:             tracking.ModeSmoothed.String(),
			SmoothingAlpha:   filter.DefaultSmoothingAlpha,
			Kalman:           filter.DefaultKalmanConfig(),
			ReanchorInterval: tracking.DefaultReanchorInterval.String(),
			ControlPoint:     string(detector.ControlIndexTip),
		},
		Rotation: control.DefaultRotationConfig(),
		Scale:    control.DefaultScaleConfig(),
		Detector: DetectorConfig{
			MaxHands:              det.MaxHands,
			MinConfidence:         det.MinConfidence,
			MinTrackingConfidence: det.MinTrackingConf,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Store:    StoreConfig{Path: "~/.orbit/orbit.db"},
		LogLevel: "info",
	}
}

// Load reads a configuration file over the defaults.
// The file must have a .json extension and be at most 1 MiB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if _, ok := tracking.ParseMode(c.Tracking.Mode); !ok {
		return fmt.Errorf("unknown tracking mode %q", c.Tracking.Mode)
	}
	d, err := time.ParseDuration(c.Tracking.ReanchorInterval)
	if err != nil {
		return fmt.Errorf("invalid reanchor_interval %q: %w", c.Tracking.ReanchorInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("reanchor_interval must be positive, got %q", c.Tracking.ReanchorInterval)
	}
	if _, err := detector.ParseControlPoint(c.Tracking.ControlPoint); err != nil {
		return err
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps must be positive, got %d", c.Camera.FPS)
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("max_hands must be at least 1, got %d", c.Detector.MaxHands)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must be set")
	}
	if _, err := filter.NewExponentialSmoothing(c.Tracking.SmoothingAlpha); err != nil {
		return err
	}
	if err := c.Tracking.Kalman.Validate(); err != nil {
		return err
	}

	// Frame size is checked again once the camera reports its real size.
	_, err = c.ControlConfig(c.Camera.Width, c.Camera.Height)
	return err
}

// Mode returns the configured initial tracking mode, falling back to
// smoothed for an unparsable value.
func (c *Config) Mode() tracking.Mode {
	m, ok := tracking.ParseMode(c.Tracking.Mode)
	if !ok {
		return tracking.ModeSmoothed
	}
	return m
}

// ReanchorInterval returns the parsed reanchor interval or the default.
func (c *Config) ReanchorInterval() time.Duration {
	d, err := time.ParseDuration(c.Tracking.ReanchorInterval)
	if err != nil || d <= 0 {
		return tracking.DefaultReanchorInterval
	}
	return d
}

// ControlPoint returns the configured control landmark.
func (c *Config) ControlPoint() detector.ControlPoint {
	cp, err := detector.ParseControlPoint(c.Tracking.ControlPoint)
	if err != nil {
		return detector.ControlIndexTip
	}
	return cp
}

// ControlConfig builds the control loop configuration for frames of the
// given size.
func (c *Config) ControlConfig(width, height int) (control.Config, error) {
	cc := control.Config{
		Mode:             c.Mode(),
		SmoothingAlpha:   c.Tracking.SmoothingAlpha,
		Kalman:           c.Tracking.Kalman,
		ReanchorInterval: c.ReanchorInterval(),
		FrameWidth:       float64(width),
		FrameHeight:      float64(height),
		Rotation:         c.Rotation,
		Scale:            c.Scale,
	}
	if err := cc.Validate(); err != nil {
		return control.Config{}, err
	}
	return cc, nil
}

// CaptureConfig builds the camera configuration.
func (c *Config) CaptureConfig() capture.Config {
	return capture.Config{
		DeviceID: c.Camera.Device,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.FPS,
		Mirror:   c.Camera.Mirror,
	}
}

// DetectorConfig builds the hand detector configuration.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		ScriptPath:      ExpandHome(c.Detector.ScriptPath),
	}
}

// StorePath returns the database path with a leading ~ expanded.
func (c *Config) StorePath() string {
	return ExpandHome(c.Store.Path)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
