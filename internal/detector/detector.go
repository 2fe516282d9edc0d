package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// ControlPoint selects which landmark of the control hand drives rotation.
type ControlPoint string

const (
	// ControlIndexTip uses the index fingertip.
	ControlIndexTip ControlPoint = "index_tip"
	// ControlCenter uses the mean of all landmarks.
	ControlCenter ControlPoint = "center"
)

// ParseControlPoint validates a control point name.
func ParseControlPoint(s string) (ControlPoint, error) {
	switch ControlPoint(s) {
	case ControlIndexTip, ControlCenter:
		return ControlPoint(s), nil
	case "":
		return ControlIndexTip, nil
	default:
		return "", fmt.Errorf("unknown control point %q", s)
	}
}

// Locate returns the pixel position of the control point on hand h.
func (c ControlPoint) Locate(h *HandLandmarks, width, height int) (float64, float64) {
	if c == ControlCenter {
		center := h.Center()
		return center.X * float64(width), center.Y * float64(height)
	}
	return h.Pixel(IndexTip, width, height)
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of the MediaPipe service script.
	ScriptPath string
}

// DefaultConfig returns a Config for one control hand and one scale hand.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
	}
}
