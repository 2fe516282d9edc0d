// Package control maps filtered hand motion to rotation and scale for a 3D viewer.
package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/orbit/internal/filter"
	"github.com/ayusman/orbit/internal/tracking"
)

// ScalePolicy selects how finger distance maps to scale.
type ScalePolicy string

const (
	// ScaleClamped clamps distance to [MinDistance, MaxDistance] and interpolates
	// into [MinScale, MaxScale].
	ScaleClamped ScalePolicy = "clamped"
	// ScaleExtrapolate clamps only the lower bound and grows without limit.
	ScaleExtrapolate ScalePolicy = "extrapolate"
)

// RotationConfig holds the rotation mapping constants.
type RotationConfig struct {
	DeltaAlpha float64 `json:"delta_alpha"` // weight of the new raw delta in the delta smoothing stage
	Deadzone   float64 `json:"deadzone"`    // |smoothed delta| below this maps to zero (pixels)
	Gain       float64 `json:"gain"`        // degrees per pixel of smoothed delta
	JitterGain float64 `json:"jitter_gain"` // degrees at the frame edge in raw mode
}

// ScaleConfig holds the scale mapping constants.
type ScaleConfig struct {
	Policy      ScalePolicy `json:"policy"`
	MinDistance float64     `json:"min_distance"` // pixels
	MaxDistance float64     `json:"max_distance"` // pixels
	MinScale    float64     `json:"min_scale"`
	MaxScale    float64     `json:"max_scale"`
	Alpha       float64     `json:"alpha"` // smoothing weight of the new target outside raw mode
}

// Config configures a Loop.
type Config struct {
	Mode             tracking.Mode
	SmoothingAlpha   float64
	Kalman           filter.KalmanConfig
	ReanchorInterval time.Duration
	FrameWidth       float64
	FrameHeight      float64
	Rotation         RotationConfig
	Scale            ScaleConfig
}

// DefaultRotationConfig returns the standard rotation tuning.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		DeltaAlpha: 0.3,
		Deadzone:   1.0,
		Gain:       0.04,
		JitterGain: 180,
	}
}

// DefaultScaleConfig returns the standard scale tuning.
func DefaultScaleConfig() ScaleConfig {
	return ScaleConfig{
		Policy:      ScaleClamped,
		MinDistance: 30,
		MaxDistance: 200,
		MinScale:    0.5,
		MaxScale:    2.0,
		Alpha:       0.2,
	}
}

// DefaultConfig returns a loop configuration for a 640x480 camera.
func DefaultConfig() Config {
	return Config{
		Mode:             tracking.ModeSmoothed,
		SmoothingAlpha:   filter.DefaultSmoothingAlpha,
		Kalman:           filter.DefaultKalmanConfig(),
		ReanchorInterval: tracking.DefaultReanchorInterval,
		FrameWidth:       640,
		FrameHeight:      480,
		Rotation:         DefaultRotationConfig(),
		Scale:            DefaultScaleConfig(),
	}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid control config")

// Validate checks the configuration for values the mappers cannot use.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if !c.Mode.Valid() {
		return invalid("mode %d", c.Mode)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return invalid("frame size %vx%v", c.FrameWidth, c.FrameHeight)
	}
	if c.Rotation.DeltaAlpha <= 0 || c.Rotation.DeltaAlpha > 1 {
		return invalid("delta alpha %v", c.Rotation.DeltaAlpha)
	}
	if c.Rotation.Deadzone < 0 {
		return invalid("deadzone %v", c.Rotation.Deadzone)
	}
	switch c.Scale.Policy {
	case ScaleClamped, ScaleExtrapolate:
	default:
		return invalid("scale policy %q", c.Scale.Policy)
	}
	if c.Scale.MaxDistance <= c.Scale.MinDistance {
		return invalid("scale distance range [%v, %v]", c.Scale.MinDistance, c.Scale.MaxDistance)
	}
	if c.Scale.Alpha <= 0 || c.Scale.Alpha > 1 {
		return invalid("scale alpha %v", c.Scale.Alpha)
	}
	return nil
}
