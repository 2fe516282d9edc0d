package tracking

import (
	"github.com/ayusman/orbit/internal/filter"
)

// Controller dispatches measurements to the estimator of the active mode.
//
// Each mode keeps its own estimator for the controller's lifetime. Switching
// away and back resumes the estimator where it left off; nothing is reset on
// a mode change.
type Controller struct {
	mode      Mode
	raw       filter.Raw
	smoothing *filter.ExponentialSmoothing
	kalman    *filter.KalmanTracker2D
}

// NewController creates a controller starting in the given mode.
// An invalid initial mode falls back to ModeSmoothed.
func NewController(initial Mode, alpha float64, kalman filter.KalmanConfig) (*Controller, error) {
	smoothing, err := filter.NewExponentialSmoothing(alpha)
	if err != nil {
		return nil, err
	}
	kf, err := filter.NewKalmanTracker2DWithConfig(kalman)
	if err != nil {
		return nil, err
	}

	if !initial.Valid() {
		initial = ModeSmoothed
	}

	return &Controller{
		mode:      initial,
		raw:       filter.NewRaw(),
		smoothing: smoothing,
		kalman:    kf,
	}, nil
}

// SetMode switches the active estimator. Invalid modes are ignored.
func (c *Controller) SetMode(m Mode) {
	if m.Valid() {
		c.mode = m
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Process filters one measurement with the active estimator.
func (c *Controller) Process(x, y float64) (float64, float64) {
	return c.Estimator().Apply(x, y)
}

// Estimator returns the active estimator.
func (c *Controller) Estimator() filter.Estimator {
	switch c.mode {
	case ModeRaw:
		return c.raw
	case ModeKalman:
		return c.kalman
	default:
		return c.smoothing
	}
}

// Kalman returns the Kalman estimator regardless of the active mode.
func (c *Controller) Kalman() *filter.KalmanTracker2D {
	return c.kalman
}

// Reset clears every estimator.
func (c *Controller) Reset() {
	c.smoothing.Reset()
	c.kalman.Reset()
}
