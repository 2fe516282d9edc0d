// Package filter provides state estimators that turn one noisy 2D measurement
// per frame into one filtered 2D estimate.
package filter

import "errors"

var (
	// ErrSingularInnovation is reported when the innovation covariance of the
	// Kalman update cannot be inverted.
	ErrSingularInnovation = errors.New("innovation covariance is singular")

	// ErrInvalidAlpha is returned when a smoothing factor is outside (0, 1].
	ErrInvalidAlpha = errors.New("smoothing alpha must be in (0, 1]")

	// ErrInvalidNoise is returned when a Kalman noise parameter is negative.
	ErrInvalidNoise = errors.New("kalman noise parameters must be non-negative")
)

// Estimator converts one measurement per tick into one filtered estimate.
//
// Every implementation returns the first measurement after construction or
// Reset unchanged and only starts filtering from the second call.
type Estimator interface {
	// Apply consumes a measurement and returns the filtered position.
	Apply(x, y float64) (float64, float64)

	// Name returns a human-readable name for logs and the API.
	Name() string

	// Reset drops all internal state so the next Apply bootstraps again.
	Reset()
}

// Raw passes measurements through unchanged.
type Raw struct{}

// NewRaw returns a passthrough estimator.
func NewRaw() Raw {
	return Raw{}
}

// Apply returns the input.
func (Raw) Apply(x, y float64) (float64, float64) {
	return x, y
}

// Name returns "Raw".
func (Raw) Name() string {
	return "Raw"
}

// Reset is a no-op.
func (Raw) Reset() {}
