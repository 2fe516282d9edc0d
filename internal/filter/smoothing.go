package filter

import "fmt"

// DefaultSmoothingAlpha is the weight given to each new measurement.
const DefaultSmoothingAlpha = 0.7

// ExponentialSmoothing implements x(t) = alpha*z(t) + (1-alpha)*x(t-1).
type ExponentialSmoothing struct {
	alpha       float64
	prevX       float64
	prevY       float64
	initialized bool
}

// NewExponentialSmoothing creates a smoother with the given alpha in (0, 1].
func NewExponentialSmoothing(alpha float64) (*ExponentialSmoothing, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return &ExponentialSmoothing{alpha: alpha}, nil
}

// Apply blends the measurement into the running estimate.
func (s *ExponentialSmoothing) Apply(x, y float64) (float64, float64) {
	if !s.initialized {
		s.prevX = x
		s.prevY = y
		s.initialized = true
		return x, y
	}

	s.prevX = s.alpha*x + (1-s.alpha)*s.prevX
	s.prevY = s.alpha*y + (1-s.alpha)*s.prevY
	return s.prevX, s.prevY
}

// Alpha returns the configured smoothing factor.
func (s *ExponentialSmoothing) Alpha() float64 {
	return s.alpha
}

// Name returns the estimator name including alpha.
func (s *ExponentialSmoothing) Name() string {
	return fmt.Sprintf("Exponential Smoothing (α=%.2f)", s.alpha)
}

// Reset clears the running estimate.
func (s *ExponentialSmoothing) Reset() {
	s.prevX = 0
	s.prevY = 0
	s.initialized = false
}
