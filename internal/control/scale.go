package control

import "math"

// DefaultScale is the scale before any pinch is seen.
const DefaultScale = 1.0

// Point is a 2D position in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// ScaleMapper turns the thumb-to-index distance of the scale hand into a
// scale factor. The value is held while no scale hand is present.
type ScaleMapper struct {
	cfg   ScaleConfig
	scale float64
}

// NewScaleMapper creates a mapper at DefaultScale.
func NewScaleMapper(cfg ScaleConfig) *ScaleMapper {
	return &ScaleMapper{cfg: cfg, scale: DefaultScale}
}

// Target maps a finger distance to a scale target under the configured policy.
func (s *ScaleMapper) Target(d float64) float64 {
	c := s.cfg
	span := c.MaxDistance - c.MinDistance

	if c.Policy == ScaleExtrapolate {
		d = math.Max(d, c.MinDistance)
		return c.MinScale + (d-c.MinDistance)/span
	}

	d = clamp(d, c.MinDistance, c.MaxDistance)
	t := (d - c.MinDistance) / span
	return c.MinScale + t*(c.MaxScale-c.MinScale)
}

// Update maps the distance between thumb and index to a target and applies
// it, smoothed when smooth is true. It returns the new scale.
func (s *ScaleMapper) Update(thumb, index Point, smooth bool) float64 {
	target := s.Target(thumb.Distance(index))
	if smooth {
		s.scale = (1-s.cfg.Alpha)*s.scale + s.cfg.Alpha*target
	} else {
		s.scale = target
	}
	return s.scale
}

// Scale returns the current scale.
func (s *ScaleMapper) Scale() float64 {
	return s.scale
}
