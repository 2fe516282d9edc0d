package control

import "math"

// RotationMapper accumulates rotation in degrees from hand motion.
//
// In delta modes the raw delta is smoothed a second time, deadzoned and
// integrated. In raw mode the rotation is overwritten from the absolute
// position with a signed square-root curve, which expands small offsets
// near the frame center.
type RotationMapper struct {
	cfg      RotationConfig
	rotX     float64
	rotY     float64
	smoothDX float64
	smoothDY float64
}

// NewRotationMapper creates a mapper at zero rotation.
func NewRotationMapper(cfg RotationConfig) *RotationMapper {
	return &RotationMapper{cfg: cfg}
}

// Step integrates one raw delta. Vertical motion drives X (pitch),
// horizontal motion drives Y (yaw); screen Y points down, so dy is negated.
func (r *RotationMapper) Step(dx, dy float64) {
	a := r.cfg.DeltaAlpha
	r.smoothDX = a*dx + (1-a)*r.smoothDX
	r.smoothDY = a*dy + (1-a)*r.smoothDY

	sx := deadzone(r.smoothDX, r.cfg.Deadzone)
	sy := deadzone(r.smoothDY, r.cfg.Deadzone)

	r.rotX += -sy * r.cfg.Gain
	r.rotY += sx * r.cfg.Gain
}

// SetAbsolute overwrites the rotation from a position inside a width x height frame.
func (r *RotationMapper) SetAbsolute(fx, fy, width, height float64) {
	cx, cy := width/2, height/2
	nx := clamp((fx-cx)/cx, -1, 1)
	ny := clamp((fy-cy)/cy, -1, 1)

	r.rotX = -signedSqrt(ny) * r.cfg.JitterGain
	r.rotY = signedSqrt(nx) * r.cfg.JitterGain
}

// ResetDelta zeroes the delta smoothing state. Rotation is kept.
func (r *RotationMapper) ResetDelta() {
	r.smoothDX = 0
	r.smoothDY = 0
}

// Rotation returns the accumulated (rotX, rotY) in degrees.
func (r *RotationMapper) Rotation() (float64, float64) {
	return r.rotX, r.rotY
}

// SmoothedDelta returns the current delta smoothing state.
func (r *RotationMapper) SmoothedDelta() (float64, float64) {
	return r.smoothDX, r.smoothDY
}

func deadzone(v, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

func signedSqrt(v float64) float64 {
	if v < 0 {
		return -math.Sqrt(-v)
	}
	return math.Sqrt(v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
