package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/orbit/internal/log"
)

// Default Kalman tuning. The transition assumes one time unit per frame.
const (
	DefaultProcessNoise      = 0.03
	DefaultMeasurementNoise  = 0.1
	DefaultInitialCovariance = 10.0
)

// KalmanConfig holds the diagonal noise terms of the tracker.
type KalmanConfig struct {
	ProcessNoise      float64 `json:"process_noise"`      // Q = I4 * ProcessNoise
	MeasurementNoise  float64 `json:"measurement_noise"`  // R = I2 * MeasurementNoise
	InitialCovariance float64 `json:"initial_covariance"` // P0 = I4 * InitialCovariance
}

// DefaultKalmanConfig returns the standard tuning.
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{
		ProcessNoise:      DefaultProcessNoise,
		MeasurementNoise:  DefaultMeasurementNoise,
		InitialCovariance: DefaultInitialCovariance,
	}
}

// Validate checks that every noise term is finite and non-negative.
func (c KalmanConfig) Validate() error {
	for _, v := range []float64{c.ProcessNoise, c.MeasurementNoise, c.InitialCovariance} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %+v", ErrInvalidNoise, c)
		}
	}
	return nil
}

// KalmanTracker2D is a linear Kalman filter over the state [px, py, vx, vy]
// with a constant-velocity transition and position-only observations.
//
// All matrices are float64 and preallocated; Apply does not grow memory.
type KalmanTracker2D struct {
	cfg KalmanConfig

	f     *mat.Dense // 4x4 transition
	h     *mat.Dense // 2x4 observation
	q     *mat.Dense // 4x4 process noise
	r     *mat.Dense // 2x2 measurement noise
	ident *mat.Dense // 4x4

	x *mat.VecDense // state
	p *mat.Dense    // covariance

	// workspaces
	xPred *mat.VecDense
	fp    *mat.Dense
	z     *mat.VecDense
	hx    *mat.VecDense
	innov *mat.VecDense
	ph    *mat.Dense
	s     *mat.Dense
	sInv  *mat.Dense
	k     *mat.Dense
	kInno *mat.VecDense
	kh    *mat.Dense

	initialized bool
	singular    int
}

// NewKalmanTracker2D creates a tracker with the default tuning.
func NewKalmanTracker2D() *KalmanTracker2D {
	kf, _ := NewKalmanTracker2DWithConfig(DefaultKalmanConfig())
	return kf
}

// NewKalmanTracker2DWithConfig creates a tracker with custom noise terms.
func NewKalmanTracker2DWithConfig(cfg KalmanConfig) (*KalmanTracker2D, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kf := &KalmanTracker2D{
		cfg: cfg,
		f: mat.NewDense(4, 4, []float64{
			1, 0, 1, 0,
			0, 1, 0, 1,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		h: mat.NewDense(2, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		}),
		q:     scaledIdentity(4, cfg.ProcessNoise),
		r:     scaledIdentity(2, cfg.MeasurementNoise),
		ident: scaledIdentity(4, 1),

		x: mat.NewVecDense(4, nil),
		p: scaledIdentity(4, cfg.InitialCovariance),

		xPred: mat.NewVecDense(4, nil),
		fp:    mat.NewDense(4, 4, nil),
		z:     mat.NewVecDense(2, nil),
		hx:    mat.NewVecDense(2, nil),
		innov: mat.NewVecDense(2, nil),
		ph:    mat.NewDense(4, 2, nil),
		s:     mat.NewDense(2, 2, nil),
		sInv:  mat.NewDense(2, 2, nil),
		k:     mat.NewDense(4, 2, nil),
		kInno: mat.NewVecDense(4, nil),
		kh:    mat.NewDense(4, 4, nil),
	}
	return kf, nil
}

func scaledIdentity(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

// Apply runs one predict/update cycle and returns the filtered position.
//
// The first call after construction or Reset seeds the position with the
// measurement, zeroes the velocity and returns the measurement unchanged.
// If the innovation covariance cannot be inverted the measurement update
// is skipped and the predicted position is returned.
func (kf *KalmanTracker2D) Apply(x, y float64) (float64, float64) {
	if !kf.initialized {
		kf.x.SetVec(0, x)
		kf.x.SetVec(1, y)
		kf.x.SetVec(2, 0)
		kf.x.SetVec(3, 0)
		kf.initialized = true
		return x, y
	}

	if err := kf.step(x, y); err != nil {
		kf.singular++
		log.Warn("kalman update skipped", "error", err, "count", kf.singular)
	}

	return kf.x.AtVec(0), kf.x.AtVec(1)
}

// step predicts, then applies the measurement update. On error the
// predicted state and covariance are kept.
func (kf *KalmanTracker2D) step(x, y float64) error {
	// Predict: x = F x, P = F P Fᵗ + Q
	kf.xPred.MulVec(kf.f, kf.x)
	kf.x.CopyVec(kf.xPred)
	kf.fp.Mul(kf.f, kf.p)
	kf.p.Mul(kf.fp, kf.f.T())
	kf.p.Add(kf.p, kf.q)

	// Innovation: y = z - H x
	kf.z.SetVec(0, x)
	kf.z.SetVec(1, y)
	kf.hx.MulVec(kf.h, kf.x)
	kf.innov.SubVec(kf.z, kf.hx)

	// S = H P Hᵗ + R
	kf.ph.Mul(kf.p, kf.h.T())
	kf.s.Mul(kf.h, kf.ph)
	kf.s.Add(kf.s, kf.r)

	if err := invert2x2(kf.sInv, kf.s); err != nil {
		return err
	}

	// K = P Hᵗ S⁻¹
	kf.k.Mul(kf.ph, kf.sInv)

	// x = x + K y
	kf.kInno.MulVec(kf.k, kf.innov)
	kf.x.AddVec(kf.x, kf.kInno)

	// P = (I - K H) P
	kf.kh.Mul(kf.k, kf.h)
	kf.kh.Sub(kf.ident, kf.kh)
	kf.fp.Mul(kf.kh, kf.p)
	kf.p.Copy(kf.fp)

	return nil
}

// invert2x2 writes the closed-form inverse of s into dst.
func invert2x2(dst, s *mat.Dense) error {
	a, b := s.At(0, 0), s.At(0, 1)
	c, d := s.At(1, 0), s.At(1, 1)

	det := a*d - b*c
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return fmt.Errorf("%w: det=%v", ErrSingularInnovation, det)
	}

	dst.Set(0, 0, d/det)
	dst.Set(0, 1, -b/det)
	dst.Set(1, 0, -c/det)
	dst.Set(1, 1, a/det)
	return nil
}

// Velocity returns the estimated velocity in pixels per frame.
func (kf *KalmanTracker2D) Velocity() (float64, float64) {
	return kf.x.AtVec(2), kf.x.AtVec(3)
}

// Position returns the current position estimate without consuming a measurement.
func (kf *KalmanTracker2D) Position() (float64, float64) {
	return kf.x.AtVec(0), kf.x.AtVec(1)
}

// Covariance returns a copy of the state covariance.
func (kf *KalmanTracker2D) Covariance() *mat.Dense {
	return mat.DenseCopyOf(kf.p)
}

// SingularCount returns how many updates were skipped for a singular
// innovation covariance.
func (kf *KalmanTracker2D) SingularCount() int {
	return kf.singular
}

// Config returns the tuning in use.
func (kf *KalmanTracker2D) Config() KalmanConfig {
	return kf.cfg
}

// Name returns "Kalman Filter".
func (kf *KalmanTracker2D) Name() string {
	return "Kalman Filter"
}

// Reset zeroes the state and restores the initial covariance.
func (kf *KalmanTracker2D) Reset() {
	kf.x.Zero()
	kf.p.Copy(scaledIdentity(4, kf.cfg.InitialCovariance))
	kf.initialized = false
}
