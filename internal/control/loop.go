package control

import (
	"time"

	"github.com/ayusman/orbit/internal/log"
	"github.com/ayusman/orbit/internal/tracking"
)

// Pinch is the thumb and index fingertip of the scale hand.
type Pinch struct {
	Thumb Point `json:"thumb"`
	Index Point `json:"index"`
}

// Input is everything the loop consumes for one video frame.
type Input struct {
	Time    time.Time `json:"time"`
	Control *Point    `json:"control,omitempty"` // nil when no control hand is tracked
	Pinch   *Pinch    `json:"pinch,omitempty"`   // nil when no scale hand is tracked
}

// Pose is the output triple consumed by the renderer: incremental Euler
// angles in degrees and a uniform scale factor.
type Pose struct {
	RotX  float64 `json:"rot_x"`
	RotY  float64 `json:"rot_y"`
	Scale float64 `json:"scale"`
}

// Stats counts loop activity.
type Stats struct {
	Ticks           uint64 `json:"ticks"`
	ControlTicks    uint64 `json:"control_ticks"`
	PinchTicks      uint64 `json:"pinch_ticks"`
	ModeChanges     uint64 `json:"mode_changes"`
	SingularUpdates int    `json:"singular_updates"`
}

// Loop is the per-frame orchestrator: control hand through the tracking
// controller, baseline and rotation mapper; scale hand through the scale
// mapper.
//
// Tick must be called from a single goroutine. SetMode may be called from
// any goroutine and takes effect at the start of the next Tick.
type Loop struct {
	cfg      Config
	mode     *tracking.ModeCell
	ctrl     *tracking.Controller
	baseline *tracking.Baseline
	rotation *RotationMapper
	scale    *ScaleMapper
	pose     Pose
	stats    Stats
}

// NewLoop builds a loop from cfg.
func NewLoop(cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctrl, err := tracking.NewController(cfg.Mode, cfg.SmoothingAlpha, cfg.Kalman)
	if err != nil {
		return nil, err
	}

	return &Loop{
		cfg:      cfg,
		mode:     tracking.NewModeCell(cfg.Mode),
		ctrl:     ctrl,
		baseline: tracking.NewBaseline(cfg.ReanchorInterval),
		rotation: NewRotationMapper(cfg.Rotation),
		scale:    NewScaleMapper(cfg.Scale),
		pose:     Pose{Scale: DefaultScale},
	}, nil
}

// SetMode requests a mode change. Invalid modes are ignored and SetMode
// returns false.
func (l *Loop) SetMode(m tracking.Mode) bool {
	return l.mode.Set(m)
}

// Mode returns the most recently requested mode.
func (l *Loop) Mode() tracking.Mode {
	return l.mode.Load()
}

// AppliedMode returns the mode the last Tick ran under, or the initial
// mode before the first Tick. Like Tick, it must be called from the loop's
// goroutine.
func (l *Loop) AppliedMode() tracking.Mode {
	return l.ctrl.Mode()
}

// Tick processes one frame and returns the updated pose.
func (l *Loop) Tick(in Input) Pose {
	mode := l.mode.Load()
	if prev := l.ctrl.Mode(); prev != mode {
		l.ctrl.SetMode(mode)
		// The incoming estimator may hold state from long ago; re-anchor
		// so it restarts from the next measurement.
		l.baseline.Clear()
		l.rotation.ResetDelta()
		l.stats.ModeChanges++
		log.Debug("tracking mode applied", "from", prev, "to", mode)
	}
	l.stats.Ticks++

	if in.Control == nil {
		l.baseline.Clear()
		l.rotation.ResetDelta()
	} else {
		l.stats.ControlTicks++
		if _, _, anchored := l.baseline.Anchor(); !anchored {
			// The hand is (re)appearing: bootstrap the filter on it so the
			// anchor is not a blend with where it was last seen.
			l.ctrl.Estimator().Reset()
		}
		fx, fy := l.ctrl.Process(in.Control.X, in.Control.Y)

		if mode == tracking.ModeRaw {
			// Raw mode ignores the baseline; drop it so a later delta
			// mode re-anchors instead of jumping.
			l.baseline.Clear()
			l.rotation.ResetDelta()
			l.rotation.SetAbsolute(fx, fy, l.cfg.FrameWidth, l.cfg.FrameHeight)
		} else {
			dx, dy := l.baseline.Observe(in.Time, fx, fy)
			l.rotation.Step(dx, dy)
		}
	}

	if in.Pinch != nil {
		l.stats.PinchTicks++
		l.scale.Update(in.Pinch.Thumb, in.Pinch.Index, mode != tracking.ModeRaw)
	}

	rx, ry := l.rotation.Rotation()
	l.pose = Pose{RotX: rx, RotY: ry, Scale: l.scale.Scale()}
	return l.pose
}

// Pose returns the pose produced by the last Tick.
func (l *Loop) Pose() Pose {
	return l.pose
}

// Stats returns the loop counters. Like Tick, it must be called from the
// loop's goroutine.
func (l *Loop) Stats() Stats {
	s := l.stats
	s.SingularUpdates = l.ctrl.Kalman().SingularCount()
	return s
}

// Config returns the loop configuration.
func (l *Loop) Config() Config {
	return l.cfg
}
