package tracking

import "time"

// DefaultReanchorInterval is how long a baseline lives before it is moved
// to the current position.
const DefaultReanchorInterval = time.Second

// Baseline turns absolute positions into motion relative to an anchor point.
//
// The anchor is absent until the first observation, and again after Clear.
// It is re-set to the current position whenever more than the interval has
// elapsed since it was last set, so long slow motions are re-based instead of
// accumulating into runaway deltas.
type Baseline struct {
	interval   time.Duration
	x, y       float64
	anchoredAt time.Time
	set        bool
}

// NewBaseline creates a baseline with the given re-anchor interval.
// A non-positive interval uses DefaultReanchorInterval.
func NewBaseline(interval time.Duration) *Baseline {
	if interval <= 0 {
		interval = DefaultReanchorInterval
	}
	return &Baseline{interval: interval}
}

// Observe returns the delta of (fx, fy) from the anchor at time now.
// The tick that sets or re-sets the anchor returns (0, 0).
func (b *Baseline) Observe(now time.Time, fx, fy float64) (float64, float64) {
	if !b.set || now.Sub(b.anchoredAt) > b.interval {
		b.anchor(now, fx, fy)
		return 0, 0
	}
	return fx - b.x, fy - b.y
}

func (b *Baseline) anchor(now time.Time, fx, fy float64) {
	b.x = fx
	b.y = fy
	b.anchoredAt = now
	b.set = true
}

// Clear drops the anchor. Called whenever the tracked hand is lost.
func (b *Baseline) Clear() {
	b.set = false
	b.x = 0
	b.y = 0
	b.anchoredAt = time.Time{}
}

// Anchor returns the anchor point, and false if there is none.
func (b *Baseline) Anchor() (float64, float64, bool) {
	return b.x, b.y, b.set
}

// Interval returns the re-anchor interval.
func (b *Baseline) Interval() time.Duration {
	return b.interval
}
