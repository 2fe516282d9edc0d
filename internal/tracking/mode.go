// Package tracking owns estimator selection and baseline-relative motion.
package tracking

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Mode selects which estimator filters the control hand.
type Mode int32

const (
	// ModeRaw passes positions through and drives rotation from absolute position.
	ModeRaw Mode = 1
	// ModeSmoothed filters with exponential smoothing.
	ModeSmoothed Mode = 2
	// ModeKalman filters with the 2D Kalman tracker.
	ModeKalman Mode = 3
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModeRaw && m <= ModeKalman
}

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeSmoothed:
		return "smoothed"
	case ModeKalman:
		return "kalman"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts a number ("1".."3") or a name ("raw", "smoothed", "kalman").
// The boolean is false for anything else.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "raw":
		return ModeRaw, true
	case "smoothed", "smoothing", "ema":
		return ModeSmoothed, true
	case "kalman":
		return ModeKalman, true
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	m := Mode(n)
	return m, m.Valid()
}

// ModeCell holds the process-wide mode. Any goroutine may Set; the control
// loop Loads once per tick, so a change lands on the next tick at the latest.
type ModeCell struct {
	v atomic.Int32
}

// NewModeCell returns a cell holding initial, or ModeSmoothed if initial is invalid.
func NewModeCell(initial Mode) *ModeCell {
	c := &ModeCell{}
	if !initial.Valid() {
		initial = ModeSmoothed
	}
	c.v.Store(int32(initial))
	return c
}

// Set stores m. Invalid modes are ignored and Set returns false.
func (c *ModeCell) Set(m Mode) bool {
	if !m.Valid() {
		return false
	}
	c.v.Store(int32(m))
	return true
}

// Load returns the current mode.
func (c *ModeCell) Load() Mode {
	return Mode(c.v.Load())
}
