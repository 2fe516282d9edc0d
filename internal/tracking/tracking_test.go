package tracking

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/orbit/internal/filter"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in     string
		want   Mode
		wantOK bool
	}{
		{"1", ModeRaw, true},
		{"2", ModeSmoothed, true},
		{"3", ModeKalman, true},
		{"raw", ModeRaw, true},
		{" Kalman ", ModeKalman, true},
		{"smoothed", ModeSmoothed, true},
		{"0", 0, false},
		{"4", 4, false},
		{"fast", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMode(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseMode(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode_String(t *testing.T) {
	if ModeRaw.String() != "raw" || ModeSmoothed.String() != "smoothed" || ModeKalman.String() != "kalman" {
		t.Error("unexpected mode names")
	}
	if Mode(9).String() != "mode(9)" {
		t.Errorf("unexpected name for unknown mode: %s", Mode(9))
	}
}

func TestModeCell(t *testing.T) {
	t.Run("invalid initial falls back to smoothed", func(t *testing.T) {
		c := NewModeCell(Mode(0))
		if c.Load() != ModeSmoothed {
			t.Errorf("Load() = %v, want smoothed", c.Load())
		}
	})

	t.Run("invalid set is ignored", func(t *testing.T) {
		c := NewModeCell(ModeKalman)
		if c.Set(Mode(7)) {
			t.Error("Set(7) should return false")
		}
		if c.Load() != ModeKalman {
			t.Errorf("Load() = %v, want kalman", c.Load())
		}
	})

	t.Run("concurrent writers and readers", func(t *testing.T) {
		c := NewModeCell(ModeRaw)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					c.Set(Mode(1 + (i+j)%3))
					if m := c.Load(); !m.Valid() {
						t.Errorf("observed invalid mode %v", m)
						return
					}
				}
			}(i)
		}
		wg.Wait()
	})
}

func newTestController(t *testing.T, m Mode) *Controller {
	t.Helper()
	c, err := NewController(m, filter.DefaultSmoothingAlpha, filter.DefaultKalmanConfig())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

func TestController_Dispatch(t *testing.T) {
	t.Run("raw returns input", func(t *testing.T) {
		c := newTestController(t, ModeRaw)
		c.Process(0, 0)
		x, y := c.Process(100, 50)
		if x != 100 || y != 50 {
			t.Errorf("Process() = (%v, %v), want (100, 50)", x, y)
		}
	})

	t.Run("smoothed blends", func(t *testing.T) {
		c := newTestController(t, ModeSmoothed)
		c.Process(100, 200)
		x, y := c.Process(110, 210)
		if math.Abs(x-107) > 1e-9 || math.Abs(y-207) > 1e-9 {
			t.Errorf("Process() = (%v, %v), want (107, 207)", x, y)
		}
	})

	t.Run("kalman is selected", func(t *testing.T) {
		c := newTestController(t, ModeKalman)
		if c.Estimator().Name() != "Kalman Filter" {
			t.Errorf("Estimator() = %s", c.Estimator().Name())
		}
	})
}

func TestController_SetModeIgnoresInvalid(t *testing.T) {
	c := newTestController(t, ModeKalman)
	for _, m := range []Mode{0, 4, -1, 99} {
		c.SetMode(m)
		if c.Mode() != ModeKalman {
			t.Fatalf("SetMode(%d) changed mode to %v", m, c.Mode())
		}
	}
}

func TestController_SwitchKeepsEstimatorState(t *testing.T) {
	c := newTestController(t, ModeSmoothed)
	c.Process(100, 100)
	c.Process(200, 200) // prev = 170

	c.SetMode(ModeKalman)
	c.Process(0, 0)
	c.SetMode(ModeSmoothed)

	// Resumes from 170, not a fresh bootstrap at 300.
	x, _ := c.Process(300, 300)
	want := 0.7*300 + 0.3*170
	if math.Abs(x-want) > 1e-9 {
		t.Errorf("Process() after switch = %v, want %v", x, want)
	}
}

func TestBaseline(t *testing.T) {
	t0 := time.Unix(1000, 0)

	t.Run("first observation anchors with zero delta", func(t *testing.T) {
		b := NewBaseline(time.Second)
		dx, dy := b.Observe(t0, 50, 60)
		if dx != 0 || dy != 0 {
			t.Errorf("delta = (%v, %v), want zero", dx, dy)
		}
		x, y, ok := b.Anchor()
		if !ok || x != 50 || y != 60 {
			t.Errorf("Anchor() = (%v, %v, %v)", x, y, ok)
		}
	})

	t.Run("delta relative to anchor", func(t *testing.T) {
		b := NewBaseline(time.Second)
		b.Observe(t0, 50, 60)
		dx, dy := b.Observe(t0.Add(100*time.Millisecond), 55, 52)
		if dx != 5 || dy != -8 {
			t.Errorf("delta = (%v, %v), want (5, -8)", dx, dy)
		}
	})

	t.Run("reanchors after the interval", func(t *testing.T) {
		b := NewBaseline(time.Second)
		b.Observe(t0, 0, 0)

		// Exactly at the interval the anchor is kept.
		dx, _ := b.Observe(t0.Add(time.Second), 30, 0)
		if dx != 30 {
			t.Errorf("delta at interval = %v, want 30", dx)
		}

		dx, dy := b.Observe(t0.Add(time.Second+time.Millisecond), 40, 10)
		if dx != 0 || dy != 0 {
			t.Errorf("delta on reanchor tick = (%v, %v), want zero", dx, dy)
		}

		dx, _ = b.Observe(t0.Add(1100*time.Millisecond), 45, 10)
		if dx != 5 {
			t.Errorf("delta after reanchor = %v, want 5", dx)
		}
	})

	t.Run("stationary hand past the interval gives zero delta", func(t *testing.T) {
		b := NewBaseline(500 * time.Millisecond)
		for i := 0; i < 40; i++ {
			dx, dy := b.Observe(t0.Add(time.Duration(i)*33*time.Millisecond), 400, 300)
			if dx != 0 || dy != 0 {
				t.Fatalf("tick %d: delta = (%v, %v)", i, dx, dy)
			}
		}
	})

	t.Run("clear drops the anchor", func(t *testing.T) {
		b := NewBaseline(time.Second)
		b.Observe(t0, 10, 10)
		b.Clear()
		if _, _, ok := b.Anchor(); ok {
			t.Error("anchor should be absent after Clear")
		}
		dx, dy := b.Observe(t0.Add(10*time.Millisecond), 90, 90)
		if dx != 0 || dy != 0 {
			t.Errorf("first delta after Clear = (%v, %v)", dx, dy)
		}
	})

	t.Run("non-positive interval uses default", func(t *testing.T) {
		if NewBaseline(0).Interval() != DefaultReanchorInterval {
			t.Error("expected default interval")
		}
	})
}
