package app

import (
	"context"
	"time"

	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/log"
)

// runPipeline ticks at the camera frame rate until ctx ends. Each tick
// reads a frame, detects hands, and runs the control loop. Cancellation is
// only observed between ticks.
func (a *App) runPipeline(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if stop := a.step(now); stop {
				log.Info("stop requested from preview")
				cancel()
				return
			}
		}
	}
}

// step processes one camera frame. It returns true when the preview asked
// the pipeline to stop.
func (a *App) step(now time.Time) bool {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		log.Warn("error reading frame", "error", err)
		return false
	}
	defer frame.Close()

	det := a.Detector()
	hands, err := det.Detect(frame)
	if err != nil {
		// A failed detection counts as no hands so the baseline is dropped.
		log.Warn("error detecting hands", "error", err)
		hands = nil
	}

	a.frames.Publish(*frame)
	a.Process(BuildInput(now, hands, a.point, frame.Cols(), frame.Rows()))

	if a.preview == nil {
		return false
	}
	cmd, ok := commandForKey(a.preview.Show(*frame))
	if !ok {
		return false
	}
	if cmd.stop {
		return true
	}
	a.SetMode(cmd.mode)
	return false
}

// BuildInput turns detected hands into a control loop input. Hands are
// expected in display orientation. The left-most hand drives rotation
// through the chosen control point; the next one drives scale through its
// thumb and index fingertips.
func BuildInput(now time.Time, hands []detector.HandLandmarks, point detector.ControlPoint, width, height int) control.Input {
	in := control.Input{Time: now}

	ctrl, scale := detector.SplitHands(hands)
	if ctrl != nil {
		x, y := point.Locate(ctrl, width, height)
		in.Control = &control.Point{X: x, Y: y}
	}
	if scale != nil {
		tx, ty := scale.Pixel(detector.ThumbTip, width, height)
		ix, iy := scale.Pixel(detector.IndexTip, width, height)
		in.Pinch = &control.Pinch{
			Thumb: control.Point{X: tx, Y: ty},
			Index: control.Point{X: ix, Y: iy},
		}
	}
	return in
}
