package tray

import (
	"fmt"

	"github.com/ayusman/orbit/internal/tracking"
)

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func modeTitle(m tracking.Mode) string {
	switch m {
	case tracking.ModeRaw:
		return "1  Raw"
	case tracking.ModeSmoothed:
		return "2  Smoothed"
	case tracking.ModeKalman:
		return "3  Kalman"
	}
	return m.String()
}

func poseTitle(rotX, rotY, scale float64) string {
	return fmt.Sprintf("Pose: rx %.2f  ry %.2f  s %.2f", rotX, rotY, scale)
}
