// Package detector provides the hand detection boundary: landmark types,
// detector implementations, and selection of the control and scale hands.
package detector

import (
	"sort"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to [0, 1] of the
// frame as delivered by MediaPipe; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Center returns the mean of all landmarks.
func (h *HandLandmarks) Center() Point3D {
	var c Point3D
	for _, p := range h.Points {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	c.X /= NumLandmarks
	c.Y /= NumLandmarks
	c.Z /= NumLandmarks
	return c
}

// Pixel converts landmark i to image pixel coordinates.
func (h *HandLandmarks) Pixel(i int, width, height int) (float64, float64) {
	p := h.Points[i]
	return p.X * float64(width), p.Y * float64(height)
}

// SplitHands orders hands by the horizontal position of their center and
// returns the left-most as the control hand and the next one as the scale
// hand. Either is nil when not enough hands were detected. Hands are
// expected in display orientation, i.e. already mirrored when the view is.
func SplitHands(hands []HandLandmarks) (control, scale *HandLandmarks) {
	if len(hands) == 0 {
		return nil, nil
	}

	ordered := make([]HandLandmarks, len(hands))
	copy(ordered, hands)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Center().X < ordered[j].Center().X
	})

	control = &ordered[0]
	if len(ordered) > 1 {
		scale = &ordered[1]
	}
	return control, scale
}
