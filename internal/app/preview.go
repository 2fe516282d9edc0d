package app

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/orbit/internal/tracking"
)

const keyEscape = 27

// preview shows the camera view in a local window and polls the keyboard.
type preview struct {
	window *gocv.Window
}

func newPreview(title string) *preview {
	return &preview{window: gocv.NewWindow(title)}
}

// Show displays frame and returns the key pressed, or -1.
func (p *preview) Show(frame gocv.Mat) int {
	p.window.IMShow(frame)
	return p.window.WaitKey(1)
}

func (p *preview) Close() error {
	return p.window.Close()
}

// keyCommand is what a preview key press asks for.
type keyCommand struct {
	mode tracking.Mode
	stop bool
}

// commandForKey maps 1/2/3 to the tracking modes and q or Escape to stop.
func commandForKey(key int) (keyCommand, bool) {
	switch key {
	case '1':
		return keyCommand{mode: tracking.ModeRaw}, true
	case '2':
		return keyCommand{mode: tracking.ModeSmoothed}, true
	case '3':
		return keyCommand{mode: tracking.ModeKalman}, true
	case 'q', 'Q', keyEscape:
		return keyCommand{stop: true}, true
	default:
		return keyCommand{}, false
	}
}
