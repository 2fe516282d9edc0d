// Package tray provides a system tray menu for switching tracking modes.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/orbit/internal/tracking"
)

// modes lists the selectable modes in menu order.
var modes = []tracking.Mode{tracking.ModeRaw, tracking.ModeSmoothed, tracking.ModeKalman}

// Tray is the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onMode   func(m tracking.Mode)
	onOpen   func()
	onQuit   func()
	enabled  bool
	mode     tracking.Mode
	mu       sync.RWMutex

	menuToggle *systray.MenuItem
	menuModes  map[tracking.Mode]*systray.MenuItem
	menuPose   *systray.MenuItem
}

// New creates a new Tray showing mode as selected.
func New(mode tracking.Mode) *Tray {
	return &Tray{
		enabled:   true,
		mode:      mode,
		menuModes: make(map[tracking.Mode]*systray.MenuItem),
	}
}

// OnToggle sets the callback for pausing and resuming tracking.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMode sets the callback for mode selection.
func (t *Tray) OnMode(fn func(m tracking.Mode)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnOpen sets the callback for the "Open Viewer" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is called and must run on the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Orbit")
	systray.SetTooltip("Orbit hand tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume tracking")
	systray.AddSeparator()

	for _, m := range modes {
		item := systray.AddMenuItemCheckbox(modeTitle(m), "Use "+m.String()+" tracking", m == t.mode)
		t.menuModes[m] = item
		go t.watchMode(m, item)
	}
	systray.AddSeparator()

	t.menuPose = systray.AddMenuItem("Pose: -", "Current rotation and scale")
	t.menuPose.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit Orbit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchMode(m tracking.Mode, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.handleMode(m)
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMode(m tracking.Mode) {
	t.SetMode(m)

	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()

	if callback != nil {
		callback(m)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMode marks m as the selected mode. Modes changed elsewhere (HTTP,
// preview keys) are reflected through here.
func (t *Tray) SetMode(m tracking.Mode) {
	if !m.Valid() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = m
	for mode, item := range t.menuModes {
		if mode == m {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetPose shows the current pose in the menu.
func (t *Tray) SetPose(rotX, rotY, scale float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuPose != nil {
		t.menuPose.SetTitle(poseTitle(rotX, rotY, scale))
	}
}

// Mode returns the mode shown as selected.
func (t *Tray) Mode() tracking.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
