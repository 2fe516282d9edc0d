package app

import (
	"fmt"

	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

// ReplayResult is the pose sequence produced by running a recorded session
// through a fresh control loop.
type ReplayResult struct {
	Session *store.Session `json:"session"`
	Mode    tracking.Mode  `json:"mode"` // 0 when the recorded modes were followed
	Poses   []control.Pose `json:"poses"`
	Stats   control.Stats  `json:"stats"`
}

// Replay runs the recorded session id through a new control loop built from
// the current settings. A valid mode is forced for every tick; otherwise the
// mode recorded with each frame is applied, as it was live.
func (a *App) Replay(id string, mode tracking.Mode) (*ReplayResult, error) {
	if a.config.Store == nil {
		return nil, ErrNoStore
	}

	sess, err := a.config.Store.Sessions().Get(id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	frames, err := a.config.Store.Frames().List(id)
	if err != nil {
		return nil, fmt.Errorf("load frames of %s: %w", id, err)
	}

	follow := !mode.Valid()
	initial := mode
	if follow {
		initial = tracking.Mode(sess.Mode)
		mode = 0
	}

	loop, err := a.newLoop(sess.FrameWidth, sess.FrameHeight, initial)
	if err != nil {
		return nil, err
	}

	poses := make([]control.Pose, 0, len(frames))
	for _, f := range frames {
		if follow {
			loop.SetMode(tracking.Mode(f.Mode))
		}
		poses = append(poses, loop.Tick(inputFromFrame(sess.StartedAt, f)))
	}

	return &ReplayResult{
		Session: sess,
		Mode:    mode,
		Poses:   poses,
		Stats:   loop.Stats(),
	}, nil
}
