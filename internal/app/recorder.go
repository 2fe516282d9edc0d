package app

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/log"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

// Recorder tuning.
const (
	recordBuffer        = 256
	recordBatch         = 64
	recordFlushInterval = 500 * time.Millisecond
)

// recorder writes pipeline inputs to a store session. Add never blocks the
// pipeline: frames are dropped when the writer falls behind.
type recorder struct {
	store   *store.Store
	session store.Session
	frames  chan store.Frame
	seq     int
	dropped atomic.Uint64
	done    chan struct{}
}

func newRecorder(st *store.Store, name string, mode tracking.Mode, width, height int) (*recorder, error) {
	sess := store.Session{
		Name:        name,
		Mode:        int(mode),
		FrameWidth:  width,
		FrameHeight: height,
	}
	if err := st.Sessions().Create(&sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r := &recorder{
		store:   st,
		session: sess,
		frames:  make(chan store.Frame, recordBuffer),
		done:    make(chan struct{}),
	}
	go r.run()

	log.Info("recording started", "session", sess.ID, "mode", mode)
	return r, nil
}

// Add queues one input. Only one goroutine may call Add.
func (r *recorder) Add(in control.Input, mode tracking.Mode) {
	f := frameFromInput(r.session.StartedAt, r.seq, in, mode)
	r.seq++

	select {
	case r.frames <- f:
	default:
		r.dropped.Add(1)
	}
}

func (r *recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(recordFlushInterval)
	defer ticker.Stop()

	batch := make([]store.Frame, 0, recordBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.store.Frames().Append(r.session.ID, batch); err != nil {
			log.Error("failed to write frames", "session", r.session.ID, "frames", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case f, ok := <-r.frames:
			if !ok {
				flush()
				return
			}
			batch = append(batch, f)
			if len(batch) >= recordBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close flushes queued frames and finishes the session. Add must not be
// called after Close.
func (r *recorder) Close() (*store.Session, error) {
	close(r.frames)
	<-r.done

	if err := r.store.Sessions().Finish(r.session.ID, time.Now()); err != nil {
		return nil, err
	}
	sess, err := r.store.Sessions().Get(r.session.ID)
	if err != nil {
		return nil, err
	}

	log.Info("recording finished", "session", sess.ID, "frames", sess.Frames, "dropped", r.dropped.Load())
	return sess, nil
}

// StartRecording begins recording pipeline inputs into a new session.
func (a *App) StartRecording(name string) (*store.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.startRecordingLocked(name); err != nil {
		return nil, err
	}
	sess := a.recorder.session
	return &sess, nil
}

func (a *App) startRecordingLocked(name string) error {
	if a.config.Store == nil {
		return ErrNoStore
	}
	if a.recorder != nil {
		return ErrAlreadyRecording
	}

	cc := a.loop.Config()
	rec, err := newRecorder(a.config.Store, name, a.loop.Mode(), int(cc.FrameWidth), int(cc.FrameHeight))
	if err != nil {
		return err
	}
	a.recorder = rec
	return nil
}

// StopRecording finishes the active recording and returns its session.
func (a *App) StopRecording() (*store.Session, error) {
	a.mu.Lock()
	rec := a.recorder
	a.recorder = nil
	a.mu.Unlock()

	if rec == nil {
		return nil, ErrNotRecording
	}
	return rec.Close()
}

// Recording returns the active recording session, if any.
func (a *App) Recording() (*store.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.recorder == nil {
		return nil, false
	}
	sess := a.recorder.session
	return &sess, true
}

func frameFromInput(start time.Time, seq int, in control.Input, mode tracking.Mode) store.Frame {
	f := store.Frame{
		Seq:    seq,
		Offset: in.Time.Sub(start),
		Mode:   int(mode),
	}
	if in.Control != nil {
		f.Control = &store.Point{X: in.Control.X, Y: in.Control.Y}
	}
	if in.Pinch != nil {
		f.Pinch = &store.PointPair{
			Thumb: store.Point{X: in.Pinch.Thumb.X, Y: in.Pinch.Thumb.Y},
			Index: store.Point{X: in.Pinch.Index.X, Y: in.Pinch.Index.Y},
		}
	}
	return f
}

func inputFromFrame(start time.Time, f store.Frame) control.Input {
	in := control.Input{Time: start.Add(f.Offset)}
	if f.Control != nil {
		in.Control = &control.Point{X: f.Control.X, Y: f.Control.Y}
	}
	if f.Pinch != nil {
		in.Pinch = &control.Pinch{
			Thumb: control.Point{X: f.Pinch.Thumb.X, Y: f.Pinch.Thumb.Y},
			Index: control.Point{X: f.Pinch.Index.X, Y: f.Pinch.Index.Y},
		}
	}
	return in
}
