package control

import (
	"context"
	"sync/atomic"
)

// PoseSlot hands poses from the control loop to a consumer that runs on its
// own schedule. It buffers at most one pose: Offer never blocks and drops the
// pose when the previous one has not been taken yet.
type PoseSlot struct {
	ch      chan Pose
	latest  atomic.Pointer[Pose]
	dropped atomic.Uint64
}

// NewPoseSlot creates an empty slot.
func NewPoseSlot() *PoseSlot {
	return &PoseSlot{ch: make(chan Pose, 1)}
}

// Offer enqueues p if the slot is empty and reports whether it did.
// The pose is recorded as the latest either way.
func (s *PoseSlot) Offer(p Pose) bool {
	s.latest.Store(&p)
	select {
	case s.ch <- p:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Receive waits for the next pose or for ctx to end.
func (s *PoseSlot) Receive(ctx context.Context) (Pose, error) {
	select {
	case p := <-s.ch:
		return p, nil
	case <-ctx.Done():
		return Pose{}, ctx.Err()
	}
}

// C exposes the slot channel for use in select statements.
func (s *PoseSlot) C() <-chan Pose {
	return s.ch
}

// Latest returns the most recently offered pose, and false before the first Offer.
func (s *PoseSlot) Latest() (Pose, bool) {
	p := s.latest.Load()
	if p == nil {
		return Pose{}, false
	}
	return *p, true
}

// Dropped returns how many offers found the slot full.
func (s *PoseSlot) Dropped() uint64 {
	return s.dropped.Load()
}
