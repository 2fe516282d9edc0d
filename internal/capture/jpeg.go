package capture

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// JPEGBuffer holds the most recent frame encoded as JPEG. Frames are only
// encoded while at least one subscriber is attached.
type JPEGBuffer struct {
	mu   sync.RWMutex
	data []byte
	seq  uint64

	subscribers atomic.Int32
}

// NewJPEGBuffer creates an empty buffer.
func NewJPEGBuffer() *JPEGBuffer {
	return &JPEGBuffer{}
}

// Subscribe registers interest in frames. The returned function removes the
// subscription.
func (b *JPEGBuffer) Subscribe() func() {
	b.subscribers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { b.subscribers.Add(-1) })
	}
}

// Subscribers returns the number of attached subscribers.
func (b *JPEGBuffer) Subscribers() int {
	return int(b.subscribers.Load())
}

// Publish encodes frame when anyone is subscribed. It reports whether a new
// image was stored.
func (b *JPEGBuffer) Publish(frame gocv.Mat) bool {
	if b.Subscribers() == 0 || frame.Empty() {
		return false
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return false
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	b.mu.Lock()
	b.data = data
	b.seq++
	b.mu.Unlock()
	return true
}

// Latest returns the last stored image and its sequence number. The sequence
// is zero before the first Publish.
func (b *JPEGBuffer) Latest() ([]byte, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data, b.seq
}
