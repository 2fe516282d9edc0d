package capture

import (
	"bytes"
	"testing"

	"gocv.io/x/gocv"
)

func TestJPEGBuffer(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	b := NewJPEGBuffer()

	t.Run("no subscribers skips encoding", func(t *testing.T) {
		if b.Publish(frame) {
			t.Error("Publish() should not encode without subscribers")
		}
		if _, seq := b.Latest(); seq != 0 {
			t.Errorf("seq = %d, want 0", seq)
		}
	})

	t.Run("subscriber receives jpeg", func(t *testing.T) {
		unsubscribe := b.Subscribe()
		defer unsubscribe()

		if !b.Publish(frame) {
			t.Fatal("Publish() should encode with a subscriber")
		}
		data, seq := b.Latest()
		if seq != 1 {
			t.Errorf("seq = %d, want 1", seq)
		}
		// JPEG start-of-image marker.
		if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
			t.Error("data is not a JPEG image")
		}
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		unsubscribe := b.Subscribe()
		unsubscribe()
		unsubscribe()
		if n := b.Subscribers(); n != 0 {
			t.Errorf("Subscribers() = %d, want 0", n)
		}
	})
}
