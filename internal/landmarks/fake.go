package landmarks

import "github.com/sweeney/dryeye-sensor/internal/logic"

// FakeSource is a test double that delivers scripted frames.
type FakeSource struct {
	frames chan logic.Frame

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with room for capacity undelivered frames.
func NewFakeSource(capacity int) *FakeSource {
	return &FakeSource{frames: make(chan logic.Frame, capacity)}
}

// Push queues a frame for delivery. It blocks when the buffer is full.
func (f *FakeSource) Push(frames ...logic.Frame) {
	for _, fr := range frames {
		f.frames <- fr
	}
}

// Frames returns the delivery channel.
func (f *FakeSource) Frames() <-chan logic.Frame {
	return f.frames
}

// Close closes the delivery channel.
func (f *FakeSource) Close() error {
	if !f.Closed {
		f.Closed = true
		close(f.frames)
	}
	return nil
}
