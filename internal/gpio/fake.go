package gpio

import "errors"

// FakeReader replays a scripted sequence of button levels. Once the script is
// exhausted the last level is held, like a button left alone.
type FakeReader struct {
	// Samples are the pressed levels returned by successive Read calls.
	Samples []bool

	// ReadError, if set, is returned by every Read.
	ReadError error

	// Reads counts Read calls, including failed ones.
	Reads int

	// Closed reports whether Close was called.
	Closed bool

	next int
}

// NewFakeReader scripts the given levels.
func NewFakeReader(samples ...bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Tap appends a release/press/release pattern, each level held for hold samples.
func (f *FakeReader) Tap(hold int) {
	for _, level := range []bool{false, true, false} {
		for i := 0; i < hold; i++ {
			f.Samples = append(f.Samples, level)
		}
	}
}

// Read returns the next scripted level.
func (f *FakeReader) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("gpio: fake reader has no samples")
	}

	if f.next >= len(f.Samples) {
		return f.Samples[len(f.Samples)-1], nil
	}
	level := f.Samples[f.next]
	f.next++
	return level, nil
}

// Close marks the reader closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script and clears Reads and Closed.
func (f *FakeReader) Reset() {
	f.next = 0
	f.Reads = 0
	f.Closed = false
}
