package logic

import "time"

// ButtonDetector debounces a push-button level signal and reports presses.
// A level must hold for the debounce duration before it becomes stable, and the
// first stable level only establishes a baseline.
type ButtonDetector struct {
	debounce     time.Duration
	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// NewButtonDetector creates a detector with the given debounce duration.
func NewButtonDetector(debounce time.Duration) *ButtonDetector {
	return &ButtonDetector{debounce: debounce}
}

// Process takes a level sample and reports true on a debounced press
// (released -> pressed). Releases are tracked but not reported.
func (b *ButtonDetector) Process(pressed bool, now time.Time) bool {
	if !b.baselined {
		if !b.hasPending || b.pending != pressed {
			b.pending = pressed
			b.hasPending = true
			b.pendingSince = now
			return false
		}
		if now.Sub(b.pendingSince) >= b.debounce {
			b.stable = pressed
			b.baselined = true
			b.hasPending = false
		}
		return false
	}

	if pressed == b.stable {
		b.hasPending = false
		return false
	}

	if !b.hasPending || b.pending != pressed {
		b.pending = pressed
		b.hasPending = true
		b.pendingSince = now
		return false
	}

	if now.Sub(b.pendingSince) >= b.debounce {
		b.stable = pressed
		b.hasPending = false
		return pressed
	}
	return false
}

// IsBaselined returns whether the initial level has been established.
func (b *ButtonDetector) IsBaselined() bool {
	return b.baselined
}

// Pressed returns the current stable level.
func (b *ButtonDetector) Pressed() bool {
	return b.stable
}
