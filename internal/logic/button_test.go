package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestButtonBaseline(t *testing.T) {
	b := NewButtonDetector(50 * time.Millisecond)

	assert.False(t, b.Process(true, timeZero))
	assert.False(t, b.IsBaselined())
	assert.False(t, b.Process(true, timeZero.Add(50*time.Millisecond)))
	assert.True(t, b.IsBaselined())
	// Held down at startup is a baseline, not a press.
	assert.True(t, b.Pressed())
}

func TestButtonPress(t *testing.T) {
	b := NewButtonDetector(50 * time.Millisecond)
	b.Process(false, timeZero)
	b.Process(false, timeZero.Add(50*time.Millisecond))

	now := timeZero.Add(time.Second)
	assert.False(t, b.Process(true, now))
	assert.False(t, b.Process(true, now.Add(20*time.Millisecond)))
	assert.True(t, b.Process(true, now.Add(50*time.Millisecond)))
	assert.False(t, b.Process(true, now.Add(70*time.Millisecond)), "held button reports once")

	// Release is debounced but not reported.
	assert.False(t, b.Process(false, now.Add(100*time.Millisecond)))
	assert.False(t, b.Process(false, now.Add(150*time.Millisecond)))
	assert.False(t, b.Pressed())
}

func TestButtonBounceRejected(t *testing.T) {
	b := NewButtonDetector(50 * time.Millisecond)
	b.Process(false, timeZero)
	b.Process(false, timeZero.Add(50*time.Millisecond))

	now := timeZero.Add(time.Second)
	assert.False(t, b.Process(true, now))
	assert.False(t, b.Process(false, now.Add(10*time.Millisecond)))
	assert.False(t, b.Process(true, now.Add(20*time.Millisecond)))
	// Pending restarted at +20ms, so +60ms is not yet enough.
	assert.False(t, b.Process(true, now.Add(60*time.Millisecond)))
	assert.True(t, b.Process(true, now.Add(70*time.Millisecond)))
}
