package logic

// Default debounce tuning.
const (
	DefaultBlinkThreshold  = 0.27
	DefaultMinConsecFrames = 2
)

// Debouncer turns a per-frame openness signal into discrete blink events.
// It is either Open (closed == 0) or Closing(closed) while openness stays
// below the threshold. A closure that never reopens never emits an event.
type Debouncer struct {
	threshold float64
	minFrames int
	closed    int
}

// NewDebouncer creates a debouncer. Non-positive arguments select the defaults.
func NewDebouncer(threshold float64, minFrames int) *Debouncer {
	if threshold <= 0 {
		threshold = DefaultBlinkThreshold
	}
	if minFrames <= 0 {
		minFrames = DefaultMinConsecFrames
	}
	return &Debouncer{threshold: threshold, minFrames: minFrames}
}

// Process consumes one openness sample and returns at most one event.
func (d *Debouncer) Process(v float64) (BlinkKind, bool) {
	if v < d.threshold {
		d.closed++
		return "", false
	}

	if d.closed == 0 {
		return "", false
	}

	kind := BlinkIncomplete
	if d.closed >= d.minFrames {
		kind = BlinkComplete
	}
	d.closed = 0
	return kind, true
}

// ClosedFrames returns the length of the current below-threshold run.
func (d *Debouncer) ClosedFrames() int {
	return d.closed
}

// Reset returns the debouncer to Open.
func (d *Debouncer) Reset() {
	d.closed = 0
}

// Threshold returns the configured openness threshold.
func (d *Debouncer) Threshold() float64 {
	return d.threshold
}

// MinFrames returns the configured minimum closed run for a complete blink.
func (d *Debouncer) MinFrames() int {
	return d.minFrames
}
