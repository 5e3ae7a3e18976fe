package logic

import "fmt"

// DefaultSessionSeconds is the default observation window.
const DefaultSessionSeconds = 60

// Session accumulates blink counts over a fixed number of one-second ticks.
// Finalization happens exactly once per session, on whichever of Tick reaching
// the duration or Stop comes first.
type Session struct {
	state    SessionState
	duration int
	counters Counters
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{state: SessionIdle}
}

// Start resets all counters and begins a new window.
func (s *Session) Start(durationSeconds int) error {
	if s.state == SessionRunning {
		return fmt.Errorf("%w: start while running", ErrSessionState)
	}
	if durationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrSessionState, durationSeconds)
	}
	s.state = SessionRunning
	s.duration = durationSeconds
	s.counters = Counters{}
	return nil
}

// OnBlink records a debounced event.
func (s *Session) OnBlink(kind BlinkKind) error {
	if s.state != SessionRunning {
		return fmt.Errorf("%w: blink while %s", ErrSessionState, s.state)
	}
	switch kind {
	case BlinkComplete:
		s.counters.CompleteBlinks++
	case BlinkIncomplete:
		s.counters.IncompleteBlinks++
	default:
		return fmt.Errorf("unknown blink kind %q", kind)
	}
	return nil
}

// Tick advances the window by one second. It reports true when this tick
// finalized the session.
func (s *Session) Tick() (bool, error) {
	if s.state != SessionRunning {
		return false, fmt.Errorf("%w: tick while %s", ErrSessionState, s.state)
	}
	s.counters.ElapsedSeconds++
	if s.counters.ElapsedSeconds >= s.duration {
		s.state = SessionFinished
		return true, nil
	}
	return false, nil
}

// Stop finalizes the session early with whatever has been accumulated.
func (s *Session) Stop() error {
	if s.state != SessionRunning {
		return fmt.Errorf("%w: stop while %s", ErrSessionState, s.state)
	}
	s.state = SessionFinished
	return nil
}

// State returns the lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

// Duration returns the configured window length in seconds.
func (s *Session) Duration() int {
	return s.duration
}

// Counters returns a copy of the accumulated values.
func (s *Session) Counters() Counters {
	return s.counters
}

// BlinkRate returns complete blinks per minute. Zero elapsed time counts as one second.
func BlinkRate(complete, elapsedSeconds int) float64 {
	if elapsedSeconds <= 0 {
		elapsedSeconds = 1
	}
	return float64(complete) / (float64(elapsedSeconds) / 60)
}
