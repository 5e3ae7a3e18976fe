package logic

import (
	"fmt"
	"time"
)

// MonitorConfig tunes the engine. Zero values select the defaults.
type MonitorConfig struct {
	BlinkThreshold  float64
	MinConsecFrames int
	Thresholds      Thresholds
}

// FrameOutcome describes what ProcessFrame did with a frame.
type FrameOutcome string

const (
	FrameIgnored   FrameOutcome = "IGNORED"
	FrameNoFace    FrameOutcome = "NO_FACE"
	FrameSkipped   FrameOutcome = "SKIPPED"
	FrameProcessed FrameOutcome = "PROCESSED"
)

// FrameResult is returned for every frame handed to the monitor.
type FrameResult struct {
	Outcome  FrameOutcome
	Openness float64
	Event    *BlinkEvent
	// Err holds the geometry error for skipped frames.
	Err error
}

// Monitor owns the debouncer, session accumulator and classifier for one
// sensor. It is not safe for concurrent use: frames, ticks and control calls
// must be serialized by the caller.
type Monitor struct {
	debouncer  *Debouncer
	session    *Session
	classifier *Classifier

	sessionID string
	startedAt time.Time
	counts    Counts
	last      *Assessment
}

// NewMonitor creates an idle monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	th := cfg.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Monitor{
		debouncer:  NewDebouncer(cfg.BlinkThreshold, cfg.MinConsecFrames),
		session:    NewSession(),
		classifier: NewClassifier(th),
	}
}

// Start begins a new session. Starting again after a session finished is allowed.
func (m *Monitor) Start(id string, durationSeconds int, now time.Time) error {
	if err := m.session.Start(durationSeconds); err != nil {
		return err
	}
	m.debouncer.Reset()
	m.sessionID = id
	m.startedAt = now
	return nil
}

// ProcessFrame runs one frame through geometry and the debouncer.
// Frames outside a running session leave all state untouched.
func (m *Monitor) ProcessFrame(f Frame) FrameResult {
	if m.session.State() != SessionRunning {
		return FrameResult{Outcome: FrameIgnored}
	}
	if !f.FaceFound {
		m.counts.FramesNoFace++
		return FrameResult{Outcome: FrameNoFace}
	}

	v, err := Openness(f)
	if err != nil {
		m.counts.FramesSkipped++
		return FrameResult{Outcome: FrameSkipped, Err: err}
	}
	m.counts.FramesProcessed++

	res := FrameResult{Outcome: FrameProcessed, Openness: v}
	closed := m.debouncer.ClosedFrames()
	kind, ok := m.debouncer.Process(v)
	if !ok {
		return res
	}

	// The session is running, so OnBlink cannot fail on state.
	if err := m.session.OnBlink(kind); err != nil {
		res.Err = err
		return res
	}
	switch kind {
	case BlinkComplete:
		m.counts.CompleteBlinks++
	case BlinkIncomplete:
		m.counts.IncompleteBlinks++
	}
	res.Event = &BlinkEvent{
		Timestamp:    f.Time,
		SessionID:    m.sessionID,
		Kind:         kind,
		ClosedFrames: closed,
	}
	return res
}

// Tick advances the session clock by one second. The assessment is returned
// on the tick that reaches the configured duration, and only then.
func (m *Monitor) Tick(now time.Time) (*Assessment, error) {
	done, err := m.session.Tick()
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, nil
	}
	return m.finalize(now, FinishDuration), nil
}

// Stop ends the running session early and returns its assessment.
func (m *Monitor) Stop(now time.Time) (*Assessment, error) {
	if err := m.session.Stop(); err != nil {
		return nil, err
	}
	return m.finalize(now, FinishStopped), nil
}

func (m *Monitor) finalize(now time.Time, reason FinishReason) *Assessment {
	a := m.classifier.Assess(m.session.Counters())
	a.SessionID = m.sessionID
	a.StartedAt = m.startedAt
	a.FinishedAt = now
	a.Reason = reason
	a.DurationSeconds = m.session.Duration()

	m.debouncer.Reset()
	m.counts.Sessions++
	m.last = &a

	out := a
	out.Recommendations = append([]string(nil), a.Recommendations...)
	return &out
}

// Preview returns the live view without mutating anything.
func (m *Monitor) Preview() Preview {
	c := m.session.Counters()
	p := Preview{
		SessionID:        m.sessionID,
		State:            m.session.State(),
		DurationSeconds:  m.session.Duration(),
		ElapsedSeconds:   c.ElapsedSeconds,
		CompleteBlinks:   c.CompleteBlinks,
		IncompleteBlinks: c.IncompleteBlinks,
	}
	if p.State == SessionIdle {
		return p
	}
	p.BlinkRate = BlinkRate(c.CompleteBlinks, c.ElapsedSeconds)
	p.Level = m.classifier.Classify(p.BlinkRate)
	return p
}

// LastAssessment returns the most recent finalized assessment.
func (m *Monitor) LastAssessment() (Assessment, bool) {
	if m.last == nil {
		return Assessment{}, false
	}
	a := *m.last
	a.Recommendations = append([]string(nil), m.last.Recommendations...)
	return a, true
}

// State returns the session lifecycle state.
func (m *Monitor) State() SessionState {
	return m.session.State()
}

// SessionID returns the id of the current or most recent session.
func (m *Monitor) SessionID() string {
	return m.sessionID
}

// Counts returns lifetime totals.
func (m *Monitor) Counts() Counts {
	return m.counts
}

// String implements fmt.Stringer for log lines.
func (p Preview) String() string {
	return fmt.Sprintf("%s %d/%ds blinks=%d incomplete=%d rate=%.1f level=%s",
		p.State, p.ElapsedSeconds, p.DurationSeconds, p.CompleteBlinks, p.IncompleteBlinks, p.BlinkRate, p.Level)
}
