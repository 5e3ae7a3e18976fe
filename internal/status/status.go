// Package status provides a thread-safe status tracker for the dryeye-sensor daemon.
// It is written by the event loop and read by HTTP handlers and the websocket feed.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	BlinkThreshold  float64
	MinConsecFrames int
	SessionSeconds  int
	HeartbeatMs     int64
	Broker          string
	LandmarkTopic   string
	HTTPAddr        string
	RedisStream     string // empty = disabled
	ButtonPin       int    // negative = disabled
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Preview       logic.Preview
	Assessment    *logic.Assessment
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Preview:   logic.Preview{State: logic.SessionIdle},
			Config:    cfg,
		},
	}
}

// Update sets the live session preview and lifetime counts.
// Called from runLoop after every frame batch and tick.
func (t *Tracker) Update(preview logic.Preview, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Preview = preview
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetAssessment records the most recent finalized assessment.
func (t *Tracker) SetAssessment(a logic.Assessment) {
	a.Recommendations = append([]string(nil), a.Recommendations...)
	t.mu.Lock()
	t.snap.Assessment = &a
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	return t.SnapshotAt(time.Now())
}

// SnapshotAt is Snapshot with an explicit Now.
func (t *Tracker) SnapshotAt(now time.Time) Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Assessment != nil {
		a := *s.Assessment
		s.Assessment = &a
	}
	s.Now = now
	return s
}
