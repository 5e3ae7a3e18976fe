package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		BlinkThreshold:  0.27,
		MinConsecFrames: 2,
		SessionSeconds:  60,
		HeartbeatMs:     900000,
		Broker:          "tcp://localhost:1883",
		LandmarkTopic:   "health/dryeye/landmarks",
		HTTPAddr:        ":8080",
		ButtonPin:       -1,
	}
}

func runningPreview() logic.Preview {
	return logic.Preview{
		SessionID:        "s-1",
		State:            logic.SessionRunning,
		DurationSeconds:  60,
		ElapsedSeconds:   20,
		CompleteBlinks:   5,
		IncompleteBlinks: 1,
		BlinkRate:        15,
		Level:            logic.RiskNormal,
	}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, 60, snap.Config.SessionSeconds)
	assert.Equal(t, logic.SessionIdle, snap.Preview.State)
	assert.Nil(t, snap.Assessment)
	assert.False(t, snap.MQTTConnected)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, testConfig())
	tr.Update(runningPreview(), logic.Counts{Sessions: 1, CompleteBlinks: 5, FramesProcessed: 600})
	tr.SetMQTTConnected(true)

	snap := tr.SnapshotAt(start.Add(90 * time.Second))
	assert.Equal(t, runningPreview(), snap.Preview)
	assert.Equal(t, 600, snap.Counts.FramesProcessed)
	assert.True(t, snap.MQTTConnected)
	assert.Equal(t, 90*time.Second, snap.Uptime())
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	before := time.Now()
	snap := tr.Snapshot()
	assert.False(t, snap.Now.Before(before))
}

func TestSnapshotAssessmentIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	a := logic.Assessment{SessionID: "s-1", Recommendations: []string{"rest"}}
	tr.SetAssessment(a)
	a.Recommendations[0] = "mutated"

	snap := tr.Snapshot()
	require.NotNil(t, snap.Assessment)
	snap.Assessment.SessionID = "changed"

	again := tr.Snapshot()
	assert.Equal(t, "s-1", again.Assessment.SessionID)
	assert.Equal(t, []string{"rest"}, again.Assessment.Recommendations)
}

func TestFormatJSON(t *testing.T) {
	tr := NewTracker(start, testConfig())
	tr.Update(runningPreview(), logic.Counts{Sessions: 1, CompleteBlinks: 5, IncompleteBlinks: 1, FramesNoFace: 3})
	tr.SetMQTTConnected(true)

	data := FormatJSON(tr.SnapshotAt(start.Add(42*time.Second + 500*time.Millisecond)))

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	s := parsed.Status
	assert.Empty(t, s.Event)
	assert.Equal(t, "RUNNING", s.Session.State)
	assert.Equal(t, "s-1", s.Session.ID)
	assert.Equal(t, 40, s.Session.RemainingSeconds)
	assert.Equal(t, "normal", s.Session.RiskLevel)
	assert.Equal(t, 15.0, s.Session.BlinkRate)
	assert.Equal(t, int64(42), s.UptimeSeconds)
	assert.Equal(t, "2026-01-01T00:00:00Z", s.StartTime)
	assert.Equal(t, "2026-01-01T00:00:42Z", s.Timestamp)
	assert.Equal(t, MQTTStatus{Connected: true, Broker: "tcp://localhost:1883"}, s.MQTT)
	assert.Equal(t, 3, s.Counts.FramesNoFace)
	assert.Equal(t, 0.27, s.Config.BlinkThreshold)
	assert.Nil(t, s.Config.ButtonPin)
	assert.Nil(t, s.LastAssessment)
	assert.Contains(t, string(data), "\n  ", "web output is indented")
}

func TestFormatJSONIdle(t *testing.T) {
	cfg := testConfig()
	cfg.ButtonPin = 17
	data := FormatJSON(NewTracker(start, cfg).SnapshotAt(start))

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "IDLE", parsed.Status.Session.State)
	assert.Empty(t, parsed.Status.Session.RiskLevel)
	assert.Zero(t, parsed.Status.Session.RemainingSeconds)
	require.NotNil(t, parsed.Status.Config.ButtonPin)
	assert.Equal(t, 17, *parsed.Status.Config.ButtonPin)
}

func TestFormatJSONFinishedWithAssessment(t *testing.T) {
	tr := NewTracker(start, testConfig())
	p := runningPreview()
	p.State = logic.SessionFinished
	p.ElapsedSeconds = 60
	tr.Update(p, logic.Counts{})
	tr.SetAssessment(logic.Assessment{SessionID: "s-1", Level: logic.RiskStress, BlinkRate: 19, HealthScore: 64})

	data := FormatJSON(tr.SnapshotAt(start))

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "FINISHED", parsed.Status.Session.State)
	assert.Zero(t, parsed.Status.Session.RemainingSeconds)
	require.NotNil(t, parsed.Status.LastAssessment)
	assert.Equal(t, logic.RiskStress, parsed.Status.LastAssessment.Level)
	assert.Equal(t, 64, parsed.Status.LastAssessment.HealthScore)
}

func TestFormatStatusEvent(t *testing.T) {
	snap := NewTracker(start, testConfig()).SnapshotAt(start)

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	assert.NotContains(t, string(data), "\n", "MQTT payloads are compact")

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SIGTERM", parsed.Status.Reason)

	data = FormatStatusEvent(snap, "STARTUP", "")
	assert.NotContains(t, string(data), `"reason"`)
	assert.Contains(t, string(data), `"event":"STARTUP"`)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Preview{State: logic.SessionRunning, ElapsedSeconds: i}, logic.Counts{FramesProcessed: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetAssessment(logic.Assessment{ElapsedSeconds: i})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
