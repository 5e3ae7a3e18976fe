package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

var testTime = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func testAssessment() logic.Assessment {
	return logic.Assessment{
		SessionID:         "s-1",
		StartedAt:         testTime,
		FinishedAt:        testTime.Add(time.Minute),
		Reason:            logic.FinishDuration,
		DurationSeconds:   60,
		ElapsedSeconds:    60,
		CompleteBlinks:    13,
		IncompleteBlinks:  2,
		BlinkRate:         13,
		Level:             logic.RiskNormal,
		Label:             "Normal",
		Description:       "Healthy Eye Function",
		HealthScore:       82,
		IncompletePercent: 13,
		Recommendations:   []string{"Keep it up"},
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "health/dryeye/sensor/blinks", TopicBlinks)
	assert.Equal(t, "health/dryeye/sensor/assessments", TopicAssessments)
	assert.Equal(t, "health/dryeye/sensor/system", TopicSystem)
}

func TestFormatBlinkPayloadExactJSON(t *testing.T) {
	event := logic.BlinkEvent{
		Timestamp:    time.Date(2026, 2, 2, 23, 18, 12, 500000000, time.FixedZone("CET", 3600)),
		SessionID:    "s-1",
		Kind:         logic.BlinkIncomplete,
		ClosedFrames: 1,
	}

	payload, err := FormatBlinkPayload(event)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"blink":{"timestamp":"2026-02-02T22:18:12.5Z","session_id":"s-1","kind":"BLINK_INCOMPLETE","closed_frames":1}}`,
		string(payload))
}

func TestFormatAssessmentPayload(t *testing.T) {
	a := testAssessment()
	a.StartedAt = a.StartedAt.In(time.FixedZone("EST", -5*3600))

	payload, err := FormatAssessmentPayload(a)
	require.NoError(t, err)

	var parsed struct {
		Assessment map[string]interface{} `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(payload, &parsed))
	got := parsed.Assessment
	assert.Equal(t, "s-1", got["session_id"])
	assert.Equal(t, "2026-02-02T22:18:12Z", got["started_at"])
	assert.Equal(t, "normal", got["risk_level"])
	assert.Equal(t, "duration", got["reason"])
	assert.Equal(t, float64(82), got["health_score"])
	assert.Equal(t, []interface{}{"Keep it up"}, got["recommendations"])
}

func TestFormatAssessmentPayloadEmptyRecommendations(t *testing.T) {
	a := testAssessment()
	a.Recommendations = nil

	payload, err := FormatAssessmentPayload(a)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"recommendations":[]`)
}

func TestFormatSystemPayload(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			name:  "shutdown",
			event: SystemEvent{Timestamp: testTime, Event: EventShutdown, Reason: "SIGTERM"},
			want:  `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			name:  "session start",
			event: SystemEvent{Timestamp: testTime, Event: EventSessionStart, SessionID: "abc"},
			want:  `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SESSION_START","session_id":"abc"}}`,
		},
		{
			name:  "reconnected",
			event: SystemEvent{Timestamp: testTime, Event: EventReconnected},
			want:  `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(payload))
		})
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP","config":{}}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventStartup, RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, payload)
}

func TestWillPayload(t *testing.T) {
	assert.JSONEq(t, `{"system":{"event":"OFFLINE"}}`, string(WillPayload()))
}

func TestFakePublisherRecordsInOrder(t *testing.T) {
	f := NewFakePublisher()
	var _ Publisher = f
	var _ ConnectionStatus = f

	blink := logic.BlinkEvent{Timestamp: testTime, SessionID: "s-1", Kind: logic.BlinkComplete, ClosedFrames: 3}
	require.NoError(t, f.PublishBlink(blink))
	require.NoError(t, f.PublishAssessment(testAssessment()))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: testTime, Event: EventStartup, Retained: true}))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: testTime, Event: EventHeartbeat}))

	assert.Equal(t, []logic.BlinkEvent{blink}, f.Blinks)
	require.Len(t, f.Assessments, 1)
	assert.Equal(t, "s-1", f.Assessments[0].SessionID)
	require.Len(t, f.Payloads, 2)
	assert.Contains(t, string(f.Payloads[0]), `"blink"`)
	assert.Contains(t, string(f.Payloads[1]), `"assessment"`)
	assert.Equal(t, []string{EventStartup, EventHeartbeat}, f.SystemEventNames())
	assert.True(t, f.SystemEvents[0].Retained)
	assert.Len(t, f.SystemPayloads, 2)
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	assert.EqualError(t, f.PublishBlink(logic.BlinkEvent{}), "simulated error")
	assert.EqualError(t, f.PublishAssessment(testAssessment()), "simulated error")
	assert.EqualError(t, f.PublishSystem(SystemEvent{Event: EventHeartbeat}), "simulated system error")
	assert.Empty(t, f.Blinks)
	assert.Empty(t, f.Assessments)
	assert.Empty(t, f.SystemEvents)
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	require.NoError(t, f.PublishBlink(logic.BlinkEvent{}))
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	assert.True(t, f.IsConnected())

	f.Reset()
	assert.False(t, f.Closed)
	assert.False(t, f.IsConnected())
	assert.Empty(t, f.Blinks)
	assert.Empty(t, f.Payloads)

	require.NoError(t, f.PublishBlink(logic.BlinkEvent{}))
	assert.Len(t, f.Blinks, 1, "reusable after reset")
}
