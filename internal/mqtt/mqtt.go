// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// TopicBlinks is the MQTT topic for debounced blink events.
const TopicBlinks = "health/dryeye/sensor/blinks"

// TopicAssessments is the MQTT topic for finalized session assessments.
const TopicAssessments = "health/dryeye/sensor/assessments"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "health/dryeye/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishBlink sends a blink event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishBlink(event logic.BlinkEvent) error

	// PublishAssessment sends a finalized assessment to the broker.
	PublishAssessment(a logic.Assessment) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// System event names.
const (
	EventStartup      = "STARTUP"
	EventShutdown     = "SHUTDOWN"
	EventHeartbeat    = "HEARTBEAT"
	EventSessionStart = "SESSION_START"
	EventReconnected  = "RECONNECTED"
	EventOffline      = "OFFLINE"
)

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	SessionID  string // SESSION_START only
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// BlinkPayload represents the MQTT message payload for a blink event.
type BlinkPayload struct {
	Blink BlinkPayloadInner `json:"blink"`
}

// BlinkPayloadInner contains the blink event details.
type BlinkPayloadInner struct {
	Timestamp    string `json:"timestamp"`
	SessionID    string `json:"session_id"`
	Kind         string `json:"kind"`
	ClosedFrames int    `json:"closed_frames"`
}

// FormatBlinkPayload creates the JSON payload for a blink event.
func FormatBlinkPayload(event logic.BlinkEvent) ([]byte, error) {
	payload := BlinkPayload{
		Blink: BlinkPayloadInner{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339Nano),
			SessionID:    event.SessionID,
			Kind:         string(event.Kind),
			ClosedFrames: event.ClosedFrames,
		},
	}
	return json.Marshal(payload)
}

// AssessmentPayload represents the MQTT message payload for an assessment.
type AssessmentPayload struct {
	Assessment logic.Assessment `json:"assessment"`
}

// FormatAssessmentPayload creates the JSON payload for a finalized assessment.
func FormatAssessmentPayload(a logic.Assessment) ([]byte, error) {
	a.StartedAt = a.StartedAt.UTC()
	a.FinishedAt = a.FinishedAt.UTC()
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return json.Marshal(AssessmentPayload{Assessment: a})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED, SESSION_START) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			SessionID: event.SessionID,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the retained last-will message the broker publishes when
// the sensor disappears without a clean disconnect.
func WillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: EventOffline}})
	return b
}
