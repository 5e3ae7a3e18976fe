package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string            `json:"event,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Session        SessionJSON       `json:"session"`
	LastAssessment *logic.Assessment `json:"last_assessment,omitempty"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	StartTime      string            `json:"start_time"`
	Timestamp      string            `json:"timestamp"`
	MQTT           MQTTStatus        `json:"mqtt"`
	Counts         CountsJSON        `json:"counts"`
	Config         ConfigJSON        `json:"config"`
}

// SessionJSON is the live preview of the current or last session.
type SessionJSON struct {
	ID               string  `json:"id,omitempty"`
	State            string  `json:"state"`
	DurationSeconds  int     `json:"duration_seconds"`
	ElapsedSeconds   int     `json:"elapsed_seconds"`
	RemainingSeconds int     `json:"remaining_seconds"`
	CompleteBlinks   int     `json:"complete_blinks"`
	IncompleteBlinks int     `json:"incomplete_blinks"`
	BlinkRate        float64 `json:"blink_rate"`
	RiskLevel        string  `json:"risk_level,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of lifetime counts.
type CountsJSON struct {
	Sessions         int `json:"sessions"`
	CompleteBlinks   int `json:"complete_blinks"`
	IncompleteBlinks int `json:"incomplete_blinks"`
	FramesProcessed  int `json:"frames_processed"`
	FramesSkipped    int `json:"frames_skipped"`
	FramesNoFace     int `json:"frames_no_face"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BlinkThreshold  float64 `json:"blink_threshold"`
	MinConsecFrames int     `json:"min_consec_frames"`
	SessionSeconds  int     `json:"session_seconds"`
	HeartbeatMs     int64   `json:"heartbeat_ms"`
	Broker          string  `json:"broker"`
	LandmarkTopic   string  `json:"landmark_topic"`
	HTTPAddr        string  `json:"http_addr"`
	RedisStream     string  `json:"redis_stream,omitempty"`
	ButtonPin       *int    `json:"button_pin,omitempty"`
}

// NewSessionJSON converts a preview for display.
func NewSessionJSON(p logic.Preview) SessionJSON {
	s := SessionJSON{
		ID:               p.SessionID,
		State:            string(p.State),
		DurationSeconds:  p.DurationSeconds,
		ElapsedSeconds:   p.ElapsedSeconds,
		CompleteBlinks:   p.CompleteBlinks,
		IncompleteBlinks: p.IncompleteBlinks,
		BlinkRate:        p.BlinkRate,
	}
	if s.State == "" {
		s.State = string(logic.SessionIdle)
	}
	if p.State != logic.SessionIdle && p.State != "" {
		s.RiskLevel = p.Level.String()
	}
	if p.State == logic.SessionRunning {
		s.RemainingSeconds = p.DurationSeconds - p.ElapsedSeconds
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Session:        NewSessionJSON(snap.Preview),
		LastAssessment: snap.Assessment,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Sessions:         snap.Counts.Sessions,
			CompleteBlinks:   snap.Counts.CompleteBlinks,
			IncompleteBlinks: snap.Counts.IncompleteBlinks,
			FramesProcessed:  snap.Counts.FramesProcessed,
			FramesSkipped:    snap.Counts.FramesSkipped,
			FramesNoFace:     snap.Counts.FramesNoFace,
		},
		Config: ConfigJSON{
			BlinkThreshold:  snap.Config.BlinkThreshold,
			MinConsecFrames: snap.Config.MinConsecFrames,
			SessionSeconds:  snap.Config.SessionSeconds,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			LandmarkTopic:   snap.Config.LandmarkTopic,
			HTTPAddr:        snap.Config.HTTPAddr,
			RedisStream:     snap.Config.RedisStream,
		},
	}
	if snap.Config.ButtonPin >= 0 {
		pin := snap.Config.ButtonPin
		inner.Config.ButtonPin = &pin
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
