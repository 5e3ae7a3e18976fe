// Package logic contains the pure blink detection and risk classification engine.
// This package has NO external dependencies (no MQTT, HTTP, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Point is a normalized, image-relative landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyePoints is the number of landmarks describing one eye.
const EyePoints = 6

// EyeLandmarks holds the six eye contour points in fixed order:
// p0,p3 are the horizontal corners, p1,p2 the upper lid and p4,p5 the lower lid.
// p1 pairs with p5 and p2 pairs with p4.
type EyeLandmarks [EyePoints]Point

// Frame is one processed detector output.
type Frame struct {
	Time      time.Time
	FaceFound bool
	Left      EyeLandmarks
	Right     EyeLandmarks
}

// NewFrame builds a frame with a detected face, validating both eyes.
func NewFrame(t time.Time, left, right []Point) (Frame, error) {
	l, err := eyeFromSlice("left", left)
	if err != nil {
		return Frame{}, err
	}
	r, err := eyeFromSlice("right", right)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Time: t, FaceFound: true, Left: l, Right: r}, nil
}

// NoFaceFrame builds a frame for which the detector found no face.
func NoFaceFrame(t time.Time) Frame {
	return Frame{Time: t}
}

func eyeFromSlice(side string, pts []Point) (EyeLandmarks, error) {
	var eye EyeLandmarks
	if len(pts) != EyePoints {
		return eye, fmt.Errorf("%w: %s eye has %d points, want %d", ErrInvalidLandmarkCount, side, len(pts), EyePoints)
	}
	copy(eye[:], pts)
	return eye, nil
}

// BlinkKind classifies a debounced eyelid closure.
type BlinkKind string

const (
	BlinkComplete   BlinkKind = "BLINK_COMPLETE"
	BlinkIncomplete BlinkKind = "BLINK_INCOMPLETE"
)

// BlinkEvent is emitted when the eye reopens after a closure.
type BlinkEvent struct {
	Timestamp    time.Time
	SessionID    string
	Kind         BlinkKind
	ClosedFrames int
}

// SessionState is the lifecycle state of the session accumulator.
type SessionState string

const (
	SessionIdle     SessionState = "IDLE"
	SessionRunning  SessionState = "RUNNING"
	SessionFinished SessionState = "FINISHED"
)

// FinishReason records which of the two finalization paths ended a session.
type FinishReason string

const (
	FinishDuration FinishReason = "duration"
	FinishStopped  FinishReason = "stopped"
)

// Counters are the per-session accumulator values.
type Counters struct {
	ElapsedSeconds   int
	CompleteBlinks   int
	IncompleteBlinks int
}

// Counts tracks lifetime totals since startup.
type Counts struct {
	Sessions         int
	CompleteBlinks   int
	IncompleteBlinks int
	FramesProcessed  int
	FramesSkipped    int
	FramesNoFace     int
}

// Preview is the live, read-only view of a running session.
type Preview struct {
	SessionID        string
	State            SessionState
	DurationSeconds  int
	ElapsedSeconds   int
	CompleteBlinks   int
	IncompleteBlinks int
	BlinkRate        float64
	Level            RiskLevel
}

// Assessment is the immutable result of a finalized session.
type Assessment struct {
	SessionID         string       `json:"session_id"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
	Reason            FinishReason `json:"reason"`
	DurationSeconds   int          `json:"duration_seconds"`
	ElapsedSeconds    int          `json:"elapsed_seconds"`
	CompleteBlinks    int          `json:"complete_blinks"`
	IncompleteBlinks  int          `json:"incomplete_blinks"`
	BlinkRate         float64      `json:"blink_rate"`
	Level             RiskLevel    `json:"risk_level"`
	Label             string       `json:"label"`
	Description       string       `json:"description"`
	HealthScore       int          `json:"health_score"`
	IncompletePercent int          `json:"incomplete_percent"`
	Recommendations   []string     `json:"recommendations"`
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
