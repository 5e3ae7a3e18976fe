package logic

import "errors"

var (
	// ErrDegenerateGeometry is returned when an eye's corner points are too close
	// together to measure openness. Callers skip the frame.
	ErrDegenerateGeometry = errors.New("degenerate eye geometry")

	// ErrInvalidLandmarkCount is returned when an eye is not described by exactly
	// six points.
	ErrInvalidLandmarkCount = errors.New("invalid landmark count")

	// ErrSessionState is returned when a session operation is invoked in the
	// wrong lifecycle state.
	ErrSessionState = errors.New("invalid session state")
)
