package logic

import (
	"fmt"
	"math"
)

// minEyeWidth is the smallest corner-to-corner distance accepted as a real eye.
const minEyeWidth = 1e-6

// EyeAspectRatio returns (|p1-p5| + |p2-p4|) / (2 * |p0-p3|).
func EyeAspectRatio(eye EyeLandmarks) (float64, error) {
	width := distance(eye[0], eye[3])
	if width < minEyeWidth || math.IsNaN(width) {
		return 0, fmt.Errorf("%w: eye width %g", ErrDegenerateGeometry, width)
	}
	a := distance(eye[1], eye[5])
	b := distance(eye[2], eye[4])
	ear := (a + b) / (2 * width)
	if math.IsNaN(ear) || math.IsInf(ear, 0) {
		return 0, fmt.Errorf("%w: non-finite ratio", ErrDegenerateGeometry)
	}
	return ear, nil
}

// FrameOpenness averages the two per-eye ratios.
func FrameOpenness(left, right float64) float64 {
	return (left + right) / 2
}

// Openness computes the averaged eye aspect ratio of a frame with a face.
func Openness(f Frame) (float64, error) {
	left, err := EyeAspectRatio(f.Left)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	right, err := EyeAspectRatio(f.Right)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}
	return FrameOpenness(left, right), nil
}

func distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
