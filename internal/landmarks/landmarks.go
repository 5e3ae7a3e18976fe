// Package landmarks turns facial landmark detector output into engine frames.
// Frames arrive from an MQTT topic in the daemon, from a JSONL file in replay
// mode, and from scripted fakes in tests.
package landmarks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// Face mesh indices of the six eye points, in p0..p5 order.
var (
	LeftEyeMesh  = [logic.EyePoints]int{33, 160, 158, 133, 153, 144}
	RightEyeMesh = [logic.EyePoints]int{362, 385, 387, 263, 373, 380}
)

// Source delivers decoded frames in arrival order.
type Source interface {
	// Frames returns the channel frames are delivered on. It is closed when
	// the source is closed.
	Frames() <-chan logic.Frame

	// Close stops delivery and releases resources.
	Close() error
}

// Payload is the wire form of one detector frame. Either the eyes are given
// directly or the full mesh is given keyed by landmark index.
type Payload struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	FaceFound *bool                  `json:"face_found,omitempty"`
	Landmarks map[string]logic.Point `json:"landmarks,omitempty"`
	LeftEye   []logic.Point          `json:"left_eye,omitempty"`
	RightEye  []logic.Point          `json:"right_eye,omitempty"`
}

// Decode parses a frame payload. received is used when the payload carries no
// timestamp. Eyes with the wrong number of points, or a mesh missing an eye
// index, are rejected with logic.ErrInvalidLandmarkCount.
func Decode(data []byte, received time.Time) (logic.Frame, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return logic.Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	ts := received
	if p.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, p.Timestamp)
		if err != nil {
			return logic.Frame{}, fmt.Errorf("decode frame timestamp: %w", err)
		}
		ts = t
	}

	if p.FaceFound != nil && !*p.FaceFound {
		return logic.NoFaceFrame(ts), nil
	}

	switch {
	case len(p.LeftEye) > 0 || len(p.RightEye) > 0:
		return logic.NewFrame(ts, p.LeftEye, p.RightEye)
	case len(p.Landmarks) > 0:
		left, err := meshEye(p.Landmarks, LeftEyeMesh)
		if err != nil {
			return logic.Frame{}, fmt.Errorf("left eye: %w", err)
		}
		right, err := meshEye(p.Landmarks, RightEyeMesh)
		if err != nil {
			return logic.Frame{}, fmt.Errorf("right eye: %w", err)
		}
		return logic.NewFrame(ts, left, right)
	case p.FaceFound != nil:
		return logic.Frame{}, fmt.Errorf("%w: face found without landmarks", logic.ErrInvalidLandmarkCount)
	default:
		return logic.NoFaceFrame(ts), nil
	}
}

func meshEye(mesh map[string]logic.Point, idx [logic.EyePoints]int) ([]logic.Point, error) {
	pts := make([]logic.Point, 0, logic.EyePoints)
	for _, i := range idx {
		p, ok := mesh[strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("%w: missing landmark %d", logic.ErrInvalidLandmarkCount, i)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// Encode renders a frame in the eyes form of Payload.
func Encode(f logic.Frame) ([]byte, error) {
	found := f.FaceFound
	p := Payload{
		Timestamp: f.Time.UTC().Format(time.RFC3339Nano),
		FaceFound: &found,
	}
	if f.FaceFound {
		p.LeftEye = f.Left[:]
		p.RightEye = f.Right[:]
	}
	return json.Marshal(p)
}
