package landmarks

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// maxLineSize bounds a single JSONL frame (a full 478-point mesh fits easily).
const maxLineSize = 1 << 20

// ReplayReader reads frames from a JSONL stream, one Payload per line.
// Blank lines and lines starting with '#' are skipped.
type ReplayReader struct {
	sc   *bufio.Scanner
	line int
	last time.Time
}

// NewReplayReader wraps r.
func NewReplayReader(r io.Reader) *ReplayReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &ReplayReader{sc: sc}
}

// Next returns the next frame, or io.EOF at the end of input. A line without
// a timestamp reuses the previous frame's time.
func (r *ReplayReader) Next() (logic.Frame, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		f, err := Decode(line, r.last)
		if err != nil {
			return logic.Frame{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		r.last = f.Time
		return f, nil
	}
	if err := r.sc.Err(); err != nil {
		return logic.Frame{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return logic.Frame{}, io.EOF
}

// Line returns the number of the last line read.
func (r *ReplayReader) Line() int {
	return r.line
}
