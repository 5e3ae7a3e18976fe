package stream

import (
	"context"
	"fmt"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// FakeSink records published assessments for test assertions.
type FakeSink struct {
	Published []logic.Assessment

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// Publish records the assessment.
func (f *FakeSink) Publish(_ context.Context, a logic.Assessment) (string, error) {
	if f.PublishError != nil {
		return "", f.PublishError
	}
	f.Published = append(f.Published, a)
	return fmt.Sprintf("%d-0", len(f.Published)), nil
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.Closed = true
	return nil
}
