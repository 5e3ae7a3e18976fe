package mqtt

import (
	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Blinks contains all blink events that were published.
	Blinks []logic.BlinkEvent

	// Assessments contains all assessments that were published.
	Assessments []logic.Assessment

	// Payloads contains the JSON payloads of blinks and assessments, in publish order.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishBlink and PublishAssessment.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishBlink records the blink event.
func (f *FakePublisher) PublishBlink(event logic.BlinkEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatBlinkPayload(event)
	if err != nil {
		return err
	}
	f.Blinks = append(f.Blinks, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishAssessment records the assessment.
func (f *FakePublisher) PublishAssessment(a logic.Assessment) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatAssessmentPayload(a)
	if err != nil {
		return err
	}
	f.Assessments = append(f.Assessments, a)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// SystemEventNames returns the Event field of each recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
