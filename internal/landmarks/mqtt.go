package landmarks

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// Subscriber is the part of an MQTT client the source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
}

// MQTTSource receives frames published by an external landmark detector.
type MQTTSource struct {
	sub    Subscriber
	topic  string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	closed  bool
	frames  chan logic.Frame
	dropped int
}

// NewMQTTSource subscribes to topic and starts delivering frames.
// buffer is the channel capacity; frames are dropped when it is full.
func NewMQTTSource(sub Subscriber, topic string, buffer int, logger *zap.Logger) (*MQTTSource, error) {
	if buffer <= 0 {
		buffer = 1
	}
	s := &MQTTSource{
		sub:    sub,
		topic:  topic,
		logger: logger,
		now:    time.Now,
		frames: make(chan logic.Frame, buffer),
	}
	// QoS 0: a late frame is worthless, and redelivery would break ordering.
	if err := sub.Subscribe(topic, 0, s.handle); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return s, nil
}

// Frames returns the delivery channel.
func (s *MQTTSource) Frames() <-chan logic.Frame {
	return s.frames
}

// Dropped returns the number of frames discarded because the consumer lagged.
func (s *MQTTSource) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *MQTTSource) handle(topic string, payload []byte) {
	f, err := Decode(payload, s.now())
	if err != nil {
		s.logger.Debug("dropping landmark frame", zap.String("topic", topic), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.frames <- f:
	default:
		s.dropped++
		if s.dropped == 1 || s.dropped%100 == 0 {
			s.logger.Warn("landmark frame buffer full, dropping", zap.Int("dropped", s.dropped))
		}
	}
}

// Close unsubscribes and closes the frame channel.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.frames)
	s.mu.Unlock()

	if err := s.sub.Unsubscribe(s.topic); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", s.topic, err)
	}
	return nil
}
