package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 256

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	BufferSize int
}

type subscription struct {
	qos     byte
	handler func(topic string, payload []byte)
}

// RealPublisher publishes to an actual MQTT broker. It also carries the
// landmark subscription, so one connection serves both directions.
//
// Messages published while the connection is down are held in a ring buffer
// and replayed in order when the client reconnects.
type RealPublisher struct {
	client paho.Client
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	buf       *ringBuffer
	subs      map[string]subscription
	connected bool // a connection has been established at least once
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// unreachable the client keeps retrying in the background and messages are
// buffered until the first connection succeeds.
func NewRealPublisher(o Options, logger *zap.Logger) (*RealPublisher, error) {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	p := newPublisher(nil, o.BufferSize, logger)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn("mqtt broker not reachable yet, buffering", zap.String("broker", o.Broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(client paho.Client, bufferSize int, logger *zap.Logger) *RealPublisher {
	return &RealPublisher{
		client: client,
		logger: logger,
		now:    time.Now,
		buf:    newRingBuffer(bufferSize),
		subs:   make(map[string]subscription),
	}
}

// PublishBlink sends a blink event. QoS 0: blinks are high-rate and the
// assessment carries the totals.
func (p *RealPublisher) PublishBlink(event logic.BlinkEvent) error {
	payload, err := FormatBlinkPayload(event)
	if err != nil {
		return fmt.Errorf("format blink payload: %w", err)
	}
	return p.publish(TopicBlinks, 0, false, payload)
}

// PublishAssessment sends a finalized assessment, retained so late subscribers
// see the most recent result.
func (p *RealPublisher) PublishAssessment(a logic.Assessment) error {
	payload, err := FormatAssessmentPayload(a)
	if err != nil {
		return fmt.Errorf("format assessment payload: %w", err)
	}
	return p.publish(TopicAssessments, 1, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		if p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}) {
			p.logger.Warn("mqtt offline buffer full, dropping oldest", zap.Int("capacity", p.buf.capacity))
		}
		return nil
	}
	return p.send(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// onConnect runs on every (re)connection: it restores subscriptions, flushes
// the offline buffer and, after the first connection, announces RECONNECTED.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, s := range p.subs {
		if err := p.subscribe(topic, s); err != nil {
			p.logger.Error("mqtt resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	msgs, dropped := p.buf.drain()
	for _, m := range msgs {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			p.logger.Error("mqtt replay failed", zap.String("topic", m.topic), zap.Error(err))
		}
	}
	if len(msgs) > 0 {
		p.logger.Info("mqtt replayed buffered messages", zap.Int("count", len(msgs)), zap.Int("dropped", dropped))
	}

	if p.connected {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: EventReconnected})
		if err := p.send(TopicSystem, 1, false, payload); err != nil {
			p.logger.Error("mqtt reconnect notice failed", zap.Error(err))
		}
		p.logger.Info("mqtt reconnected")
	}
	p.connected = true
}

// Subscribe registers handler for topic. The subscription is restored after
// every reconnect.
func (p *RealPublisher) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := subscription{qos: qos, handler: handler}
	p.subs[topic] = s
	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe(topic, s)
}

func (p *RealPublisher) subscribe(topic string, s subscription) error {
	token := p.client.Subscribe(topic, s.qos, func(_ paho.Client, m paho.Message) {
		s.handler(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic.
func (p *RealPublisher) Unsubscribe(topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.subs, topic)
	if !p.client.IsConnectionOpen() {
		return nil
	}
	token := p.client.Unsubscribe(topic)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("unsubscribe %s: timeout", topic)
	}
	return token.Error()
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		p.logger.Warn("mqtt closing with undelivered messages", zap.Int("count", n))
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
