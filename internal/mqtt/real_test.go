package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// doneToken is a completed paho token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

// fakeClient implements the subset of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client
	open         bool
	publishErr   error
	published    []bufferedMsg
	handlers     map[string]paho.MessageHandler
	unsubscribed []string
	disconnected bool
}

func newFakeClient(open bool) *fakeClient {
	return &fakeClient{open: open, handlers: map[string]paho.MessageHandler{}}
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.publishErr != nil {
		return doneToken{err: c.publishErr}
	}
	c.published = append(c.published, bufferedMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	c.handlers[topic] = cb
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.unsubscribed = append(c.unsubscribed, topics...)
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func (c *fakeClient) deliver(topic, payload string) {
	c.handlers[topic](c, fakeMessage{topic: topic, payload: []byte(payload)})
}

func topicsOf(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.topic
	}
	return out
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	c := newFakeClient(true)
	p := newPublisher(c, 8, zap.NewNop())

	require.NoError(t, p.PublishBlink(logic.BlinkEvent{Timestamp: testTime, Kind: logic.BlinkComplete}))
	require.NoError(t, p.PublishAssessment(testAssessment()))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: testTime, Event: EventStartup, Retained: true}))

	require.Len(t, c.published, 3)
	assert.Equal(t, []string{TopicBlinks, TopicAssessments, TopicSystem}, topicsOf(c.published))
	assert.Equal(t, byte(0), c.published[0].qos)
	assert.False(t, c.published[0].retained)
	assert.Equal(t, byte(1), c.published[1].qos)
	assert.True(t, c.published[1].retained)
	assert.True(t, c.published[2].retained)
	assert.True(t, p.IsConnected())
}

func TestRealPublisherPublishError(t *testing.T) {
	c := newFakeClient(true)
	c.publishErr = errors.New("broker said no")
	p := newPublisher(c, 8, zap.NewNop())

	err := p.PublishBlink(logic.BlinkEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicBlinks)
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherBuffersOfflineAndReplays(t *testing.T) {
	c := newFakeClient(false)
	p := newPublisher(c, 8, zap.NewNop())
	p.now = func() time.Time { return testTime }

	// First connection: nothing buffered, no RECONNECTED notice.
	c.open = true
	p.onConnect(c)
	assert.Empty(t, c.published)

	c.open = false
	require.NoError(t, p.PublishBlink(logic.BlinkEvent{Kind: logic.BlinkComplete}))
	require.NoError(t, p.PublishAssessment(testAssessment()))
	assert.Equal(t, 2, p.Buffered())
	assert.Empty(t, c.published)

	c.open = true
	p.onConnect(c)
	assert.Zero(t, p.Buffered())
	require.Len(t, c.published, 3)
	assert.Equal(t, []string{TopicBlinks, TopicAssessments, TopicSystem}, topicsOf(c.published))
	assert.True(t, c.published[1].retained, "buffered flags survive replay")
	assert.JSONEq(t, `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`, string(c.published[2].payload))
}

func TestRealPublisherBufferOverflowDropsOldest(t *testing.T) {
	c := newFakeClient(false)
	p := newPublisher(c, 2, zap.NewNop())

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.PublishBlink(logic.BlinkEvent{ClosedFrames: i}))
	}
	c.open = true
	p.onConnect(c)

	require.Len(t, c.published, 2)
	assert.Contains(t, string(c.published[0].payload), `"closed_frames":2`)
	assert.Contains(t, string(c.published[1].payload), `"closed_frames":3`)
}

func TestRealPublisherSubscriptionsSurviveReconnect(t *testing.T) {
	c := newFakeClient(false)
	p := newPublisher(c, 2, zap.NewNop())

	var got []string
	require.NoError(t, p.Subscribe("health/dryeye/landmarks", 0, func(topic string, payload []byte) {
		got = append(got, topic+" "+string(payload))
	}))
	assert.Empty(t, c.handlers, "no broker subscribe while offline")

	c.open = true
	p.onConnect(c)
	c.deliver("health/dryeye/landmarks", `{"face_found":false}`)
	assert.Equal(t, []string{`health/dryeye/landmarks {"face_found":false}`}, got)

	require.NoError(t, p.Unsubscribe("health/dryeye/landmarks"))
	assert.Equal(t, []string{"health/dryeye/landmarks"}, c.unsubscribed)

	c.handlers = map[string]paho.MessageHandler{}
	p.onConnect(c)
	assert.Empty(t, c.handlers, "unsubscribed topics are not restored")
}

func TestRealPublisherClose(t *testing.T) {
	c := newFakeClient(true)
	p := newPublisher(c, 2, zap.NewNop())
	require.NoError(t, p.Close())
	assert.True(t, c.disconnected)
}
