package landmarks

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	handlers     map[string]func(topic string, payload []byte)
	unsubscribed []string
	subErr       error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]func(string, []byte){}}
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler func(string, []byte)) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	f.unsubscribed = append(f.unsubscribed, topic)
	delete(f.handlers, topic)
	return nil
}

func (f *fakeSubscriber) deliver(topic, payload string) {
	if h := f.handlers[topic]; h != nil {
		h(topic, []byte(payload))
	}
}

func TestMQTTSourceDelivers(t *testing.T) {
	sub := newFakeSubscriber()
	src, err := NewMQTTSource(sub, "health/dryeye/landmarks", 4, zap.NewNop())
	require.NoError(t, err)
	src.now = func() time.Time { return received }

	sub.deliver("health/dryeye/landmarks", `{"face_found":false}`)
	sub.deliver("health/dryeye/landmarks", `not json`)
	sub.deliver("health/dryeye/landmarks", fmt.Sprintf(`{"left_eye":%s,"right_eye":%s}`, mustJSON(t, eye(0.2)), mustJSON(t, eye(0.6))))

	f := <-src.Frames()
	assert.False(t, f.FaceFound)
	assert.True(t, f.Time.Equal(received))
	f = <-src.Frames()
	assert.True(t, f.FaceFound)

	select {
	case extra := <-src.Frames():
		t.Fatalf("unexpected frame %+v", extra)
	default:
	}

	require.NoError(t, src.Close())
	assert.Equal(t, []string{"health/dryeye/landmarks"}, sub.unsubscribed)
	_, open := <-src.Frames()
	assert.False(t, open)

	// Deliveries racing with Close are discarded rather than panicking.
	src.handle("health/dryeye/landmarks", []byte(`{}`))
	require.NoError(t, src.Close())
}

func TestMQTTSourceDropsWhenFull(t *testing.T) {
	sub := newFakeSubscriber()
	src, err := NewMQTTSource(sub, "t", 1, zap.NewNop())
	require.NoError(t, err)

	sub.deliver("t", `{}`)
	sub.deliver("t", `{}`)
	sub.deliver("t", `{}`)
	assert.Equal(t, 2, src.Dropped())
	assert.Len(t, src.Frames(), 1)
}

func TestMQTTSourceSubscribeError(t *testing.T) {
	sub := newFakeSubscriber()
	sub.subErr = errors.New("not connected")

	_, err := NewMQTTSource(sub, "t", 1, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe t")
}
