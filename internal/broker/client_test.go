package broker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	topic    string
	retained bool
	payload  []byte
	err      error
}

func (p *recordingPublisher) Publish(topic string, _ byte, retained bool, payload []byte) error {
	p.topic, p.retained, p.payload = topic, retained, payload
	return p.err
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type reading struct {
	Steps int64 `json:"steps"`
}

func TestPublishJSON(t *testing.T) {
	p := &recordingPublisher{}
	require.NoError(t, PublishJSON(p, "pedometer/summary", true, reading{Steps: 12}))

	assert.Equal(t, "pedometer/summary", p.topic)
	assert.True(t, p.retained)
	assert.JSONEq(t, `{"steps":12}`, string(p.payload))
}

func TestPublishJSONErrors(t *testing.T) {
	p := &recordingPublisher{}
	err := PublishJSON(p, "pedometer/steps", false, math.NaN())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal pedometer/steps payload")
	assert.Empty(t, p.topic)

	boom := errors.New("boom")
	p.err = boom
	assert.ErrorIs(t, PublishJSON(p, "pedometer/steps", false, reading{}), boom)
}

func TestJSONHandler(t *testing.T) {
	var got reading
	h := JSONHandler(func(topic string, r reading) error {
		assert.Equal(t, "pedometer/steps", topic)
		got = r
		return nil
	})

	require.NoError(t, h("pedometer/steps", []byte(`{"steps":7}`)))
	assert.Equal(t, int64(7), got.Steps)

	err := h("pedometer/steps", []byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal pedometer/steps payload")
}

func TestDispatchLogsHandlerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := &Client{log: zap.New(core)}

	calls := 0
	handler := c.dispatch(func(topic string, payload []byte) error {
		calls++
		if string(payload) == "bad" {
			return errors.New("rejected")
		}
		return nil
	})

	handler(nil, fakeMessage{topic: "pedometer/steps", payload: []byte("ok")})
	handler(nil, fakeMessage{topic: "pedometer/steps", payload: []byte("bad")})

	assert.Equal(t, 2, calls)
	entries := logs.FilterMessage("message handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pedometer/steps", entries[0].ContextMap()["topic"])
}
