package mqtt

import (
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearsense/motioncue/internal/gesture"
)

type stubMessage struct {
	payload []byte
}

func (m *stubMessage) Duplicate() bool   { return false }
func (m *stubMessage) Qos() byte         { return 0 }
func (m *stubMessage) Retained() bool    { return false }
func (m *stubMessage) Topic() string     { return "motioncue/samples" }
func (m *stubMessage) MessageID() uint16 { return 0 }
func (m *stubMessage) Payload() []byte   { return m.payload }
func (m *stubMessage) Ack()              {}

type captureIngester struct {
	samples []gesture.SensorSample
}

func (c *captureIngester) Ingest(s gesture.SensorSample) {
	c.samples = append(c.samples, s)
}

func TestNewSource_DefaultClientID(t *testing.T) {
	t.Parallel()

	s := NewSource(SourceConfig{Broker: "tcp://localhost:1883"}, &captureIngester{})
	assert.Equal(t, "motioncue-engine", s.cfg.ClientID)
}

func TestHandleMessage_Sample(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	s := NewSource(SourceConfig{}, ing)

	s.handleMessage(nil, &stubMessage{payload: []byte(`{"sensor":"accel","timestamp_ns":7,"values":[0,0,9.8]}`)})

	require.Len(t, ing.samples, 1)
	assert.Equal(t, gesture.KindAccel, ing.samples[0].Kind)
	assert.Equal(t, uint64(1), s.Received())
	assert.Equal(t, uint64(0), s.Malformed())
}

func TestHandleMessage_MalformedCounted(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	s := NewSource(SourceConfig{}, ing)

	s.handleMessage(nil, &stubMessage{payload: []byte(`nope`)})
	s.handleMessage(nil, &stubMessage{payload: []byte(`{"sensor":"accel","values":[1]}`)})

	assert.Empty(t, ing.samples)
	assert.Equal(t, uint64(2), s.Malformed())
}

func TestHandleMessage_LabelEventIgnored(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	s := NewSource(SourceConfig{}, ing)

	s.handleMessage(nil, &stubMessage{payload: []byte(`{"type":"label_event","action":"jump","event":"start"}`)})

	assert.Empty(t, ing.samples)
	assert.Equal(t, uint64(0), s.Received())
	assert.Equal(t, uint64(0), s.Malformed())
}

var _ paho.MessageHandler = (*Source)(nil).handleMessage
