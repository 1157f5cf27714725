package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearsense/motioncue/internal/gesture"
)

type captureIngester struct {
	mu      sync.Mutex
	samples []gesture.SensorSample
}

func (c *captureIngester) Ingest(s gesture.SensorSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
}

func (c *captureIngester) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

type captureLabels struct {
	mu     sync.Mutex
	events []string
}

func (c *captureLabels) HandleLabelEvent(action, event string, at time.Time, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, action+"/"+event)
}

func TestNewUDPListener_Defaults(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(ListenerConfig{Address: ":12345"}, &captureIngester{})
	assert.Equal(t, ":12345", l.address)
	assert.Equal(t, 1<<20, l.rcvBuf)
	assert.Equal(t, time.Minute, l.logInterval)
	assert.Nil(t, l.labels)
}

func TestHandleDatagram_Sample(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	l := NewUDPListener(ListenerConfig{}, ing)

	err := l.handleDatagram([]byte(`{"sensor":"gyro","timestamp_ns":42,"values":[1,2,3]}`))
	require.NoError(t, err)
	require.Equal(t, 1, ing.count())
	assert.Equal(t, gesture.KindGyro, ing.samples[0].Kind)
	assert.Equal(t, uint64(1), l.samples.Load())
}

func TestHandleDatagram_LabelEventRouting(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	labels := &captureLabels{}
	l := NewUDPListener(ListenerConfig{Labels: labels}, ing)

	err := l.handleDatagram([]byte(`{"type":"label_event","action":"walk","event":"start","timestamp_ms":1000}`))
	require.NoError(t, err)
	assert.Equal(t, 0, ing.count(), "label events must not reach the engine")
	assert.Equal(t, []string{"walk/start"}, labels.events)
}

func TestHandleDatagram_LabelEventWithoutHandler(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(ListenerConfig{}, &captureIngester{})
	assert.NoError(t, l.handleDatagram([]byte(`{"type":"label_event","action":"walk","event":"end"}`)))
}

func TestHandleDatagram_Malformed(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(ListenerConfig{}, &captureIngester{})
	assert.Error(t, l.handleDatagram([]byte(`not json`)))
	assert.Error(t, l.handleDatagram([]byte(`{"sensor":"accel","values":[1]}`)))
}

func TestUDPListener_Close_BeforeStart(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(ListenerConfig{}, &captureIngester{})
	assert.NoError(t, l.Close())
	assert.Nil(t, l.LocalAddr())
}

func TestUDPListener_Start_InvalidAddress(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(ListenerConfig{Address: "not-an-address"}, &captureIngester{})
	assert.Error(t, l.Start(context.Background()))
}

func TestUDPListener_Loopback(t *testing.T) {
	t.Parallel()

	ing := &captureIngester{}
	l := NewUDPListener(ListenerConfig{Address: "127.0.0.1:0"}, ing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	require.Eventually(t, func() bool { return l.LocalAddr() != nil },
		2*time.Second, 10*time.Millisecond, "listener did not bind")

	conn, err := net.Dial("udp", l.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"sensor":"accel","timestamp_ns":1,"values":[0,0,9.8]}`))
	require.NoError(t, err)
	_, err = conn.Write([]byte(`garbage`))
	require.NoError(t, err)
	_, err = conn.Write([]byte(`{"sensor":"accel","timestamp_ns":2,"values":[0,0,9.8]}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ing.count() == 2 },
		2*time.Second, 10*time.Millisecond, "samples did not arrive")
	assert.Eventually(t, func() bool { return l.malformed.Load() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}
