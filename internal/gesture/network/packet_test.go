package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearsense/motioncue/internal/gesture"
)

func TestParsePacket_SensorReading(t *testing.T) {
	t.Parallel()

	data := []byte(`{"sensor":"accel","timestamp_ns":1717243200000000000,"values":[0.1,-0.2,9.8]}`)
	p, err := ParsePacket(data)
	require.NoError(t, err)
	assert.False(t, p.IsLabelEvent())

	s, err := p.ToSample()
	require.NoError(t, err)
	assert.Equal(t, gesture.KindAccel, s.Kind)
	assert.Equal(t, time.Unix(0, 1717243200000000000), s.Timestamp)
	assert.Equal(t, 3, s.Dims)
	assert.Equal(t, [4]float64{0.1, -0.2, 9.8, 0}, s.Values)
}

func TestParsePacket_Rotation(t *testing.T) {
	t.Parallel()

	p, err := ParsePacket([]byte(`{"sensor":"rotation","timestamp_ns":100,"values":[0,0,0.707,0.707]}`))
	require.NoError(t, err)

	s, err := p.ToSample()
	require.NoError(t, err)
	assert.Equal(t, gesture.KindRotation, s.Kind)
	assert.Equal(t, 4, s.Dims)
	assert.InDelta(t, 0.707, s.Values[3], 1e-9)
}

func TestParsePacket_LabelEvent(t *testing.T) {
	t.Parallel()

	data := []byte(`{"type":"label_event","action":"jump","event":"start","timestamp_ms":1717243200123,"count":3}`)
	p, err := ParsePacket(data)
	require.NoError(t, err)

	assert.True(t, p.IsLabelEvent())
	assert.Equal(t, "jump", p.Action)
	assert.Equal(t, "start", p.Event)
	assert.Equal(t, int64(1717243200123), p.TimestampMS)
	assert.Equal(t, 3, p.Count)
}

func TestParsePacket_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParsePacket([]byte(`{"sensor":`))
	assert.Error(t, err)
}

func TestToSample_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		packet Packet
	}{
		{"unknown sensor", Packet{Sensor: "barometer", Values: []float64{1}}},
		{"too few values", Packet{Sensor: "accel", Values: []float64{1, 2}}},
		{"rotation needs four", Packet{Sensor: "rotation", Values: []float64{1, 2, 3}}},
		{"empty sensor tag", Packet{Values: []float64{1, 2, 3}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.packet.ToSample()
			assert.Error(t, err)
		})
	}
}

func TestToSample_ExtraValuesTruncated(t *testing.T) {
	t.Parallel()

	p := Packet{Sensor: "step", TimestampNS: 50, Values: []float64{12, 99, 99}}
	s, err := p.ToSample()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Dims)
	assert.Equal(t, [4]float64{12, 0, 0, 0}, s.Values)
}
