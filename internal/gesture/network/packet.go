// Package network receives sensor packets over UDP and feeds them to the
// engine. The wire format is one JSON object per datagram, matching the
// watch transport: sensor readings carry a kind tag, a nanosecond timestamp
// and a fixed-arity value vector; label events from the companion app mark
// recording windows.
package network

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wearsense/motioncue/internal/gesture"
)

// Packet is the decoded form of one datagram.
type Packet struct {
	// Sensor reading fields.
	Sensor      string    `json:"sensor,omitempty"`
	TimestampNS int64     `json:"timestamp_ns,omitempty"`
	Values      []float64 `json:"values,omitempty"`

	// Label event fields.
	Type        string `json:"type,omitempty"`
	Action      string `json:"action,omitempty"`
	Event       string `json:"event,omitempty"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// IsLabelEvent reports whether the packet is a recording label event rather
// than a sensor reading.
func (p *Packet) IsLabelEvent() bool { return p.Type == "label_event" }

// expectedDims maps sensor kinds to the arity of their value vectors.
var expectedDims = map[gesture.SensorKind]int{
	gesture.KindAccel:    3,
	gesture.KindGyro:     3,
	gesture.KindRotation: 4,
	gesture.KindStep:     1,
}

// ParsePacket decodes one datagram payload.
func ParsePacket(data []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("malformed packet: %w", err)
	}
	return p, nil
}

// ToSample converts a sensor reading packet into a SensorSample, validating
// the kind tag and value arity.
func (p *Packet) ToSample() (gesture.SensorSample, error) {
	kind := gesture.SensorKind(p.Sensor)
	dims, ok := expectedDims[kind]
	if !ok {
		return gesture.SensorSample{}, fmt.Errorf("unknown sensor kind %q", p.Sensor)
	}
	if len(p.Values) < dims {
		return gesture.SensorSample{}, fmt.Errorf("sensor %q needs %d values, got %d", p.Sensor, dims, len(p.Values))
	}

	s := gesture.SensorSample{
		Kind:      kind,
		Timestamp: time.Unix(0, p.TimestampNS),
		Dims:      dims,
	}
	copy(s.Values[:], p.Values[:dims])
	return s, nil
}
