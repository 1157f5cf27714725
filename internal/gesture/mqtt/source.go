// Package mqtt subscribes to a broker topic carrying the same JSON sensor
// payloads as the UDP transport, for deployments where the watch publishes
// through a broker instead of direct datagrams.
package mqtt

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wearsense/motioncue/internal/gesture/network"
)

// SourceConfig configures the MQTT sample source.
type SourceConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

// Source feeds broker-delivered sensor samples into the engine.
type Source struct {
	cfg    SourceConfig
	engine network.Ingester
	client paho.Client

	received  atomic.Uint64
	malformed atomic.Uint64
}

// NewSource creates an MQTT sample source.
func NewSource(cfg SourceConfig, engine network.Ingester) *Source {
	if cfg.ClientID == "" {
		cfg.ClientID = "motioncue-engine"
	}
	return &Source{cfg: cfg, engine: engine}
}

// Start connects, subscribes, and blocks until ctx is cancelled.
func (s *Source) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c paho.Client) {
			if token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handleMessage); token.Wait() && token.Error() != nil {
				log.Printf("MQTT subscribe error on %q: %v", s.cfg.Topic, token.Error())
			}
		})

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect to %s: %w", s.cfg.Broker, token.Error())
	}
	log.Printf("MQTT sample source connected to %s, topic %q", s.cfg.Broker, s.cfg.Topic)

	<-ctx.Done()
	s.client.Disconnect(250)
	return ctx.Err()
}

func (s *Source) handleMessage(_ paho.Client, msg paho.Message) {
	p, err := network.ParsePacket(msg.Payload())
	if err != nil {
		s.malformed.Add(1)
		return
	}
	if p.IsLabelEvent() {
		return
	}
	sample, err := p.ToSample()
	if err != nil {
		s.malformed.Add(1)
		return
	}
	s.engine.Ingest(sample)
	s.received.Add(1)
}

// Received returns how many samples were ingested from the broker.
func (s *Source) Received() uint64 { return s.received.Load() }

// Malformed returns how many broker messages failed to decode.
func (s *Source) Malformed() uint64 { return s.malformed.Load() }
