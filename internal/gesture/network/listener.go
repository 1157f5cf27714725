package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wearsense/motioncue/internal/gesture"
)

// Ingester is the engine-facing side of the listener. Ingest must not block.
type Ingester interface {
	Ingest(s gesture.SensorSample)
}

// LabelHandler receives recording label events when a recorder is attached.
type LabelHandler interface {
	HandleLabelEvent(action, event string, at time.Time, count int)
}

// ListenerConfig configures the UDP sensor listener.
type ListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Labels      LabelHandler // optional
}

// UDPListener receives sensor datagrams and forwards decoded samples to the
// engine. Malformed packets are logged at the stats interval, counted, and
// skipped; they never stop the loop.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	engine      Ingester
	labels      LabelHandler

	connMu sync.Mutex
	conn   *net.UDPConn

	packets   atomic.Uint64
	samples   atomic.Uint64
	malformed atomic.Uint64
}

// NewUDPListener creates a listener delivering samples to engine.
func NewUDPListener(cfg ListenerConfig, engine Ingester) *UDPListener {
	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	rcvBuf := cfg.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}
	return &UDPListener{
		address:     cfg.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		engine:      engine,
		labels:      cfg.Labels,
	}
}

// Start listens until ctx is cancelled. The read loop uses short deadlines so
// cancellation is observed promptly.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.setConn(conn)
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		log.Printf("warning: failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
	}
	log.Printf("sensor listener started on %s", l.address)

	go l.statsLoop(ctx)

	buffer := make([]byte, 4096)
	var deadlineErrLogged bool
	for {
		select {
		case <-ctx.Done():
			log.Print("sensor listener stopping")
			return ctx.Err()
		default:
			if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				if !deadlineErrLogged {
					log.Printf("failed to set read deadline: %v", err)
					deadlineErrLogged = true
				}
			}

			n, raddr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return nil
				}
				log.Printf("UDP read error: %v", err)
				continue
			}

			if err := l.handleDatagram(buffer[:n]); err != nil {
				l.malformed.Add(1)
				log.Printf("dropping packet from %v: %v", raddr, err)
			}
		}
	}
}

func (l *UDPListener) handleDatagram(data []byte) error {
	l.packets.Add(1)

	p, err := ParsePacket(data)
	if err != nil {
		return err
	}

	if p.IsLabelEvent() {
		if l.labels != nil {
			l.labels.HandleLabelEvent(p.Action, p.Event, time.UnixMilli(p.TimestampMS), p.Count)
		}
		return nil
	}

	s, err := p.ToSample()
	if err != nil {
		return err
	}
	l.engine.Ingest(s)
	l.samples.Add(1)
	return nil
}

func (l *UDPListener) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("sensor listener: packets=%d samples=%d malformed=%d",
				l.packets.Load(), l.samples.Load(), l.malformed.Load())
		}
	}
}

func (l *UDPListener) setConn(conn *net.UDPConn) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	l.conn = conn
}

// LocalAddr returns the bound socket address, or nil before Start.
func (l *UDPListener) LocalAddr() net.Addr {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Close shuts the socket down. Safe to call more than once.
func (l *UDPListener) Close() error {
	l.connMu.Lock()
	conn := l.conn
	l.conn = nil
	l.connMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
