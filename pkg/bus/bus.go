// Package bus implements the message-bus external collaborator of §6.2:
// fire-and-forget publish of per-frame result envelopes onto
// stream.{stream_id} subjects, with background auto-reconnect.
package bus

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cyclopcam/logs"
)

// State mirrors the connection-state enum of
// original_source/include/nats_publisher.h.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Stats mirrors NatsStats from nats_publisher.h.
type Stats struct {
	MessagesPublished uint64
	LastPublishTime   time.Time
	ReconnectAttempts int32
	LastError         string
}

const DefaultNatsURL = nats.DefaultURL

// Bus is the narrow interface stream.Worker publishes through.
type Bus interface {
	Publish(subject string, payload []byte) error
}

// NatsBus is the concrete Bus backed by a real NATS connection, with the
// same auto-reconnect and fire-and-forget-on-disconnect semantics as
// original_source's NatsPublisher.
type NatsBus struct {
	log logs.Log

	mu    sync.RWMutex
	url   string
	conn  *nats.Conn
	state State
	stats Stats
}

// NewNatsBus constructs a NatsBus without connecting (mirrors
// NatsPublisher::Create).
func NewNatsBus(log logs.Log, url string) *NatsBus {
	if url == "" {
		url = DefaultNatsURL
	}
	return &NatsBus{log: log, url: url, state: StateDisconnected}
}

// Connect dials the NATS server, registering reconnect/disconnect handlers
// that keep State/Stats up to date (mirrors NatsPublisher::Connect plus its
// background reconnect thread, expressed here via nats.go's own
// ReconnectHandler/DisconnectErrHandler rather than a hand-rolled thread).
func (b *NatsBus) Connect() error {
	b.mu.Lock()
	b.state = StateConnecting
	url := b.url
	b.mu.Unlock()

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(5*time.Second),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			b.mu.Lock()
			b.state = StateReconnecting
			if err != nil {
				b.stats.LastError = err.Error()
			}
			b.mu.Unlock()
			b.log.Warnf("nats bus: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			b.mu.Lock()
			b.state = StateConnected
			b.stats.ReconnectAttempts++
			b.mu.Unlock()
			b.log.Infof("nats bus: reconnected")
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			b.mu.Lock()
			b.state = StateDisconnected
			b.mu.Unlock()
		}),
	)
	if err != nil {
		b.mu.Lock()
		b.state = StateDisconnected
		b.stats.LastError = err.Error()
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.state = StateConnected
	b.mu.Unlock()
	return nil
}

// Disconnect closes the connection (mirrors NatsPublisher::Disconnect).
func (b *NatsBus) Disconnect() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.state = StateDisconnected
	b.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// IsConnected reports whether the bus currently holds a live connection.
func (b *NatsBus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == StateConnected && b.conn != nil
}

func (b *NatsBus) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *NatsBus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// Publish sends payload to subject, fire-and-forget. It never blocks the
// caller on a disconnected bus (§5 "Bus publish is fire-and-forget,
// non-blocking") — it returns an error immediately instead of waiting for
// reconnection.
func (b *NatsBus) Publish(subject string, payload []byte) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil {
		return nats.ErrConnectionClosed
	}

	if err := conn.Publish(subject, payload); err != nil {
		b.mu.Lock()
		b.stats.LastError = err.Error()
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	b.stats.MessagesPublished++
	b.stats.LastPublishTime = time.Now()
	b.mu.Unlock()
	return nil
}

// Subject builds the stream.{stream_id} subject of §6.2.
func Subject(streamID string) string {
	return "stream." + streamID
}
