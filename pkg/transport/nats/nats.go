// Package nats implements saga.Broker on top of core NATS pub/sub, for
// hosts that dispatch remote saga steps over NATS subjects rather than
// the in-memory broker used by tests and the demo CLI.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kjarrow/sagaflow/pkg/saga"
)

// Config configures the NATS-backed broker.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string
	// Name is the client connection name.
	Name string
}

type envelope struct {
	SagaID     string `json:"saga_id"`
	User       string `json:"user,omitempty"`
	ReplyTopic string `json:"reply_topic,omitempty"`
	Data       any    `json:"data"`
}

// Broker publishes saga step requests as NATS messages, satisfying
// saga.Broker.
type Broker struct {
	conn *nats.Conn

	mu     sync.RWMutex
	closed bool
}

// New connects to the given NATS server and returns a ready-to-use
// Broker.
func New(cfg Config) (*Broker, error) {
	opts := []nats.Option{
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return &Broker{conn: conn}, nil
}

// Send publishes data as a JSON-encoded envelope to the subject named
// topic, satisfying saga.Broker.
func (b *Broker) Send(ctx context.Context, topic string, data any, sagaID, user, replyTopic string) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("nats: broker is closed")
	}
	b.mu.RUnlock()

	payload, err := json.Marshal(envelope{
		SagaID:     sagaID,
		User:       user,
		ReplyTopic: replyTopic,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("nats: encode envelope: %w", err)
	}

	msg := &nats.Msg{
		Subject: topic,
		Data:    payload,
		Header:  nats.Header{},
	}
	msg.Header.Set("Saga-Id", sagaID)
	if replyTopic != "" {
		msg.Header.Set("Reply-Subject", replyTopic)
	}

	if err := b.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	return nil
}

// Close drains and closes the underlying NATS connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Drain()
}

var _ saga.Broker = (*Broker)(nil)
