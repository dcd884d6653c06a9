// Package kafka implements saga.Broker on top of Apache Kafka via
// Sarama's synchronous producer, for hosts that dispatch remote saga
// steps over a Kafka topic rather than the in-memory broker used by
// tests and the demo CLI.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/kjarrow/sagaflow/pkg/saga"
)

// Config configures the Kafka-backed broker.
type Config struct {
	// Brokers is a list of Kafka broker addresses.
	Brokers []string
	// Version is the Kafka protocol version string, e.g. "3.6.0".
	// Defaults to sarama.V3_6_0_0 if unparsable.
	Version string
	// ClientID identifies this producer to the cluster.
	ClientID string
}

// envelope is the wire message sent to the remote participant. It
// carries the fields a remote step's request_topic handler needs to
// invoke the operation and reply on the right topic (spec §4.3.1).
type envelope struct {
	SagaID     string `json:"saga_id"`
	User       string `json:"user,omitempty"`
	ReplyTopic string `json:"reply_topic,omitempty"`
	Data       any    `json:"data"`
}

// Broker sends saga step requests as Kafka messages using a
// synchronous producer, satisfying saga.Broker.
type Broker struct {
	client   sarama.Client
	producer sarama.SyncProducer

	mu     sync.RWMutex
	closed bool
}

// New connects to the given Kafka brokers and returns a ready-to-use
// Broker.
func New(cfg Config) (*Broker, error) {
	saramaCfg := sarama.NewConfig()

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		version = sarama.V3_6_0_0
	}
	saramaCfg.Version = version
	if cfg.ClientID != "" {
		saramaCfg.ClientID = cfg.ClientID
	}
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll

	client, err := sarama.NewClient(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: connect: %w", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}

	return &Broker{client: client, producer: producer}, nil
}

// Send publishes data as a JSON-encoded envelope to topic, satisfying
// saga.Broker. ctx is accepted for interface compatibility; Sarama's
// synchronous producer does not itself support cancellation mid-send.
func (b *Broker) Send(ctx context.Context, topic string, data any, sagaID, user, replyTopic string) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("kafka: broker is closed")
	}
	b.mu.RUnlock()

	payload, err := json.Marshal(envelope{
		SagaID:     sagaID,
		User:       user,
		ReplyTopic: replyTopic,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(sagaID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka: send message: %w", err)
	}
	return nil
}

// Close shuts down the producer and underlying client connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.producer.Close(); err != nil {
		return fmt.Errorf("kafka: close producer: %w", err)
	}
	return b.client.Close()
}

var _ saga.Broker = (*Broker)(nil)
