package saga

import "context"

// Broker is the external message transport a RequestExecutor publishes
// through (spec §6). Implementations live in pkg/transport/*; the
// engine itself never retries a failed Send (spec §6: "publishing is
// assumed atomic-or-fails").
type Broker interface {
	// Send publishes data to topic on behalf of sagaID (and, optionally,
	// the user who initiated the saga), asking the remote participant to
	// reply on replyTopic.
	Send(ctx context.Context, topic string, data any, sagaID string, user string, replyTopic string) error
}

// BrokerFunc adapts a function to the Broker interface, mirroring the
// http.HandlerFunc idiom used across the corpus for single-method
// interfaces.
type BrokerFunc func(ctx context.Context, topic string, data any, sagaID string, user string, replyTopic string) error

func (f BrokerFunc) Send(ctx context.Context, topic string, data any, sagaID string, user string, replyTopic string) error {
	return f(ctx, topic, data, sagaID, user, replyTopic)
}

// InMemoryBroker is a Broker implementation suitable for tests and
// demos: it records every Send call and optionally invokes a handler
// synchronously in place of an actual remote participant.
type InMemoryBroker struct {
	calls   []BrokerCall
	Handler func(ctx context.Context, call BrokerCall) error
}

// BrokerCall records one Send invocation for assertions in tests (spec
// §8 scenarios count broker.send calls directly).
type BrokerCall struct {
	Topic      string
	Data       any
	SagaID     string
	User       string
	ReplyTopic string
}

// NewInMemoryBroker creates an empty in-memory broker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{}
}

func (b *InMemoryBroker) Send(ctx context.Context, topic string, data any, sagaID string, user string, replyTopic string) error {
	call := BrokerCall{Topic: topic, Data: data, SagaID: sagaID, User: user, ReplyTopic: replyTopic}
	b.calls = append(b.calls, call)
	if b.Handler != nil {
		return b.Handler(ctx, call)
	}
	return nil
}

// Calls returns a copy of every recorded Send call, in order.
func (b *InMemoryBroker) Calls() []BrokerCall {
	out := make([]BrokerCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// Reset clears the recorded call history, matching the "broker.send
// count after reset" assertions in the S2 scenario.
func (b *InMemoryBroker) Reset() {
	b.calls = nil
}

// Len reports how many Send calls have been recorded.
func (b *InMemoryBroker) Len() int { return len(b.calls) }
