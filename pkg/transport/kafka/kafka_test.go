package kafka_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarrow/sagaflow/pkg/saga"
	"github.com/kjarrow/sagaflow/pkg/transport/kafka"
)

// TestBroker_ImplementsInterface is a compile-time-style check run at
// test time so it shows up in `go test` output.
func TestBroker_ImplementsInterface(t *testing.T) {
	var _ saga.Broker = (*kafka.Broker)(nil)
}

// TestBroker_SendAgainstLiveCluster exercises Send against a real
// Kafka cluster. Requires KAFKA_BROKERS (comma-separated host:port)
// to be set; skipped otherwise since no broker is available in the
// default test environment.
func TestBroker_SendAgainstLiveCluster(t *testing.T) {
	addr := os.Getenv("KAFKA_BROKERS")
	if addr == "" {
		t.Skip("skipping: KAFKA_BROKERS not set")
	}

	broker, err := kafka.New(kafka.Config{Brokers: []string{addr}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Close() })

	err = broker.Send(context.Background(), "sagaflow.test", map[string]any{"order_id": "o-1"}, "exec-1", "user-1", "sagaflow.test.reply")
	assert.NoError(t, err)
}

func TestNew_InvalidBrokerFails(t *testing.T) {
	_, err := kafka.New(kafka.Config{Brokers: []string{"127.0.0.1:1"}})
	assert.Error(t, err)
}
