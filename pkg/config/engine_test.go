package config_test

import (
	"testing"

	"github.com/kjarrow/sagaflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineSettings(t *testing.T) {
	s := config.DefaultEngineSettings()
	assert.Equal(t, config.StoreBackendMemory, s.Store.Backend)
	assert.Equal(t, config.BrokerKindInMemory, s.Broker.Kind)
	assert.Equal(t, config.TransactionManagerNoop, s.Transaction.Kind)
	assert.False(t, s.Observability.MetricsEnabled)
}

func TestLoadEngineSettings_Overrides(t *testing.T) {
	cfg := config.New(map[string]any{
		"store": map[string]any{
			"backend":     "sqlite",
			"sqlite_path": "/tmp/sagaflow.db",
		},
		"broker": map[string]any{
			"kind":          "kafka",
			"kafka_brokers": []any{"broker1:9092", "broker2:9092"},
			"kafka_topic":   "sagaflow.orders",
		},
		"transaction": map[string]any{
			"kind":       "redis",
			"redis_addr": "localhost:6379",
		},
		"observability": map[string]any{
			"metrics_enabled": true,
			"tracing_enabled": true,
		},
		"reply_timeout": "45s",
	})

	s, err := config.LoadEngineSettings(cfg)
	require.NoError(t, err)

	assert.Equal(t, config.StoreBackendSQLite, s.Store.Backend)
	assert.Equal(t, "/tmp/sagaflow.db", s.Store.SQLitePath)
	assert.Equal(t, config.BrokerKindKafka, s.Broker.Kind)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, s.Broker.KafkaBrokers)
	assert.Equal(t, "sagaflow.orders", s.Broker.KafkaTopic)
	assert.Equal(t, config.TransactionManagerRedis, s.Transaction.Kind)
	assert.Equal(t, "localhost:6379", s.Transaction.RedisAddr)
	assert.True(t, s.Observability.MetricsEnabled)
	assert.True(t, s.Observability.TracingEnabled)
}

func TestLoadEngineSettings_UnknownBackendErrors(t *testing.T) {
	cfg := config.New(map[string]any{
		"store": map[string]any{"backend": "postgres"},
	})
	_, err := config.LoadEngineSettings(cfg)
	assert.Error(t, err)
}

func TestLoadEngineSettings_EmptyConfigUsesDefaults(t *testing.T) {
	s, err := config.LoadEngineSettings(config.New(nil))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEngineSettings(), s)
}
