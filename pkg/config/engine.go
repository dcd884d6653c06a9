package config

import (
	"fmt"
	"time"
)

// StoreBackend selects which saga.Store implementation the engine runs
// against.
type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendSQLite StoreBackend = "sqlite"
)

// BrokerKind selects which saga.Broker implementation backs remote
// steps.
type BrokerKind string

const (
	BrokerKindInMemory BrokerKind = "inmemory"
	BrokerKindKafka    BrokerKind = "kafka"
	BrokerKindNATS     BrokerKind = "nats"
)

// TransactionManagerKind selects which saga.TransactionManager tracks
// the distributed-transaction commit/reject protocol.
type TransactionManagerKind string

const (
	TransactionManagerNoop     TransactionManagerKind = "noop"
	TransactionManagerInMemory TransactionManagerKind = "inmemory"
	TransactionManagerRedis    TransactionManagerKind = "redis"
)

// StoreSettings configures snapshot persistence.
type StoreSettings struct {
	Backend    StoreBackend
	SQLitePath string
}

// BrokerSettings configures remote-step transport.
type BrokerSettings struct {
	Kind         BrokerKind
	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
}

// TransactionSettings configures distributed-transaction tracking.
type TransactionSettings struct {
	Kind           TransactionManagerKind
	RedisAddr      string
	RedisKeyPrefix string
}

// ObservabilitySettings configures metrics and tracing export.
type ObservabilitySettings struct {
	MetricsEnabled bool
	TracingEnabled bool
	ServiceName    string
}

// EngineSettings holds every runtime knob sagactl and library
// consumers need to assemble a saga.SagaExecution: which collaborator
// implementations to construct and how to reach them.
type EngineSettings struct {
	Store         StoreSettings
	Broker        BrokerSettings
	Transaction   TransactionSettings
	Observability ObservabilitySettings
	ReplyTimeout  time.Duration
}

// DefaultEngineSettings returns the settings used when no config file
// is supplied: an in-memory store, in-memory broker, no-op transaction
// manager, and observability disabled.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		Store: StoreSettings{
			Backend:    StoreBackendMemory,
			SQLitePath: "sagaflow.db",
		},
		Broker: BrokerSettings{
			Kind:       BrokerKindInMemory,
			KafkaTopic: "sagaflow.steps",
		},
		Transaction: TransactionSettings{
			Kind:           TransactionManagerNoop,
			RedisKeyPrefix: "sagaflow:txn:",
		},
		Observability: ObservabilitySettings{
			MetricsEnabled: false,
			TracingEnabled: false,
			ServiceName:    "sagaflow",
		},
		ReplyTimeout: 30 * time.Second,
	}
}

// LoadEngineSettings reads an EngineSettings from a generic Config,
// falling back to DefaultEngineSettings for any key that is absent.
// Expected top-level sections: store, broker, transaction, observability.
func LoadEngineSettings(c Config) (EngineSettings, error) {
	s := DefaultEngineSettings()

	store := c.Section("store")
	if backend := store.String("backend", string(s.Store.Backend)); backend != "" {
		switch StoreBackend(backend) {
		case StoreBackendMemory, StoreBackendSQLite:
			s.Store.Backend = StoreBackend(backend)
		default:
			return EngineSettings{}, fmt.Errorf("config: unknown store backend %q", backend)
		}
	}
	s.Store.SQLitePath = store.String("sqlite_path", s.Store.SQLitePath)

	broker := c.Section("broker")
	if kind := broker.String("kind", string(s.Broker.Kind)); kind != "" {
		switch BrokerKind(kind) {
		case BrokerKindInMemory, BrokerKindKafka, BrokerKindNATS:
			s.Broker.Kind = BrokerKind(kind)
		default:
			return EngineSettings{}, fmt.Errorf("config: unknown broker kind %q", kind)
		}
	}
	s.Broker.KafkaBrokers = broker.StringSlice("kafka_brokers", s.Broker.KafkaBrokers)
	s.Broker.KafkaTopic = broker.String("kafka_topic", s.Broker.KafkaTopic)
	s.Broker.NATSURL = broker.String("nats_url", s.Broker.NATSURL)

	txn := c.Section("transaction")
	if kind := txn.String("kind", string(s.Transaction.Kind)); kind != "" {
		switch TransactionManagerKind(kind) {
		case TransactionManagerNoop, TransactionManagerInMemory, TransactionManagerRedis:
			s.Transaction.Kind = TransactionManagerKind(kind)
		default:
			return EngineSettings{}, fmt.Errorf("config: unknown transaction manager kind %q", kind)
		}
	}
	s.Transaction.RedisAddr = txn.String("redis_addr", s.Transaction.RedisAddr)
	s.Transaction.RedisKeyPrefix = txn.String("redis_key_prefix", s.Transaction.RedisKeyPrefix)

	obs := c.Section("observability")
	s.Observability.MetricsEnabled = obs.Bool("metrics_enabled", s.Observability.MetricsEnabled)
	s.Observability.TracingEnabled = obs.Bool("tracing_enabled", s.Observability.TracingEnabled)
	s.Observability.ServiceName = obs.String("service_name", s.Observability.ServiceName)

	s.ReplyTimeout = c.Duration("reply_timeout", s.ReplyTimeout)

	return s, nil
}
