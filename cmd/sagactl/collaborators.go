package main

import (
	"fmt"

	sagaconfig "github.com/kjarrow/sagaflow/pkg/config"
	"github.com/kjarrow/sagaflow/pkg/saga"
	"github.com/kjarrow/sagaflow/pkg/saga/sqlitestore"
	"github.com/kjarrow/sagaflow/pkg/transaction/redistxn"
	sagakafka "github.com/kjarrow/sagaflow/pkg/transport/kafka"
	saganats "github.com/kjarrow/sagaflow/pkg/transport/nats"
)

// closer is satisfied by every collaborator sagactl might open a
// network connection or file handle for.
type closer func() error

func noopCloser() error { return nil }

// buildStore constructs the saga.Store named by settings, returning a
// close function the caller must defer.
func buildStore(settings sagaconfig.StoreSettings) (saga.Store, closer, error) {
	switch settings.Backend {
	case sagaconfig.StoreBackendMemory:
		return saga.NewMemoryStore(), noopCloser, nil
	case sagaconfig.StoreBackendSQLite:
		store, err := sqlitestore.New(settings.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sagactl: open sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("sagactl: unknown store backend %q", settings.Backend)
	}
}

// buildBroker constructs the saga.Broker named by settings.
func buildBroker(settings sagaconfig.BrokerSettings) (saga.Broker, closer, error) {
	switch settings.Kind {
	case sagaconfig.BrokerKindInMemory:
		return saga.NewInMemoryBroker(), noopCloser, nil
	case sagaconfig.BrokerKindKafka:
		broker, err := sagakafka.New(sagakafka.Config{Brokers: settings.KafkaBrokers})
		if err != nil {
			return nil, nil, fmt.Errorf("sagactl: connect kafka broker: %w", err)
		}
		return broker, broker.Close, nil
	case sagaconfig.BrokerKindNATS:
		broker, err := saganats.New(saganats.Config{URL: settings.NATSURL})
		if err != nil {
			return nil, nil, fmt.Errorf("sagactl: connect nats broker: %w", err)
		}
		return broker, broker.Close, nil
	default:
		return nil, nil, fmt.Errorf("sagactl: unknown broker kind %q", settings.Kind)
	}
}

// buildTransactionManager constructs the saga.TransactionManager named
// by settings.
func buildTransactionManager(settings sagaconfig.TransactionSettings) (saga.TransactionManager, closer, error) {
	switch settings.Kind {
	case sagaconfig.TransactionManagerNoop:
		return saga.NoopTransactionManager{}, noopCloser, nil
	case sagaconfig.TransactionManagerInMemory:
		return saga.NewInMemoryTransactionManager(), noopCloser, nil
	case sagaconfig.TransactionManagerRedis:
		mgr, err := redistxn.New(redistxn.Config{Addr: settings.RedisAddr, KeyPrefix: settings.RedisKeyPrefix})
		if err != nil {
			return nil, nil, fmt.Errorf("sagactl: connect redis transaction manager: %w", err)
		}
		return mgr, mgr.Close, nil
	default:
		return nil, nil, fmt.Errorf("sagactl: unknown transaction manager kind %q", settings.Kind)
	}
}
