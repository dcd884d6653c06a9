// Package redistxn implements saga.TransactionManager on top of Redis,
// recording the two-phase commit/reject outcome for each saga execution
// under a shared key so multiple orchestrator instances can observe it
// (spec §6: "semantics of the two-phase commit behind these operations
// are implementation-defined").
package redistxn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kjarrow/sagaflow/pkg/saga"
)

// Config configures the Redis-backed transaction manager.
type Config struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix is prepended to every execution ID when forming the
	// Redis key. Defaults to "sagaflow:txn:".
	KeyPrefix string
	// TTL bounds how long a commit/reject record is retained. Zero
	// means no expiration.
	TTL time.Duration
}

// Manager records saga commit/reject outcomes in Redis, satisfying
// saga.TransactionManager.
type Manager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to the given Redis instance and returns a ready-to-use
// Manager.
func New(cfg Config) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redistxn: ping: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sagaflow:txn:"
	}
	return &Manager{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (m *Manager) key(executionID string) string {
	return m.prefix + executionID
}

// Commit records that count remote steps committed downstream for
// executionID.
func (m *Manager) Commit(ctx context.Context, count int, executionID string) error {
	value := fmt.Sprintf("committed:%d", count)
	if err := m.client.Set(ctx, m.key(executionID), value, m.ttl).Err(); err != nil {
		return fmt.Errorf("redistxn: commit: %w", err)
	}
	return nil
}

// Reject records that executionID's downstream transaction was rolled
// back.
func (m *Manager) Reject(ctx context.Context, executionID string) error {
	if err := m.client.Set(ctx, m.key(executionID), "rejected", m.ttl).Err(); err != nil {
		return fmt.Errorf("redistxn: reject: %w", err)
	}
	return nil
}

// Status returns the raw recorded outcome for executionID ("" if none
// recorded yet), for operational inspection by sagactl.
func (m *Manager) Status(ctx context.Context, executionID string) (string, error) {
	val, err := m.client.Get(ctx, m.key(executionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redistxn: status: %w", err)
	}
	return val, nil
}

// Close closes the underlying Redis client.
func (m *Manager) Close() error {
	return m.client.Close()
}

var _ saga.TransactionManager = (*Manager)(nil)
