package redistxn_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarrow/sagaflow/pkg/saga"
	"github.com/kjarrow/sagaflow/pkg/transaction/redistxn"
)

func TestManager_ImplementsInterface(t *testing.T) {
	var _ saga.TransactionManager = (*redistxn.Manager)(nil)
}

// TestManager_CommitRejectAgainstLiveRedis exercises Commit/Reject/
// Status against a real Redis instance. Requires REDIS_ADDR to be
// set; skipped otherwise since no server is available in the default
// test environment.
func TestManager_CommitRejectAgainstLiveRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("skipping: REDIS_ADDR not set")
	}

	mgr, err := redistxn.New(redistxn.Config{Addr: addr, KeyPrefix: "sagaflow:test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	ctx := context.Background()
	require.NoError(t, mgr.Commit(ctx, 2, "exec-1"))

	status, err := mgr.Status(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "committed:2", status)

	require.NoError(t, mgr.Reject(ctx, "exec-1"))
	status, err = mgr.Status(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "rejected", status)
}

func TestNew_UnreachableRedisFails(t *testing.T) {
	_, err := redistxn.New(redistxn.Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
