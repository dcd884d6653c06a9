package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateGetUpdateDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	raw := SagaExecutionRaw{ID: "exec-1", Status: string(StatusCreated)}
	require.NoError(t, store.Create(ctx, raw))

	_, err := store.Create(ctx, raw)
	assert.ErrorIs(t, err, ErrExecutionExists)

	got, err := store.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, Status(got.Status))

	raw.Status = string(StatusFinished)
	require.NoError(t, store.Update(ctx, raw))
	got, err = store.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, Status(got.Status))

	require.NoError(t, store.Delete(ctx, "exec-1"))
	_, err = store.Get(ctx, "exec-1")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestMemoryStoreListFiltersByStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, SagaExecutionRaw{ID: "a", Status: string(StatusFinished)}))
	require.NoError(t, store.Create(ctx, SagaExecutionRaw{ID: "b", Status: string(StatusPaused)}))

	finished, err := store.List(ctx, &ListFilter{Status: StatusFinished})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "a", finished[0].ID)
}
