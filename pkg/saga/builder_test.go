package saga

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderHappyPath(t *testing.T) {
	s, err := NewSaga().
		Step().RemoteStep(NewOperation("send_create_order")).OnSuccess(NewOperation("handle_order_success")).OnFailure(NewOperation("send_delete_order")).
		Step().RemoteStep(NewOperation("send_create_ticket")).OnSuccess(NewOperation("handle_ticket_success")).
		Commit(NewOperation("finalize"))
	require.NoError(t, err)

	assert.True(t, s.Committed)
	assert.True(t, s.HasCommitOp)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, KindRemote, s.Steps[0].Kind)
	assert.Equal(t, "send_create_order", s.Steps[0].OnExecute.CallbackRef)
	assert.Equal(t, "handle_order_success", s.Steps[0].OnSuccess.CallbackRef)
}

func TestBuilderEmptySagaFails(t *testing.T) {
	_, err := NewSaga().Commit()
	assert.ErrorIs(t, err, ErrEmptySaga)
}

func TestBuilderEmptyStepFails(t *testing.T) {
	_, err := NewSaga().Step().Step().Commit()
	assert.ErrorIs(t, err, ErrEmptyStep)
}

func TestBuilderKindMethodBindsOnExecute(t *testing.T) {
	// RemoteStep/LocalStep set OnExecute as part of binding the kind, so
	// ErrUndefinedOnExecute only arises when they are handed a zero
	// Operation; verify commit succeeds for a minimal single local step
	// bound to a named operation.
	s, err := NewSaga().Step().LocalStep(NewOperation("noop")).Commit()
	require.NoError(t, err)
	assert.Len(t, s.Steps, 1)
}

func TestBuilderOnSuccessCalledTwiceFails(t *testing.T) {
	_, err := NewSaga().
		Step().RemoteStep(NewOperation("op")).OnSuccess(NewOperation("a")).OnSuccess(NewOperation("b")).
		Commit()
	assert.ErrorIs(t, err, ErrAlreadySet)
}

func TestBuilderConditionalRequiresCommittedBranches(t *testing.T) {
	uncommitted := Saga{Steps: []Step{{Kind: KindLocal, OnExecute: NewOperation("x")}}}
	_, err := NewSaga().
		Step().ConditionalStep([]Branch{{Predicate: NewOperation("pred"), Saga: uncommitted}}, nil).
		Commit()
	assert.True(t, errors.Is(err, ErrNotCommitted))
}

func TestSagaEqual(t *testing.T) {
	a, err := NewSaga().Step().LocalStep(NewOperation("op")).Commit()
	require.NoError(t, err)
	b, err := NewSaga().Step().LocalStep(NewOperation("op")).Commit()
	require.NoError(t, err)
	c, err := NewSaga().Step().LocalStep(NewOperation("other")).Commit()
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
