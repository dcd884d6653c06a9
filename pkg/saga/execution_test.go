package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newS1Registry() *CallbackRegistry {
	reg := NewCallbackRegistry()
	reg.Register("send_create_order", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "orders.create", Payload: "create-order"}, nil
	}))
	reg.Register("handle_order_success", ResponseCallback(func(_ context.Context, sagaCtx Context, resp Response, _ Context) (Context, error) {
		return sagaCtx.Set("order", resp.Payload), nil
	}))
	reg.Register("send_create_ticket", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "tickets.create", Payload: "create-ticket"}, nil
	}))
	reg.Register("handle_ticket_success", ResponseCallback(func(_ context.Context, sagaCtx Context, resp Response, _ Context) (Context, error) {
		return sagaCtx.Set("ticket", resp.Payload), nil
	}))
	reg.Register("send_delete_order", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "orders.delete", Payload: "delete-order"}, nil
	}))
	return reg
}

func newS1Saga(t *testing.T) Saga {
	t.Helper()
	s, err := NewSaga().
		Step().RemoteStep(NewOperation("send_create_order")).OnSuccess(NewOperation("handle_order_success")).OnFailure(NewOperation("send_delete_order")).
		Step().RemoteStep(NewOperation("send_create_ticket")).OnSuccess(NewOperation("handle_ticket_success")).
		Commit()
	require.NoError(t, err)
	return s
}

// S1 — happy-path two-step saga (spec §8).
func TestS1HappyPathTwoStepSaga(t *testing.T) {
	reg := newS1Registry()
	broker := NewInMemoryBroker()
	exec := NewSagaExecution(newS1Saga(t), reg, broker, NewInMemoryTransactionManager())

	_, err := exec.Execute(context.Background(), nil)
	var paused *PausedExecutionStepError
	require.ErrorAs(t, err, &paused)
	assert.Equal(t, StatusPaused, exec.Status)

	_, err = exec.Execute(context.Background(), &Response{Payload: "order", Status: ReplySuccess})
	require.ErrorAs(t, err, &paused)
	assert.Equal(t, StatusPaused, exec.Status)

	finalCtx, err := exec.Execute(context.Background(), &Response{Payload: "ticket", Status: ReplySuccess})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, exec.Status)

	order, _ := finalCtx.Get("order")
	ticket, _ := finalCtx.Get("ticket")
	assert.Equal(t, "order", order)
	assert.Equal(t, "ticket", ticket)
	assert.Equal(t, 2, broker.Len())
}

// S2 — failure triggers rollback (spec §8).
func TestS2FailureTriggersRollback(t *testing.T) {
	reg := newS1Registry()
	reg.Register("handle_ticket_success", ResponseCallback(func(_ context.Context, sagaCtx Context, _ Response, _ Context) (Context, error) {
		return sagaCtx, errors.New("ticket service unavailable")
	}))
	broker := NewInMemoryBroker()
	exec := NewSagaExecution(newS1Saga(t), reg, broker, NewInMemoryTransactionManager())

	_, err := exec.Execute(context.Background(), nil)
	require.Error(t, err)
	_, err = exec.Execute(context.Background(), &Response{Payload: "order", Status: ReplySuccess})
	require.Error(t, err)

	broker.Reset()
	_, err = exec.Execute(context.Background(), &Response{Payload: "ticket", Status: ReplySuccess})

	var failed *FailedExecutionStepError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, StatusErrored, exec.Status)
	require.Equal(t, 1, broker.Len())
	assert.Equal(t, "orders.delete", broker.Calls()[0].Topic)

	_, err = exec.Execute(context.Background(), nil)
	var already *AlreadyExecutedError
	assert.ErrorAs(t, err, &already)
}

// S3 — SYSTEM_ERROR reply (spec §8).
func TestS3SystemErrorReply(t *testing.T) {
	reg := NewCallbackRegistry()
	reg.Register("send_op", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "participant.do"}, nil
	}))
	reg.Register("send_compensate", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "participant.undo"}, nil
	}))
	saga, err := NewSaga().
		Step().RemoteStep(NewOperation("send_op")).OnFailure(NewOperation("send_compensate")).
		Commit()
	require.NoError(t, err)

	broker := NewInMemoryBroker()
	exec := NewSagaExecution(saga, reg, broker, NewInMemoryTransactionManager())

	_, err = exec.Execute(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, 1, broker.Len())

	_, err = exec.Execute(context.Background(), &Response{Status: ReplySystemError})

	var failed *FailedExecutionStepError
	require.ErrorAs(t, err, &failed)
	var replyFailed *CommandReplyFailed
	require.ErrorAs(t, err, &replyFailed)
	assert.Equal(t, StatusErrored, exec.Status)

	require.Equal(t, 2, broker.Len())
	assert.Equal(t, "participant.undo", broker.Calls()[1].Topic)
}

func newConditionalRegistry() *CallbackRegistry {
	reg := NewCallbackRegistry()
	reg.Register("is_option_1", PredicateCallback(func(_ context.Context, sagaCtx Context, _ Context) (bool, error) {
		v, _ := sagaCtx.Get("option")
		return v == 1, nil
	}))
	reg.Register("is_option_2", PredicateCallback(func(_ context.Context, sagaCtx Context, _ Context) (bool, error) {
		v, _ := sagaCtx.Get("option")
		return v == 2, nil
	}))
	reg.Register("send_branch", RequestCallback(func(_ context.Context, _ Context, _ Context) (Request, error) {
		return Request{Target: "branch.do"}, nil
	}))
	reg.Register("handle_branch_success", ResponseCallback(func(_ context.Context, sagaCtx Context, resp Response, _ Context) (Context, error) {
		return sagaCtx.Set("result", resp.Payload), nil
	}))
	reg.Register("handle_branch_failure", ResponseCallback(func(_ context.Context, sagaCtx Context, _ Response, _ Context) (Context, error) {
		return sagaCtx, errors.New("branch B on_success always fails")
	}))
	reg.Register("local_branch_c", LocalCallback(func(_ context.Context, sagaCtx Context, _ Context) (Context, error) {
		return sagaCtx.Set("result", "C-step"), nil
	}))
	reg.Register("commit_c", CommitCallback(func(_ context.Context, sagaCtx Context, _ Context) (Context, error) {
		return sagaCtx.Set("committed", true), nil
	}))
	return reg
}

// S4 — conditional branching (spec §8).
func TestS4ConditionalBranching(t *testing.T) {
	reg := newConditionalRegistry()

	sagaA, err := NewSaga().Step().RemoteStep(NewOperation("send_branch")).OnSuccess(NewOperation("handle_branch_success")).Commit()
	require.NoError(t, err)
	sagaB, err := NewSaga().Step().RemoteStep(NewOperation("send_branch")).OnSuccess(NewOperation("handle_branch_failure")).Commit()
	require.NoError(t, err)
	sagaC, err := NewSaga().Step().LocalStep(NewOperation("local_branch_c")).Commit(NewOperation("commit_c"))
	require.NoError(t, err)

	outer, err := NewSaga().
		Step().ConditionalStep([]Branch{
		{Predicate: NewOperation("is_option_1"), Saga: sagaA},
		{Predicate: NewOperation("is_option_2"), Saga: sagaB},
	}, &sagaC).
		Commit()
	require.NoError(t, err)

	t.Run("option 1 pauses then finishes merged context", func(t *testing.T) {
		broker := NewInMemoryBroker()
		exec := NewSagaExecution(outer, reg, broker, NewInMemoryTransactionManager(), WithInitialContext(NewContext("option", 1)))

		_, err := exec.Execute(context.Background(), nil)
		var paused *PausedExecutionStepError
		require.ErrorAs(t, err, &paused)

		finalCtx, err := exec.Execute(context.Background(), &Response{Payload: "A-result", Status: ReplySuccess})
		require.NoError(t, err)
		assert.Equal(t, StatusFinished, exec.Status)
		result, _ := finalCtx.Get("result")
		assert.Equal(t, "A-result", result)
	})

	t.Run("option 2 errors and rolls back", func(t *testing.T) {
		broker := NewInMemoryBroker()
		exec := NewSagaExecution(outer, reg, broker, NewInMemoryTransactionManager(), WithInitialContext(NewContext("option", 2)))

		_, err := exec.Execute(context.Background(), nil)
		require.Error(t, err)

		_, err = exec.Execute(context.Background(), &Response{Payload: "x", Status: ReplySuccess})
		var failed *FailedExecutionStepError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, StatusErrored, exec.Status)
	})

	t.Run("option 3 commits the else branch without pausing", func(t *testing.T) {
		broker := NewInMemoryBroker()
		exec := NewSagaExecution(outer, reg, broker, NewInMemoryTransactionManager(), WithInitialContext(NewContext("option", 3)))

		finalCtx, err := exec.Execute(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, StatusFinished, exec.Status)
		result, _ := finalCtx.Get("result")
		assert.Equal(t, "C-step", result)
	})
}

// S5 — rollback idempotence (spec §8).
func TestS5RollbackIdempotence(t *testing.T) {
	reg := newS1Registry()
	broker := NewInMemoryBroker()
	exec := NewSagaExecution(newS1Saga(t), reg, broker, NewInMemoryTransactionManager())

	_, err := exec.Execute(context.Background(), nil)
	require.Error(t, err)

	broker.Reset()
	err = exec.Rollback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, broker.Len())

	err = exec.Rollback(context.Background())
	var rbErr *RollbackExecutionError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, 1, broker.Len())
}

// S6 — snapshot resumption (spec §8, property P6).
func TestS6SnapshotResumption(t *testing.T) {
	reg := newS1Registry()
	broker := NewInMemoryBroker()
	exec := NewSagaExecution(newS1Saga(t), reg, broker, NewInMemoryTransactionManager())

	_, err := exec.Execute(context.Background(), nil)
	require.Error(t, err)

	raw, err := exec.Raw()
	require.NoError(t, err)

	rehydrated, err := SagaExecutionFromRaw(raw, reg, broker, NewInMemoryTransactionManager())
	require.NoError(t, err)

	_, err = rehydrated.Execute(context.Background(), &Response{Payload: "order", Status: ReplySuccess})
	require.Error(t, err)
	finalCtx, err := rehydrated.Execute(context.Background(), &Response{Payload: "ticket", Status: ReplySuccess})
	require.NoError(t, err)

	directExec := NewSagaExecution(newS1Saga(t), reg, NewInMemoryBroker(), NewInMemoryTransactionManager())
	_, _ = directExec.Execute(context.Background(), nil)
	_, _ = directExec.Execute(context.Background(), &Response{Payload: "order", Status: ReplySuccess})
	directCtx, err := directExec.Execute(context.Background(), &Response{Payload: "ticket", Status: ReplySuccess})
	require.NoError(t, err)

	assert.True(t, finalCtx.Equal(directCtx))
	assert.Equal(t, StatusFinished, rehydrated.Status)
}
