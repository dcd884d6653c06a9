package saga

import (
	"context"
	"errors"
)

// stepEnv bundles the collaborators a StepExecution needs to run its
// executors, threaded down from the owning SagaExecution rather than
// stored on the StepExecution itself so StepExecution stays a plain,
// serializable record (spec §4.5).
type stepEnv struct {
	registry    *CallbackRegistry
	broker      Broker
	executionID string
	user        string
	replyTopic  string
}

// StepExecution is the per-step runtime record (spec §3): the step
// definition it was instantiated from, its StepStatus, whether its
// compensation has already run, and — for conditional steps only — the
// inner SagaExecution selected by the branch predicate.
type StepExecution struct {
	Definition        Step
	Status            StepStatus
	AlreadyRolledBack bool
	Inner             *SagaExecution
}

// NewStepExecution instantiates a fresh, unexecuted StepExecution for
// def.
func NewStepExecution(def Step) *StepExecution {
	return &StepExecution{Definition: def, Status: StepCreated}
}

// Execute advances se by one call, dispatching on se.Definition.Kind
// (spec §4.3). response is nil on a first, non-resuming call.
func (se *StepExecution) Execute(ctx context.Context, env stepEnv, sagaCtx Context, response *Response) (Context, error) {
	switch se.Definition.Kind {
	case KindRemote:
		return se.executeRemote(ctx, env, sagaCtx, response)
	case KindConditional:
		return se.executeConditional(ctx, env, sagaCtx, response)
	default:
		return se.executeLocal(ctx, env, sagaCtx)
	}
}

// Rollback compensates se, dispatching on se.Definition.Kind (spec
// §4.3).
func (se *StepExecution) Rollback(ctx context.Context, env stepEnv, sagaCtx Context) (Context, error) {
	switch se.Definition.Kind {
	case KindRemote:
		return se.rollbackRequest(ctx, env, sagaCtx)
	case KindConditional:
		return se.rollbackConditional(ctx, env, sagaCtx)
	default:
		return se.rollbackLocal(ctx, env, sagaCtx)
	}
}

func (se *StepExecution) executeLocal(ctx context.Context, env stepEnv, sagaCtx Context) (Context, error) {
	if se.Status == StepCreated {
		se.Status = StepRunningOnExecute
		exec := LocalExecutor{Registry: env.registry}
		next, err := exec.Exec(ctx, se.Definition.OnExecute, sagaCtx)
		if err != nil {
			se.Status = StepErroredOnExecute
			return sagaCtx, &FailedExecutionStepError{Err: err}
		}
		se.Status = StepFinishedOnExecute
		sagaCtx = next
	}
	se.Status = StepFinished
	return sagaCtx, nil
}

func (se *StepExecution) rollbackLocal(ctx context.Context, env stepEnv, sagaCtx Context) (Context, error) {
	if se.Status == StepCreated {
		return sagaCtx, &RollbackStepError{Reason: "nothing to rollback"}
	}
	if se.AlreadyRolledBack {
		return sagaCtx, &RollbackStepError{Reason: "already rolled back"}
	}
	exec := LocalExecutor{Registry: env.registry}
	next, err := exec.Exec(ctx, se.Definition.OnFailure, sagaCtx)
	se.AlreadyRolledBack = true
	if err != nil {
		return sagaCtx, err
	}
	return next, nil
}

func (se *StepExecution) executeRemote(ctx context.Context, env stepEnv, sagaCtx Context, response *Response) (Context, error) {
	if se.Status == StepCreated {
		se.Status = StepRunningOnExecute
		exec := RequestExecutor{Registry: env.registry, Broker: env.broker}
		if err := exec.Exec(ctx, se.Definition.OnExecute, sagaCtx, env.executionID, env.user, env.replyTopic); err != nil {
			se.Status = StepErroredOnExecute
			return sagaCtx, &FailedExecutionStepError{Err: err}
		}
		se.Status = StepFinishedOnExecute
	}

	if response == nil {
		se.Status = StepPausedByOnExecute
		return sagaCtx, &PausedExecutionStepError{}
	}

	respExec := ResponseExecutor{Registry: env.registry}
	switch response.Status {
	case ReplySystemError:
		se.Status = StepErroredByOnExecute
		return sagaCtx, &FailedExecutionStepError{Err: &CommandReplyFailed{Response: *response}}
	case ReplySuccess:
		se.Status = StepRunningOnSuccess
		next, err := respExec.Exec(ctx, se.Definition.OnSuccess, sagaCtx, *response)
		if err != nil {
			se.Status = StepErroredOnSuccess
			if _, rbErr := se.rollbackRequest(ctx, env, sagaCtx); rbErr != nil {
				_ = rbErr
			}
			return sagaCtx, &FailedExecutionStepError{Err: err}
		}
		sagaCtx = next
	case ReplyError:
		se.Status = StepRunningOnError
		next, err := respExec.Exec(ctx, se.Definition.OnError, sagaCtx, *response)
		if err != nil {
			se.Status = StepErroredOnError
			if _, rbErr := se.rollbackRequest(ctx, env, sagaCtx); rbErr != nil {
				_ = rbErr
			}
			return sagaCtx, &FailedExecutionStepError{Err: err}
		}
		sagaCtx = next
	}

	se.Status = StepFinished
	return sagaCtx, nil
}

func (se *StepExecution) rollbackRequest(ctx context.Context, env stepEnv, sagaCtx Context) (Context, error) {
	if se.Status == StepCreated {
		return sagaCtx, &RollbackStepError{Reason: "nothing to rollback"}
	}
	if se.AlreadyRolledBack {
		return sagaCtx, &RollbackStepError{Reason: "already rolled back"}
	}
	exec := RequestExecutor{Registry: env.registry, Broker: env.broker}
	err := exec.Exec(ctx, se.Definition.OnFailure, sagaCtx, env.executionID, env.user, env.replyTopic)
	se.AlreadyRolledBack = true
	if err != nil {
		return sagaCtx, err
	}
	return sagaCtx, nil
}

func (se *StepExecution) executeConditional(ctx context.Context, env stepEnv, sagaCtx Context, response *Response) (Context, error) {
	if se.Status == StepCreated && se.Inner == nil {
		selected, err := se.selectBranch(ctx, env, sagaCtx)
		if err != nil {
			se.Status = StepErroredOnExecute
			return sagaCtx, &FailedExecutionStepError{Err: err}
		}
		if selected == nil {
			se.Status = StepFinished
			return sagaCtx, nil
		}
		se.Inner = NewSagaExecutionFrom(*selected, env.executionID, env.user, sagaCtx, env.registry, env.broker, NoopTransactionManager{})
		se.Inner.ReplyTopic = env.replyTopic
	}

	_, err := se.Inner.Execute(ctx, response)
	switch {
	case isPaused(err):
		se.Status = StepPausedByOnExecute
		return sagaCtx, &PausedExecutionStepError{}
	case err != nil:
		se.Status = StepErroredByOnExecute
		return sagaCtx, &FailedExecutionStepError{Err: err}
	}

	sagaCtx = sagaCtx.Merge(se.Inner.Context)
	se.Status = StepFinished
	return sagaCtx, nil
}

// selectBranch evaluates each branch's predicate in declared order,
// returning the first whose predicate is truthy, or ElseSaga, or nil if
// the step should complete as a no-op (spec §4.3.3 step 1).
func (se *StepExecution) selectBranch(ctx context.Context, env stepEnv, sagaCtx Context) (*Saga, error) {
	for _, branch := range se.Definition.Branches {
		cb, ok := branch.Predicate.predicateFunc(env.registry)
		if !ok {
			return nil, unresolvedCallback(branch.Predicate.CallbackRef)
		}
		ok, err := cb(background(ctx), sagaCtx, branch.Predicate.Parameters)
		if err != nil {
			return nil, err
		}
		if ok {
			s := branch.Saga
			return &s, nil
		}
	}
	if se.Definition.ElseSaga != nil {
		return se.Definition.ElseSaga, nil
	}
	return nil, nil
}

func (se *StepExecution) rollbackConditional(ctx context.Context, env stepEnv, sagaCtx Context) (Context, error) {
	if se.Status == StepCreated {
		return sagaCtx, &RollbackStepError{Reason: "nothing to rollback"}
	}
	if se.AlreadyRolledBack {
		return sagaCtx, &RollbackStepError{Reason: "already rolled back"}
	}
	se.AlreadyRolledBack = true
	if se.Inner == nil || se.Inner.AlreadyRolledBack {
		// Either nothing was selected, or the inner execution already
		// compensated itself when it errored (spec §9 idempotence).
		return sagaCtx, nil
	}
	if err := se.Inner.Rollback(ctx); err != nil {
		return sagaCtx, &RollbackStepError{Reason: err.Error()}
	}
	return sagaCtx, nil
}

// isPaused reports whether err is (or wraps) a *PausedExecutionStepError.
func isPaused(err error) bool {
	var pe *PausedExecutionStepError
	return errors.As(err, &pe)
}
