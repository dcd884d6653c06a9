package saga

import (
	"context"

	"github.com/google/uuid"
)

// SagaExecution is the top-level coordinator (spec §3, §4.4): it owns
// the running Context, the outer Status, the ordered list of completed
// StepExecutions, and the currently paused step (if any). It advances
// through Created -> Running -> {Paused <-> Running}* -> {Finished |
// Errored}.
//
// SagaExecution is not safe for concurrent use: at most one Execute or
// Rollback call may be in flight per instance at a time (spec §5); a
// persistence layer enforcing single-writer access per saga ID is a
// precondition the host must provide.
type SagaExecution struct {
	ID                string
	User              string
	Definition        Saga
	Context           Context
	Status            Status
	ExecutedSteps     []*StepExecution
	PausedStep        *StepExecution
	AlreadyRolledBack bool

	// ReplyTopic is passed through to the Broker on every remote step's
	// Send call, unused by the engine itself.
	ReplyTopic string

	registry  *CallbackRegistry
	broker    Broker
	txManager TransactionManager
}

// Option configures a SagaExecution at construction time.
type Option func(*SagaExecution)

// WithUser attaches the initiating user's identifier to the execution.
func WithUser(user string) Option {
	return func(e *SagaExecution) { e.User = user }
}

// WithReplyTopic sets the topic remote participants should reply on.
func WithReplyTopic(topic string) Option {
	return func(e *SagaExecution) { e.ReplyTopic = topic }
}

// WithInitialContext seeds the execution's starting Context, overriding
// the default empty one.
func WithInitialContext(c Context) Option {
	return func(e *SagaExecution) { e.Context = c }
}

// NewSagaExecution creates a fresh SagaExecution for def, assigning it a
// new random ID. def need not be committed yet; Execute enforces
// invariant I7 (spec §3) at call time.
func NewSagaExecution(def Saga, registry *CallbackRegistry, broker Broker, txManager TransactionManager, opts ...Option) *SagaExecution {
	e := &SagaExecution{
		ID:         uuid.NewString(),
		Definition: def,
		Context:    NewContext(),
		Status:     StatusCreated,
		registry:   registry,
		broker:     broker,
		txManager:  txManager,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSagaExecutionFrom instantiates an inner execution for a
// ConditionalStep's selected branch, reusing the outer execution's ID
// and user so reply routing stays stable across nesting (spec §9), and
// seeding the inner Context with the outer saga's Context so branch
// callbacks can read values the outer saga already set.
func NewSagaExecutionFrom(def Saga, id, user string, initialCtx Context, registry *CallbackRegistry, broker Broker, txManager TransactionManager) *SagaExecution {
	return &SagaExecution{
		ID:         id,
		User:       user,
		Definition: def,
		Context:    initialCtx,
		Status:     StatusCreated,
		registry:   registry,
		broker:     broker,
		txManager:  txManager,
	}
}

func (e *SagaExecution) env() stepEnv {
	return stepEnv{
		registry:    e.registry,
		broker:      e.broker,
		executionID: e.ID,
		user:        e.User,
		replyTopic:  e.ReplyTopic,
	}
}

// Execute drives the saga forward by one logical step of progress: it
// resumes a paused step (if any) with response, then advances through
// every pending step, runs the commit operation, and finalizes the
// downstream transaction (spec §4.4).
//
// A non-nil error is a *PausedExecutionStepError (the execution must be
// snapshotted and the caller should await a reply), a terminal failure
// after which Status is Errored and rollback has already run, or a
// refusal to run at all (*AlreadyExecutedError, ErrNotCommitted) that
// leaves Status unchanged.
func (e *SagaExecution) Execute(ctx context.Context, response *Response) (Context, error) {
	if e.Status == StatusFinished {
		return e.Context, &AlreadyExecutedError{Status: e.Status}
	}
	if e.Status == StatusErrored {
		if response == nil {
			return e.Context, &AlreadyExecutedError{Status: e.Status}
		}
		// A compensation reply arriving after rollback already completed
		// for this step; nothing left to do (spec §4.4 step 2).
		return e.Context, nil
	}
	if !e.Definition.Committed {
		return e.Context, ErrNotCommitted
	}

	e.Status = StatusRunning

	if e.PausedStep != nil {
		step := e.PausedStep
		if err := e.executeOne(ctx, step, response); err != nil {
			return e.Context, err
		}
		if step.Status != StepPausedByOnExecute {
			e.PausedStep = nil
		}
	}

	for idx := len(e.ExecutedSteps); idx < len(e.Definition.Steps); idx++ {
		step := NewStepExecution(e.Definition.Steps[idx])
		if err := e.executeOne(ctx, step, nil); err != nil {
			return e.Context, err
		}
	}

	if e.Definition.HasCommitOp {
		commitExec := CommitExecutor{Registry: e.registry}
		next, err := commitExec.Exec(ctx, e.Definition.CommitOp, e.Context)
		if err != nil {
			_ = e.Rollback(ctx)
			e.Status = StatusErrored
			return e.Context, &FailedCommitCallbackError{Err: err}
		}
		e.Context = next
	}

	if e.txManager != nil {
		remoteCount := 0
		for _, se := range e.ExecutedSteps {
			if se.Definition.Kind == KindRemote {
				remoteCount++
			}
		}
		_ = e.txManager.Commit(ctx, remoteCount, e.ID)
	}

	e.Status = StatusFinished
	return e.Context, nil
}

// executeOne is the _execute_one primitive (spec §4.4): invoke the step,
// on success append it to ExecutedSteps and adopt its resulting Context;
// on pause, remember it as the paused step; on failure, roll back the
// whole saga and mark it Errored.
func (e *SagaExecution) executeOne(ctx context.Context, step *StepExecution, response *Response) error {
	next, err := step.Execute(ctx, e.env(), e.Context, response)
	if err == nil {
		e.Context = next
		e.ExecutedSteps = append(e.ExecutedSteps, step)
		return nil
	}
	if isPaused(err) {
		if pe, ok := err.(*PausedExecutionStepError); ok {
			pe.StepIndex = len(e.ExecutedSteps)
		}
		e.PausedStep = step
		e.Status = StatusPaused
		return err
	}
	if fe, ok := err.(*FailedExecutionStepError); ok {
		// The step's on_execute phase actually ran (a remote call may
		// already be in flight) even though the step did not finish
		// successfully, so it must still be visited by the saga-level
		// rollback walk below.
		fe.StepIndex = len(e.ExecutedSteps)
		e.ExecutedSteps = append(e.ExecutedSteps, step)
	}
	_ = e.Rollback(ctx)
	e.Status = StatusErrored
	return err
}

// Rollback compensates every executed step in reverse order, best-effort
// exhaustive: a failing compensation does not stop the remaining ones
// (spec §4.4 rollback, invariants P3/P4).
func (e *SagaExecution) Rollback(ctx context.Context) error {
	if e.AlreadyRolledBack {
		return &RollbackExecutionError{Reason: "already rolled back"}
	}

	env := e.env()
	var failed []error

	// A paused step's on_execute already had a side effect (a remote
	// call in flight) even though it never finished; a host-initiated
	// rollback (e.g. on timeout, spec §5) must compensate it too, before
	// walking the steps that finished ahead of it.
	if e.PausedStep != nil && !e.PausedStep.AlreadyRolledBack {
		if _, err := e.PausedStep.Rollback(ctx, env, e.Context); err != nil {
			failed = append(failed, err)
		}
	}

	for i := len(e.ExecutedSteps) - 1; i >= 0; i-- {
		step := e.ExecutedSteps[i]
		if step.AlreadyRolledBack {
			// Already compensated inline by the step itself (spec §9:
			// "per-step local rollback is idempotent ... the second pass
			// is a no-op for that step").
			continue
		}
		if _, err := step.Rollback(ctx, env, e.Context); err != nil {
			failed = append(failed, err)
		}
	}

	if e.txManager != nil {
		_ = e.txManager.Reject(ctx, e.ID)
	}

	e.AlreadyRolledBack = true
	if len(failed) > 0 {
		return &RollbackExecutionError{Reason: "one or more step compensations failed", Failed: failed}
	}
	return nil
}
