package saga

import "context"

// LocalExecutor invokes a LocalCallback bound by an Operation against a
// Context (spec §4.2). A zero-value Operation is a documented no-op:
// exec returns the input context unchanged.
type LocalExecutor struct {
	Registry *CallbackRegistry
}

// Exec resolves op against the registry and invokes it. Any error the
// callback returns, or a registry-resolution failure, is wrapped as
// *ExecutorError.
func (e LocalExecutor) Exec(ctx context.Context, op Operation, sagaCtx Context) (Context, error) {
	if op.IsZero() {
		return sagaCtx, nil
	}
	cb, ok := op.localFunc(e.Registry)
	if !ok {
		return sagaCtx, &ExecutorError{Op: "local", Err: unresolvedCallback(op.CallbackRef)}
	}
	next, err := cb(background(ctx), sagaCtx, op.Parameters)
	if err != nil {
		return sagaCtx, &ExecutorError{Op: "local", Err: err}
	}
	return next, nil
}

// RequestExecutor invokes a RequestCallback to produce a Request, then
// publishes it via the Broker (spec §4.2). executionID/user/replyTopic
// are ambient values threaded from the enclosing SagaExecution.
type RequestExecutor struct {
	Registry *CallbackRegistry
	Broker   Broker
}

// Exec resolves op, invokes it to build a Request, and publishes it.
// Callback errors and broker errors are both wrapped as *ExecutorError.
func (e RequestExecutor) Exec(ctx context.Context, op Operation, sagaCtx Context, executionID, user, replyTopic string) error {
	if op.IsZero() {
		return nil
	}
	cb, ok := op.requestFunc(e.Registry)
	if !ok {
		return &ExecutorError{Op: "request", Err: unresolvedCallback(op.CallbackRef)}
	}
	req, err := cb(background(ctx), sagaCtx, op.Parameters)
	if err != nil {
		return &ExecutorError{Op: "request", Err: err}
	}
	if e.Broker == nil {
		return &ExecutorError{Op: "request", Err: errNoBroker}
	}
	if err := e.Broker.Send(background(ctx), req.Target, req.Payload, executionID, user, replyTopic); err != nil {
		return &ExecutorError{Op: "request", Err: err}
	}
	return nil
}

// ResponseExecutor invokes a ResponseCallback against a Context and the
// Response a remote participant sent back (spec §4.2).
type ResponseExecutor struct {
	Registry *CallbackRegistry
}

// Exec resolves op and invokes it with sagaCtx and response. Errors are
// wrapped as *ExecutorError.
func (e ResponseExecutor) Exec(ctx context.Context, op Operation, sagaCtx Context, response Response) (Context, error) {
	if op.IsZero() {
		return sagaCtx, nil
	}
	cb, ok := op.responseFunc(e.Registry)
	if !ok {
		return sagaCtx, &ExecutorError{Op: "response", Err: unresolvedCallback(op.CallbackRef)}
	}
	next, err := cb(background(ctx), sagaCtx, response, op.Parameters)
	if err != nil {
		return sagaCtx, &ExecutorError{Op: "response", Err: err}
	}
	return next, nil
}

// CommitExecutor invokes the saga-level CommitCallback registered against
// a Saga's commit operation (spec §4.4). A zero-value Operation is a
// documented no-op: exec returns the input context unchanged.
type CommitExecutor struct {
	Registry *CallbackRegistry
}

// Exec resolves op against the registry and invokes it. Any error the
// callback returns, or a registry-resolution failure, is wrapped as
// *ExecutorError.
func (e CommitExecutor) Exec(ctx context.Context, op Operation, sagaCtx Context) (Context, error) {
	if op.IsZero() {
		return sagaCtx, nil
	}
	cb, ok := op.commitFunc(e.Registry)
	if !ok {
		return sagaCtx, &ExecutorError{Op: "commit", Err: unresolvedCallback(op.CallbackRef)}
	}
	next, err := cb(background(ctx), sagaCtx, op.Parameters)
	if err != nil {
		return sagaCtx, &ExecutorError{Op: "commit", Err: err}
	}
	return next, nil
}
