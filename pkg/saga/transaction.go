package saga

import "context"

// TransactionManager finalizes or rejects the downstream two-phase
// commit of resources touched by an execution's remote steps (spec §6).
// commit's count is the number of executed RemoteStepExecutions; local
// and conditional steps never participate (spec §9).
type TransactionManager interface {
	Commit(ctx context.Context, count int, executionID string) error
	Reject(ctx context.Context, executionID string) error
}

// NoopTransactionManager is a TransactionManager that always succeeds
// and performs no downstream action, suitable for sagas with no
// distributed-resource finalization step.
type NoopTransactionManager struct{}

func (NoopTransactionManager) Commit(ctx context.Context, count int, executionID string) error {
	return nil
}

func (NoopTransactionManager) Reject(ctx context.Context, executionID string) error {
	return nil
}

// InMemoryTransactionManager records Commit/Reject invocations for
// tests, delegating to optional hooks when set.
type InMemoryTransactionManager struct {
	Commits []TransactionCall
	Rejects []string

	OnCommit func(count int, executionID string) error
	OnReject func(executionID string) error
}

// TransactionCall records one Commit invocation.
type TransactionCall struct {
	Count       int
	ExecutionID string
}

func NewInMemoryTransactionManager() *InMemoryTransactionManager {
	return &InMemoryTransactionManager{}
}

func (m *InMemoryTransactionManager) Commit(ctx context.Context, count int, executionID string) error {
	m.Commits = append(m.Commits, TransactionCall{Count: count, ExecutionID: executionID})
	if m.OnCommit != nil {
		return m.OnCommit(count, executionID)
	}
	return nil
}

func (m *InMemoryTransactionManager) Reject(ctx context.Context, executionID string) error {
	m.Rejects = append(m.Rejects, executionID)
	if m.OnReject != nil {
		return m.OnReject(executionID)
	}
	return nil
}
