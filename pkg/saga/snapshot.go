package saga

import (
	"encoding/base64"
	"fmt"
)

// This file implements the bidirectional raw <-> in-memory conversion
// described in spec §4.5: every entity exposes a canonical mapping
// representation (here, a JSON-tagged Go struct) built only from
// primitive scalars, nested mappings, and Context's binary-string form.
// Round-trip law (P1): FromRaw(x.Raw()) == x for every reachable value.

// OperationRaw is Operation's wire form. Parameters is the base64 of
// Parameters.MarshalBinary(), matching spec §4.5: "Operations are
// serialized as {callback: <fully.qualified.name>}" generalized with a
// parameters slot since this engine's Operation always carries bound
// parameters alongside the callback reference.
type OperationRaw struct {
	Callback   string `json:"callback"`
	Parameters string `json:"parameters,omitempty"`
}

// Raw converts op to its wire form.
func (op Operation) Raw() (OperationRaw, error) {
	if op.IsZero() {
		return OperationRaw{}, nil
	}
	data, err := op.Parameters.MarshalBinary()
	if err != nil {
		return OperationRaw{}, fmt.Errorf("saga: marshal operation %q parameters: %w", op.CallbackRef, err)
	}
	return OperationRaw{Callback: op.CallbackRef, Parameters: base64.StdEncoding.EncodeToString(data)}, nil
}

// OperationFromRaw is Raw's inverse. The zero OperationRaw decodes back
// to the zero Operation, preserving the IsZero "no-op" sentinel.
func OperationFromRaw(raw OperationRaw) (Operation, error) {
	if raw.Callback == "" {
		return Operation{}, nil
	}
	var params Context
	if raw.Parameters != "" {
		data, err := base64.StdEncoding.DecodeString(raw.Parameters)
		if err != nil {
			return Operation{}, fmt.Errorf("saga: decode operation %q parameters: %w", raw.Callback, err)
		}
		params, err = ContextFromBinary(data)
		if err != nil {
			return Operation{}, err
		}
	}
	return Operation{CallbackRef: raw.Callback, Parameters: params}, nil
}

// BranchRaw is Branch's wire form.
type BranchRaw struct {
	Predicate OperationRaw `json:"predicate"`
	Saga      SagaRaw      `json:"saga"`
}

// StepRaw is Step's wire form. Kind doubles as the "cls" discriminator
// spec §4.5 calls for so the codec can reconstruct the right variant.
type StepRaw struct {
	Kind      string       `json:"kind"`
	OnExecute OperationRaw `json:"on_execute,omitempty"`
	OnSuccess OperationRaw `json:"on_success,omitempty"`
	OnError   OperationRaw `json:"on_error,omitempty"`
	OnFailure OperationRaw `json:"on_failure,omitempty"`
	Branches  []BranchRaw  `json:"branches,omitempty"`
	ElseSaga  *SagaRaw     `json:"else_saga,omitempty"`
}

// Raw converts s to its wire form.
func (s Step) Raw() (StepRaw, error) {
	raw := StepRaw{Kind: string(s.Kind)}
	var err error
	if raw.OnExecute, err = s.OnExecute.Raw(); err != nil {
		return StepRaw{}, err
	}
	if raw.OnSuccess, err = s.OnSuccess.Raw(); err != nil {
		return StepRaw{}, err
	}
	if raw.OnError, err = s.OnError.Raw(); err != nil {
		return StepRaw{}, err
	}
	if raw.OnFailure, err = s.OnFailure.Raw(); err != nil {
		return StepRaw{}, err
	}
	for _, b := range s.Branches {
		predRaw, err := b.Predicate.Raw()
		if err != nil {
			return StepRaw{}, err
		}
		sagaRaw, err := b.Saga.Raw()
		if err != nil {
			return StepRaw{}, err
		}
		raw.Branches = append(raw.Branches, BranchRaw{Predicate: predRaw, Saga: sagaRaw})
	}
	if s.ElseSaga != nil {
		elseRaw, err := s.ElseSaga.Raw()
		if err != nil {
			return StepRaw{}, err
		}
		raw.ElseSaga = &elseRaw
	}
	return raw, nil
}

// StepFromRaw is Raw's inverse.
func StepFromRaw(raw StepRaw) (Step, error) {
	s := Step{Kind: StepKind(raw.Kind)}
	var err error
	if s.OnExecute, err = OperationFromRaw(raw.OnExecute); err != nil {
		return Step{}, err
	}
	if s.OnSuccess, err = OperationFromRaw(raw.OnSuccess); err != nil {
		return Step{}, err
	}
	if s.OnError, err = OperationFromRaw(raw.OnError); err != nil {
		return Step{}, err
	}
	if s.OnFailure, err = OperationFromRaw(raw.OnFailure); err != nil {
		return Step{}, err
	}
	for _, b := range raw.Branches {
		pred, err := OperationFromRaw(b.Predicate)
		if err != nil {
			return Step{}, err
		}
		branchSaga, err := SagaFromRaw(b.Saga)
		if err != nil {
			return Step{}, err
		}
		s.Branches = append(s.Branches, Branch{Predicate: pred, Saga: branchSaga})
	}
	if raw.ElseSaga != nil {
		elseSaga, err := SagaFromRaw(*raw.ElseSaga)
		if err != nil {
			return Step{}, err
		}
		s.ElseSaga = &elseSaga
	}
	return s, nil
}

// SagaRaw is Saga's wire form.
type SagaRaw struct {
	Steps       []StepRaw    `json:"steps"`
	CommitOp    OperationRaw `json:"commit_operation,omitempty"`
	HasCommitOp bool         `json:"has_commit_operation"`
	Committed   bool         `json:"committed"`
}

// Raw converts s to its wire form.
func (s Saga) Raw() (SagaRaw, error) {
	raw := SagaRaw{Committed: s.Committed, HasCommitOp: s.HasCommitOp}
	for _, step := range s.Steps {
		stepRaw, err := step.Raw()
		if err != nil {
			return SagaRaw{}, err
		}
		raw.Steps = append(raw.Steps, stepRaw)
	}
	if s.HasCommitOp {
		commitRaw, err := s.CommitOp.Raw()
		if err != nil {
			return SagaRaw{}, err
		}
		raw.CommitOp = commitRaw
	}
	return raw, nil
}

// SagaFromRaw is Raw's inverse.
func SagaFromRaw(raw SagaRaw) (Saga, error) {
	s := Saga{Committed: raw.Committed, HasCommitOp: raw.HasCommitOp}
	for _, stepRaw := range raw.Steps {
		step, err := StepFromRaw(stepRaw)
		if err != nil {
			return Saga{}, err
		}
		s.Steps = append(s.Steps, step)
	}
	if raw.HasCommitOp {
		commitOp, err := OperationFromRaw(raw.CommitOp)
		if err != nil {
			return Saga{}, err
		}
		s.CommitOp = commitOp
	}
	return s, nil
}

// StepExecutionRaw is StepExecution's wire form. Cls names the step
// variant so FromRaw can pick the right reconstruction path without
// inspecting Definition (spec §4.5: "step executions tag themselves
// with a cls discriminator").
type StepExecutionRaw struct {
	Cls               string            `json:"cls"`
	Definition        StepRaw           `json:"definition"`
	Status            string            `json:"status"`
	AlreadyRolledBack bool              `json:"already_rolled_back"`
	Inner             *SagaExecutionRaw `json:"inner,omitempty"`
}

// Raw converts se to its wire form.
func (se *StepExecution) Raw() (StepExecutionRaw, error) {
	defRaw, err := se.Definition.Raw()
	if err != nil {
		return StepExecutionRaw{}, err
	}
	raw := StepExecutionRaw{
		Cls:               string(se.Definition.Kind),
		Definition:        defRaw,
		Status:            string(se.Status),
		AlreadyRolledBack: se.AlreadyRolledBack,
	}
	if se.Inner != nil {
		innerRaw, err := se.Inner.Raw()
		if err != nil {
			return StepExecutionRaw{}, err
		}
		raw.Inner = &innerRaw
	}
	return raw, nil
}

// StepExecutionFromRaw is Raw's inverse. The collaborators are supplied
// by the host (registry, broker, transaction manager), never recovered
// from the snapshot itself.
func StepExecutionFromRaw(raw StepExecutionRaw, registry *CallbackRegistry, broker Broker, txManager TransactionManager) (*StepExecution, error) {
	def, err := StepFromRaw(raw.Definition)
	if err != nil {
		return nil, err
	}
	se := &StepExecution{
		Definition:        def,
		Status:            StepStatus(raw.Status),
		AlreadyRolledBack: raw.AlreadyRolledBack,
	}
	if raw.Inner != nil {
		inner, err := SagaExecutionFromRaw(*raw.Inner, registry, broker, txManager)
		if err != nil {
			return nil, err
		}
		se.Inner = inner
	}
	return se, nil
}

// SagaExecutionRaw is SagaExecution's wire form.
type SagaExecutionRaw struct {
	ID                string             `json:"id"`
	User              string             `json:"user,omitempty"`
	Definition        SagaRaw            `json:"definition"`
	Context           string             `json:"context"`
	Status            string             `json:"status"`
	ExecutedSteps     []StepExecutionRaw `json:"executed_steps"`
	PausedStep        *StepExecutionRaw  `json:"paused_step,omitempty"`
	AlreadyRolledBack bool               `json:"already_rolled_back"`
	ReplyTopic        string             `json:"reply_topic,omitempty"`
}

// Raw converts e to its wire form (spec §4.5, property P1).
func (e *SagaExecution) Raw() (SagaExecutionRaw, error) {
	defRaw, err := e.Definition.Raw()
	if err != nil {
		return SagaExecutionRaw{}, err
	}
	ctxData, err := e.Context.MarshalBinary()
	if err != nil {
		return SagaExecutionRaw{}, err
	}
	raw := SagaExecutionRaw{
		ID:                e.ID,
		User:              e.User,
		Definition:        defRaw,
		Context:           base64.StdEncoding.EncodeToString(ctxData),
		Status:            string(e.Status),
		AlreadyRolledBack: e.AlreadyRolledBack,
		ReplyTopic:        e.ReplyTopic,
	}
	for _, step := range e.ExecutedSteps {
		stepRaw, err := step.Raw()
		if err != nil {
			return SagaExecutionRaw{}, err
		}
		raw.ExecutedSteps = append(raw.ExecutedSteps, stepRaw)
	}
	if e.PausedStep != nil {
		pausedRaw, err := e.PausedStep.Raw()
		if err != nil {
			return SagaExecutionRaw{}, err
		}
		raw.PausedStep = &pausedRaw
	}
	return raw, nil
}

// SagaExecutionFromRaw is Raw's inverse. registry, broker, and txManager
// are the live collaborators the host rehydrates the execution with;
// they are never part of the snapshot (spec §6: "host provides resolve
// .../name_of...").
func SagaExecutionFromRaw(raw SagaExecutionRaw, registry *CallbackRegistry, broker Broker, txManager TransactionManager) (*SagaExecution, error) {
	def, err := SagaFromRaw(raw.Definition)
	if err != nil {
		return nil, err
	}
	ctxData, err := base64.StdEncoding.DecodeString(raw.Context)
	if err != nil {
		return nil, fmt.Errorf("saga: decode execution context: %w", err)
	}
	sagaCtx, err := ContextFromBinary(ctxData)
	if err != nil {
		return nil, err
	}
	e := &SagaExecution{
		ID:                raw.ID,
		User:              raw.User,
		Definition:        def,
		Context:           sagaCtx,
		Status:            Status(raw.Status),
		AlreadyRolledBack: raw.AlreadyRolledBack,
		ReplyTopic:        raw.ReplyTopic,
		registry:          registry,
		broker:            broker,
		txManager:         txManager,
	}
	for _, stepRaw := range raw.ExecutedSteps {
		step, err := StepExecutionFromRaw(stepRaw, registry, broker, txManager)
		if err != nil {
			return nil, err
		}
		e.ExecutedSteps = append(e.ExecutedSteps, step)
	}
	if raw.PausedStep != nil {
		paused, err := StepExecutionFromRaw(*raw.PausedStep, registry, broker, txManager)
		if err != nil {
			return nil, err
		}
		e.PausedStep = paused
	}
	return e, nil
}
