package saga

// Builder provides the fluent construction API described in spec §4.1:
// step() opens a step slot, a kind-selecting method binds it to
// local/remote/conditional, optional slot methods (on_success/on_error/
// on_failure) attach compensations, and commit() freezes the
// definition.
//
// A Builder is not safe for concurrent use; build a Saga on one
// goroutine, then share the resulting committed Saga freely (Saga
// values are immutable after commit).
type Builder struct {
	steps   []Step
	pending *pendingStep
	err     error
}

type pendingStep struct {
	step       Step
	started    bool
	successSet bool
	errorSet   bool
	failureSet bool
}

// NewSaga starts building a new Saga.
func NewSaga() *Builder {
	return &Builder{}
}

// Step opens a new step slot. The previously open slot, if any, is
// closed and appended — it must already have a kind and on_execute
// bound, or Commit will fail with ErrEmptyStep/ErrUndefinedOnExecute.
func (b *Builder) Step() *Builder {
	b.closePending()
	b.pending = &pendingStep{}
	return b
}

func (b *Builder) closePending() {
	if b.pending == nil {
		return
	}
	if !b.pending.started {
		if b.err == nil {
			b.err = ErrEmptyStep
		}
		b.pending = nil
		return
	}
	if b.pending.step.Kind != KindConditional && b.pending.step.OnExecute.IsZero() {
		if b.err == nil {
			b.err = ErrUndefinedOnExecute
		}
		b.pending = nil
		return
	}
	b.steps = append(b.steps, b.pending.step)
	b.pending = nil
}

// LocalStep marks the currently open step slot as a LocalStep bound to
// op for on_execute.
func (b *Builder) LocalStep(op Operation) *Builder {
	if b.pending == nil {
		b.Step()
	}
	b.pending.step.Kind = KindLocal
	b.pending.step.OnExecute = op
	b.pending.started = true
	return b
}

// RemoteStep marks the currently open step slot as a RemoteStep bound
// to op for on_execute.
func (b *Builder) RemoteStep(op Operation) *Builder {
	if b.pending == nil {
		b.Step()
	}
	b.pending.step.Kind = KindRemote
	b.pending.step.OnExecute = op
	b.pending.started = true
	return b
}

// ConditionalStep marks the currently open step slot as a
// ConditionalStep. Each branch's saga, and elseSaga if present, must
// already be committed (spec §4.1: "branches must each be independently
// valid sagas committed during construction").
func (b *Builder) ConditionalStep(branches []Branch, elseSaga *Saga) *Builder {
	if b.pending == nil {
		b.Step()
	}
	for _, br := range branches {
		if !br.Saga.Committed && b.err == nil {
			b.err = ErrNotCommitted
		}
	}
	if elseSaga != nil && !elseSaga.Committed && b.err == nil {
		b.err = ErrNotCommitted
	}
	b.pending.step.Kind = KindConditional
	b.pending.step.Branches = branches
	b.pending.step.ElseSaga = elseSaga
	b.pending.started = true
	return b
}

// OnSuccess binds the response-phase success operation for the
// currently open RemoteStep. May be called at most once per step.
func (b *Builder) OnSuccess(op Operation) *Builder {
	if b.pending == nil || b.pending.successSet {
		if b.err == nil {
			b.err = ErrAlreadySet
		}
		return b
	}
	b.pending.step.OnSuccess = op
	b.pending.successSet = true
	return b
}

// OnError binds the response-phase error operation for the currently
// open RemoteStep. May be called at most once per step.
func (b *Builder) OnError(op Operation) *Builder {
	if b.pending == nil || b.pending.errorSet {
		if b.err == nil {
			b.err = ErrAlreadySet
		}
		return b
	}
	b.pending.step.OnError = op
	b.pending.errorSet = true
	return b
}

// OnFailure binds the compensation operation for the currently open
// step. May be called at most once per step.
func (b *Builder) OnFailure(op Operation) *Builder {
	if b.pending == nil || b.pending.failureSet {
		if b.err == nil {
			b.err = ErrAlreadySet
		}
		return b
	}
	b.pending.step.OnFailure = op
	b.pending.failureSet = true
	return b
}

// Commit freezes the Saga: at least one step is required, and an
// optional commit operation may be supplied to run after all steps
// succeed (spec §4.4 step 6). Commit returns the first validation
// error encountered during construction, if any.
func (b *Builder) Commit(op ...Operation) (Saga, error) {
	b.closePending()
	if b.err != nil {
		return Saga{}, b.err
	}
	if len(b.steps) == 0 {
		return Saga{}, ErrEmptySaga
	}
	s := Saga{Steps: b.steps, Committed: true}
	if len(op) > 0 {
		s.CommitOp = op[0]
		s.HasCommitOp = true
	}
	return s, nil
}
