package saga

import "context"

// Operation is a reference to a user callback plus optional bound
// parameters (spec §3). CallbackRef is a stable symbolic name resolved
// at deserialization time via a CallbackRegistry, never by reflective
// module import (spec §9).
type Operation struct {
	CallbackRef string
	Parameters  Context
}

// NewOperation binds name to an optional set of parameters. Passing no
// pairs yields an Operation with an empty Context.
func NewOperation(name string, params ...any) Operation {
	return Operation{CallbackRef: name, Parameters: NewContext(params...)}
}

// IsZero reports whether op is the unbound zero value, used by the
// executors to treat a nil-equivalent operation as a no-op (spec §4.2).
func (op Operation) IsZero() bool {
	return op.CallbackRef == ""
}

// Equal reports whether op and other reference the same callback with
// equal bound parameters.
func (op Operation) Equal(other Operation) bool {
	return op.CallbackRef == other.CallbackRef && op.Parameters.Equal(other.Parameters)
}

// localFunc resolves op against reg and asserts it to a LocalCallback,
// or the zero value and false if op is unbound or the registered value
// is not callback-shaped.
func (op Operation) localFunc(reg *CallbackRegistry) (LocalCallback, bool) {
	if op.IsZero() {
		return nil, false
	}
	fn, ok := reg.Resolve(op.CallbackRef)
	if !ok {
		return nil, false
	}
	cb, ok := fn.(LocalCallback)
	return cb, ok
}

func (op Operation) requestFunc(reg *CallbackRegistry) (RequestCallback, bool) {
	if op.IsZero() {
		return nil, false
	}
	fn, ok := reg.Resolve(op.CallbackRef)
	if !ok {
		return nil, false
	}
	cb, ok := fn.(RequestCallback)
	return cb, ok
}

func (op Operation) responseFunc(reg *CallbackRegistry) (ResponseCallback, bool) {
	if op.IsZero() {
		return nil, false
	}
	fn, ok := reg.Resolve(op.CallbackRef)
	if !ok {
		return nil, false
	}
	cb, ok := fn.(ResponseCallback)
	return cb, ok
}

func (op Operation) predicateFunc(reg *CallbackRegistry) (PredicateCallback, bool) {
	if op.IsZero() {
		return nil, false
	}
	fn, ok := reg.Resolve(op.CallbackRef)
	if !ok {
		return nil, false
	}
	cb, ok := fn.(PredicateCallback)
	return cb, ok
}

func (op Operation) commitFunc(reg *CallbackRegistry) (CommitCallback, bool) {
	if op.IsZero() {
		return nil, false
	}
	fn, ok := reg.Resolve(op.CallbackRef)
	if !ok {
		return nil, false
	}
	cb, ok := fn.(CommitCallback)
	return cb, ok
}

// background is the ambient context.Context threaded to callbacks when
// the caller of Execute did not supply one (engine internals never
// block on cancellation, spec §5).
func background(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
