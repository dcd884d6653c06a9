package saga

import (
	"context"
	"reflect"

	"github.com/kjarrow/sagaflow/pkg/registry"
)

// LocalCallback is the signature user code registers for a LocalStep's
// on_execute/on_failure operations.
type LocalCallback func(ctx context.Context, sagaCtx Context, params Context) (Context, error)

// RequestCallback is the signature user code registers for a RemoteStep's
// on_execute/on_failure operations. It produces the Request to publish.
type RequestCallback func(ctx context.Context, sagaCtx Context, params Context) (Request, error)

// ResponseCallback is the signature user code registers for a RemoteStep's
// on_success/on_error operations. It consumes the Response and produces
// the next Context.
type ResponseCallback func(ctx context.Context, sagaCtx Context, response Response, params Context) (Context, error)

// PredicateCallback is the signature user code registers for a
// ConditionalStep branch's predicate.
type PredicateCallback func(ctx context.Context, sagaCtx Context, params Context) (bool, error)

// CommitCallback is the signature user code registers for a Saga's
// optional commit operation.
type CommitCallback func(ctx context.Context, sagaCtx Context, params Context) (Context, error)

// CallbackRegistry resolves stable symbolic names to registered Go
// callbacks and back again, the way the host-provided registry in spec
// §6/§9 is described: "do not rely on reflective module import."
//
// It is built on top of the generic registry.Registry used elsewhere in
// this module, composed twice (name -> callback, function pointer ->
// name) so NameOf can recover the registered name of a bare Go func
// value. Operation.Raw does not consult the registry: it serializes the
// Operation's own CallbackRef.
type CallbackRegistry struct {
	byName *registry.Registry[string, any]
	byFunc *registry.Registry[uintptr, string]
}

// NewCallbackRegistry creates an empty callback registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{
		byName: registry.New[string, any](),
		byFunc: registry.New[uintptr, string](),
	}
}

// Register binds name to fn. fn must be one of the *Callback types above;
// Register does not itself validate the type, callers (executors) type-
// assert at invocation time and fail with ExecutorError on mismatch.
func (r *CallbackRegistry) Register(name string, fn any) {
	r.byName.Register(name, fn)
	if ptr, ok := funcPointer(fn); ok {
		r.byFunc.Register(ptr, name)
	}
}

// Resolve looks up the callback bound to name.
func (r *CallbackRegistry) Resolve(name string) (any, bool) {
	return r.byName.Get(name)
}

// NameOf returns the stable name a callback was registered under, or
// false if fn is not a func value registered with r.
func (r *CallbackRegistry) NameOf(fn any) (string, bool) {
	ptr, ok := funcPointer(fn)
	if !ok {
		return "", false
	}
	return r.byFunc.Get(ptr)
}

// funcPointer extracts a comparable identity for a function value so it
// can be used as a registry.Registry key. Returns false for non-func
// values (including nil).
func funcPointer(fn any) (uintptr, bool) {
	if fn == nil {
		return 0, false
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0, false
	}
	return v.Pointer(), true
}
