// Package registry provides a generic thread-safe registry for values
// indexed by key. Within sagaflow it backs saga.CallbackRegistry, which
// resolves saga callbacks by symbolic name to live Go values at runtime.
//
// Registry is designed for read-heavy workloads using sync.RWMutex. It
// supports any comparable key type and any value type through Go
// generics.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
// # Callback resolution
//
// sagaflow's saga.CallbackRegistry composes two Registry instances (name
// -> callback, function pointer -> name) to resolve a saga Operation's
// callback_ref at snapshot-rehydration time without relying on
// reflective module import:
//
//	callbacks := registry.New[string, any]()
//	callbacks.Register("orders.create", createOrder)
//
//	fn, ok := callbacks.Get("orders.create")
//	if ok {
//	    // type-assert fn to the expected callback signature and invoke
//	}
//
// # Lazy Initialization
//
// Use GetOrCreate for thread-safe lazy initialization, e.g. one
// broker-backed Store connection per backend name:
//
//	stores := registry.New[string, Store]()
//	store := stores.GetOrCreate("primary", func() Store {
//	    return newPrimaryStore()
//	})
//
// GetOrCreate is atomic - the factory function is called at most once
// per key, even under concurrent access.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Range iterates over
// a snapshot of the registry, allowing mutations during iteration
// without affecting the iteration itself.
package registry
