package saga

import (
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2"
)

// contextSchema frames a Context as an ordered list of key/value entries.
// The value of each entry is itself opaque JSON, since the engine never
// interprets user payloads (spec §3): Avro gives the envelope a stable,
// versioned binary shape while letting arbitrary Go values travel as
// bytes inside it.
var contextSchema = avro.MustParse(`{
	"type": "record",
	"name": "Context",
	"namespace": "saga",
	"fields": [
		{"name": "entries", "type": {"type": "array", "items": {
			"type": "record",
			"name": "Entry",
			"fields": [
				{"name": "key", "type": "string"},
				{"name": "value", "type": "bytes"}
			]
		}}}
	]
}`)

type contextEnvelope struct {
	Entries []contextEntry `avro:"entries"`
}

type contextEntry struct {
	Key   string `avro:"key"`
	Value []byte `avro:"value"`
}

// Context is an ordered, keyed mapping from identifier to opaque value.
// It is threaded through a saga execution and produced/consumed by user
// callbacks. Insertion order is preserved across Set calls so that two
// contexts built the same way serialize identically (spec §6: "the
// context binary form must be byte-identical under round trip for equal
// contexts").
//
// The zero value is an empty, usable Context.
type Context struct {
	keys   []string
	values map[string]any
}

// NewContext builds a Context from the given key/value pairs, preserving
// the order the keys are passed in.
func NewContext(pairs ...any) Context {
	c := Context{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		c = c.Set(key, pairs[i+1])
	}
	return c
}

// Get returns the value stored under key and whether it was present.
func (c Context) Get(key string) (any, bool) {
	if c.values == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present in the context.
func (c Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set returns a new Context with key bound to value. The receiver is not
// mutated in place, matching the executor contract in spec §4.2 that
// contexts are never mutated, only replaced.
func (c Context) Set(key string, value any) Context {
	next := Context{
		keys:   make([]string, len(c.keys), len(c.keys)+1),
		values: make(map[string]any, len(c.values)+1),
	}
	copy(next.keys, c.keys)
	for k, v := range c.values {
		next.values[k] = v
	}
	if _, exists := next.values[key]; !exists {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

// Keys returns the keys in insertion order.
func (c Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of entries in the context.
func (c Context) Len() int {
	return len(c.keys)
}

// Merge returns a new Context with other's entries applied on top of c,
// in other's key order. Used when a ConditionalStepExecution folds an
// inner saga's resulting context back into the outer one (spec §4.3.3).
func (c Context) Merge(other Context) Context {
	result := c
	for _, k := range other.keys {
		v, _ := other.Get(k)
		result = result.Set(k, v)
	}
	return result
}

// Equal reports whether c and other hold the same keys, in the same
// order, with JSON-equal values. Grounded on SagaContext.__eq__ in
// original_source/minos/saga/context.py (not kept verbatim, just the
// field-tuple comparison idea carried over from every __eq__ in the
// original implementation).
func (c Context) Equal(other Context) bool {
	if len(c.keys) != len(other.keys) {
		return false
	}
	for i, k := range c.keys {
		if other.keys[i] != k {
			return false
		}
		av, _ := c.Get(k)
		bv, _ := other.Get(k)
		aj, aerr := json.Marshal(av)
		bj, berr := json.Marshal(bv)
		if aerr != nil || berr != nil || string(aj) != string(bj) {
			return false
		}
	}
	return true
}

// MarshalBinary encodes the context to its stable Avro wire form.
func (c Context) MarshalBinary() ([]byte, error) {
	env := contextEnvelope{Entries: make([]contextEntry, 0, len(c.keys))}
	for _, k := range c.keys {
		v := c.values[k]
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("saga: marshal context value %q: %w", k, err)
		}
		env.Entries = append(env.Entries, contextEntry{Key: k, Value: data})
	}
	out, err := avro.Marshal(contextSchema, env)
	if err != nil {
		return nil, fmt.Errorf("saga: encode context: %w", err)
	}
	return out, nil
}

// ContextFromBinary decodes a Context from its Avro wire form, as
// produced by MarshalBinary.
func ContextFromBinary(data []byte) (Context, error) {
	var env contextEnvelope
	if err := avro.Unmarshal(contextSchema, data, &env); err != nil {
		return Context{}, fmt.Errorf("saga: decode context: %w", err)
	}
	c := Context{}
	for _, entry := range env.Entries {
		var v any
		if err := json.Unmarshal(entry.Value, &v); err != nil {
			return Context{}, fmt.Errorf("saga: decode context value %q: %w", entry.Key, err)
		}
		c = c.Set(entry.Key, v)
	}
	return c, nil
}
