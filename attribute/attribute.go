// Package attribute provides ordered string-keyed metadata attached to types,
// properties and functions.
//
// An absent key and a key set to the empty value are different states:
//
//	attrs.Set(attribute.Schema, value.Empty()) // schema explicitly disabled
//	v, ok := attrs.Get(attribute.Schema)       // ok == true, v.IsEmpty()
//
// Iteration follows first insertion; re-setting a key keeps its position.
package attribute

import (
	"iter"
	"slices"
	"strings"

	"github.com/wippyai/reflect-runtime/value"
)

// Well-known keys.
const (
	// Schema holds a JSON schema override used for validation of a type.
	Schema = "schema"
	// Display holds an editor display hint.
	Display = "display"
)

// Attributes is an ordered mapping from key to value.
// The zero value is empty and ready to use.
type Attributes struct {
	values map[string]value.Value
	keys   []string
}

// New returns attributes holding the given key/value pairs in order.
func New(pairs ...Pair) Attributes {
	var a Attributes
	for _, p := range pairs {
		a.Set(p.Key, p.Value)
	}
	return a
}

// Pair is a single key/value entry.
type Pair struct {
	Key   string
	Value value.Value
}

// P is shorthand for Pair{key, v}.
func P(key string, v value.Value) Pair {
	return Pair{Key: key, Value: v}
}

// Get returns the value stored under key and whether the key is present.
func (a *Attributes) Get(key string) (value.Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present, regardless of its value.
func (a *Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Set stores v under key.
func (a *Attributes) Set(key string, v value.Value) {
	if a.values == nil {
		a.values = make(map[string]value.Value)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Delete removes key. It reports whether the key was present.
func (a *Attributes) Delete(key string) bool {
	if _, ok := a.values[key]; !ok {
		return false
	}
	delete(a.values, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
	return true
}

// Len returns the number of keys.
func (a *Attributes) Len() int {
	return len(a.keys)
}

// Keys returns the keys in order.
func (a *Attributes) Keys() []string {
	return slices.Clone(a.keys)
}

// All iterates key/value pairs in order.
func (a *Attributes) All() iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		for _, k := range a.keys {
			if !yield(k, a.values[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (a *Attributes) Clone() Attributes {
	var c Attributes
	for k, v := range a.All() {
		c.Set(k, v)
	}
	return c
}

// Merge sets every entry of o on a, in o's order.
func (a *Attributes) Merge(o Attributes) {
	for k, v := range o.All() {
		a.Set(k, v)
	}
}

// String formats the attributes as {k: v, ...}.
func (a *Attributes) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(a.values[k].String())
	}
	b.WriteByte('}')
	return b.String()
}
