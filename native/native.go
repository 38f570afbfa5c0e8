// Package native provides stable identifiers for native Go types.
//
// An ID is the key the type registry uses to associate a Go type with its
// reflected descriptor. Embedders with their own numbering may use any value
// below Reserved; IDOf and IDFor hand out ids from Reserved upward, one per
// distinct reflect.Type, for the lifetime of the process.
package native

import (
	"reflect"
	"strconv"
	"sync"
)

// ID identifies a native type.
type ID uint64

// None is the zero ID. It never identifies a type.
const None ID = 0

// Reserved is the first ID assigned from reflect.Type identity.
const Reserved ID = 1 << 32

var (
	mu     sync.RWMutex
	byType = make(map[reflect.Type]ID)
	byID   = make(map[ID]reflect.Type)
	next   = Reserved
)

// IDOf returns the ID of T.
func IDOf[T any]() ID {
	return IDFor(reflect.TypeFor[T]())
}

// IDFor returns the ID of t, assigning one on first use.
func IDFor(t reflect.Type) ID {
	if t == nil {
		return None
	}

	mu.RLock()
	id, ok := byType[t]
	mu.RUnlock()
	if ok {
		return id
	}

	mu.Lock()
	defer mu.Unlock()
	if id, ok := byType[t]; ok {
		return id
	}
	id = next
	next++
	byType[t] = id
	byID[id] = t
	return id
}

// TypeOf returns the Go type an ID was derived from.
// Embedder-defined ids below Reserved have no Go type.
func TypeOf(id ID) (reflect.Type, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := byID[id]
	return t, ok
}

// Name returns a readable name for id.
func Name(id ID) string {
	if t, ok := TypeOf(id); ok {
		return t.String()
	}
	return "native#" + strconv.FormatUint(uint64(id), 10)
}
