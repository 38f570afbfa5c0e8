package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Table stores values of type T addressed by generation-tagged handles.
type Table[T any] struct {
	slots     []slot[T]
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		slots:    make([]slot[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Handle{}, ErrClosed
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		s := &t.slots[idx]
		s.value = value
		s.live = true
		h = Handle{Index: idx, Generation: s.gen}
	} else {
		t.slots = append(t.slots, slot[T]{value: value, gen: 1, live: true})
		h = Handle{Index: uint32(len(t.slots) - 1), Generation: 1}
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// Get retrieves the value for h if the handle is still live.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s := t.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Contains reports whether h is live.
func (t *Table[T]) Contains(h Handle) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookup(h) != nil
}

// Remove drops the value for h and returns it.
// The handle stops resolving before Remove returns.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	v, ok := t.drop(h)
	t.mu.Unlock()

	if ok {
		t.notify(Event{Type: EventDropped, Handle: h, Value: v})
	}
	return v, ok
}

// RemoveAll drops every live value in hs under a single lock, so no reader
// observes a partially removed set. It returns the dropped values.
func (t *Table[T]) RemoveAll(hs []Handle) []T {
	t.mu.Lock()
	dropped := make([]T, 0, len(hs))
	handles := make([]Handle, 0, len(hs))
	for _, h := range hs {
		if v, ok := t.drop(h); ok {
			dropped = append(dropped, v)
			handles = append(handles, h)
		}
	}
	t.mu.Unlock()

	for i, v := range dropped {
		t.notify(Event{Type: EventDropped, Handle: handles[i], Value: v})
	}
	return dropped
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots) - len(t.freeList)
}

// Each iterates over live values until fn returns false.
// fn must not modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.gen}, s.value) {
			return
		}
	}
}

// Close drops every value and rejects further inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var handles []Handle
	for i := range t.slots {
		if t.slots[i].live {
			handles = append(handles, Handle{Index: uint32(i), Generation: t.slots[i].gen})
		}
	}
	t.mu.Unlock()

	t.RemoveAll(handles)
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table[T]) lookup(h Handle) *slot[T] {
	if h.IsZero() || int(h.Index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[h.Index]
	if !s.live || s.gen != h.Generation {
		return nil
	}
	return s
}

// drop must be called with mu held.
func (t *Table[T]) drop(h Handle) (T, bool) {
	s := t.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}

	v := s.value
	var zero T
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	t.freeList = append(t.freeList, h.Index)

	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
	return v, true
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
