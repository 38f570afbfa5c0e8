// Package registry maps native type identifiers to type descriptors.
//
// Entries are weak: the registry never keeps a descriptor alive. When the
// owning module drops a descriptor its entries stop resolving, and a
// resolved miss looks the same whether the id was never associated or its
// descriptor has expired.
package registry

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/native"
	"github.com/wippyai/reflect-runtime/types"
)

// Outcome labels an Associate attempt for observers.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeReplaced Outcome = "replaced"
	OutcomeRejected Outcome = "rejected"
)

// Registry is the native id to descriptor table.
type Registry struct {
	logger  *zap.Logger
	onAssoc func(Outcome)
	entries map[native.ID]types.Ref
	mu      sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets a callback invoked after every Associate.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Registry) {
		r.onAssoc = fn
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:  zap.NewNop(),
		entries: make(map[native.ID]types.Ref),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Associate binds id to t. It fails with AlreadyRegistered when id resolves
// to a live descriptor; an expired entry is replaced.
func (r *Registry) Associate(id native.ID, t *types.Type) error {
	if t == nil {
		return errors.InvalidInput(errors.PhaseRegister, "nil type")
	}
	if !t.Alive() {
		return errors.Expired(errors.PhaseRegister, []string{t.Module(), t.Name()}, "type")
	}

	r.mu.Lock()
	outcome := OutcomeCreated
	if prev, ok := r.entries[id]; ok {
		if existing, live := prev.Resolve(); live {
			r.mu.Unlock()
			r.logger.Debug("association rejected",
				zap.Uint64("native_id", uint64(id)),
				zap.String("existing", existing.FullName()),
				zap.String("type", t.FullName()))
			r.notify(OutcomeRejected)
			return errors.AlreadyRegistered(uint64(id), existing.FullName())
		}
		outcome = OutcomeReplaced
	}
	r.entries[id] = t.Ref()
	r.mu.Unlock()

	r.logger.Debug("type associated",
		zap.Uint64("native_id", uint64(id)),
		zap.String("type", t.FullName()),
		zap.String("outcome", string(outcome)))
	r.notify(outcome)
	return nil
}

// Resolve returns the descriptor associated with id if it is still alive.
func (r *Registry) Resolve(id native.ID) (*types.Type, bool) {
	r.mu.Lock()
	ref, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return ref.Resolve()
}

// ResolveFor is Resolve keyed by the native id of T.
func ResolveFor[T any](r *Registry) (*types.Type, bool) {
	return r.Resolve(native.IDOf[T]())
}

// Unregister removes the entry for id. It reports whether an entry existed.
func (r *Registry) Unregister(id native.ID) bool {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		r.logger.Debug("type unregistered", zap.Uint64("native_id", uint64(id)))
	}
	return ok
}

// UnregisterType removes every entry pointing at t and returns their ids.
func (r *Registry) UnregisterType(t *types.Type) []native.ID {
	h := t.Ref().Handle()
	r.mu.Lock()
	var ids []native.ID
	for id, ref := range r.entries {
		if ref.Handle() == h {
			ids = append(ids, id)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of stored entries, including expired ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entry is a live association reported by Entries.
type Entry struct {
	Type *types.Type
	ID   native.ID
}

// Entries returns the live associations ordered by id. It is meant for
// diagnostics; callers should use Resolve for lookups.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for id, ref := range r.entries {
		if t, ok := ref.Resolve(); ok {
			out = append(out, Entry{ID: id, Type: t})
		}
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Prune drops expired entries and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ref := range r.entries {
		if !ref.Alive() {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

func (r *Registry) notify(o Outcome) {
	if r.onAssoc != nil {
		r.onAssoc(o)
	}
}
