package types

import "github.com/wippyai/reflect-runtime/resource"

// Arena owns every live Type of a runtime.
type Arena = resource.Table[*Type]

// NewArena creates an empty arena.
func NewArena() *Arena {
	return resource.NewTable[*Type]()
}

// Ref is a weak handle to a Type. The zero Ref never resolves.
type Ref struct {
	arena  *Arena
	handle resource.Handle
}

// Resolve returns the referenced Type if it is still owned by its module.
func (r Ref) Resolve() (*Type, bool) {
	if r.arena == nil {
		return nil, false
	}
	return r.arena.Get(r.handle)
}

// Alive reports whether r still resolves.
func (r Ref) Alive() bool {
	if r.arena == nil {
		return false
	}
	return r.arena.Contains(r.handle)
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r.arena == nil
}

// Handle returns the arena handle.
func (r Ref) Handle() resource.Handle {
	return r.handle
}
