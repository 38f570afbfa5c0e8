package module

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/native"
	"github.com/wippyai/reflect-runtime/resource"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// Module owns a set of type descriptors and free functions.
type Module struct {
	list      *List
	types     map[string]*types.Type
	natives   map[resource.Handle][]native.ID
	funcs     map[string]*types.Function
	name      string
	attrs     attribute.Attributes
	typeOrder []*types.Type
	funcOrder []*types.Function
	mu        sync.RWMutex
	unloaded  bool
}

func newModule(ls *List, name string) *Module {
	return &Module{
		list:    ls,
		name:    name,
		types:   make(map[string]*types.Type),
		natives: make(map[resource.Handle][]native.ID),
		funcs:   make(map[string]*types.Function),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// FullName returns the module name. Free functions use it as their prefix.
func (m *Module) FullName() string { return m.name }

// Alive reports whether the module is still loaded.
func (m *Module) Alive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.unloaded
}

// DefineType constructs a descriptor owned by m and associates it with every
// given native id. If an association fails, the descriptor and the
// associations already made are rolled back.
func (m *Module) DefineType(desc types.Description, ids ...native.ID) (*types.Type, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unloaded {
		return nil, errors.Unloaded(m.name)
	}
	if _, ok := m.types[desc.Name]; ok {
		return nil, errors.DuplicateTypeName(m.name, desc.Name)
	}
	if _, ok := m.funcs[desc.Name]; ok {
		return nil, errors.DuplicateName([]string{m.name}, "member", desc.Name)
	}

	t, err := types.Define(m.list.arena, m.name, desc)
	if err != nil {
		return nil, err
	}

	reg := m.list.registry
	for i, id := range ids {
		if err := reg.Associate(id, t); err != nil {
			for _, done := range ids[:i] {
				reg.Unregister(done)
			}
			m.list.arena.Remove(t.Ref().Handle())
			m.list.logger.Debug("type definition rolled back",
				zap.String("type", t.FullName()),
				zap.Uint64("native_id", uint64(id)),
				zap.Error(err))
			return nil, err
		}
	}

	m.types[desc.Name] = t
	m.typeOrder = append(m.typeOrder, t)
	if len(ids) > 0 {
		m.natives[t.Ref().Handle()] = slices.Clone(ids)
	}

	m.list.logger.Debug("type defined",
		zap.String("type", t.FullName()),
		zap.Int("native_ids", len(ids)),
		zap.Bool("has_base", t.HasBase()))
	return t, nil
}

// DefineFunction registers a module-level function.
func (m *Module) DefineFunction(fn *types.Function) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unloaded {
		return errors.Unloaded(m.name)
	}
	if fn == nil {
		return errors.InvalidInput(errors.PhaseDefine, "nil function")
	}
	if _, ok := m.funcs[fn.Name]; ok {
		return errors.DuplicateName([]string{m.name}, "function", fn.Name)
	}
	if _, ok := m.types[fn.Name]; ok {
		return errors.DuplicateName([]string{m.name}, "member", fn.Name)
	}
	if err := fn.Attach(m); err != nil {
		return err
	}
	m.funcs[fn.Name] = fn
	m.funcOrder = append(m.funcOrder, fn)
	return nil
}

// RemoveType drops a single descriptor and revokes its native associations
// without unloading the module.
func (m *Module) RemoveType(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.types[name]
	if !ok {
		return errors.NotFound(errors.PhaseTeardown, "type", m.name+"."+name)
	}
	h := t.Ref().Handle()
	for _, id := range m.natives[h] {
		m.list.registry.Unregister(id)
	}
	delete(m.natives, h)
	delete(m.types, name)
	m.typeOrder = slices.DeleteFunc(m.typeOrder, func(x *types.Type) bool { return x == t })
	m.list.arena.Remove(h)

	m.list.logger.Debug("type removed", zap.String("type", t.FullName()))
	return nil
}

// Type returns the descriptor called name.
func (m *Module) Type(name string) (*types.Type, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[name]
	return t, ok
}

// Types returns the owned descriptors in definition order.
func (m *Module) Types() []*types.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.typeOrder)
}

// Function returns the module-level function called name.
func (m *Module) Function(name string) (*types.Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.funcs[name]
	return fn, ok
}

// Functions returns the module-level functions in definition order.
func (m *Module) Functions() []*types.Function {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.funcOrder)
}

// NativeIDs returns the native ids associated with t through m.
func (m *Module) NativeIDs(t *types.Type) []native.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.natives[t.Ref().Handle()])
}

// Attribute returns a module attribute.
func (m *Module) Attribute(key string) (value.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs.Get(key)
}

// SetAttribute sets a module attribute.
func (m *Module) SetAttribute(key string, v value.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs.Set(key, v)
}

// Unload removes m from its list. See List.Unload.
func (m *Module) Unload() error {
	return m.list.Unload(m.name)
}

// release marks m unloaded and drops its descriptors in one arena operation.
func (m *Module) release() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unloaded = true
	handles := make([]resource.Handle, 0, len(m.typeOrder))
	for _, t := range m.typeOrder {
		handles = append(handles, t.Ref().Handle())
	}
	dropped := m.list.arena.RemoveAll(handles)

	clear(m.types)
	clear(m.natives)
	m.typeOrder = nil
	return len(dropped)
}
