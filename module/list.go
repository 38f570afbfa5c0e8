package module

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/registry"
	"github.com/wippyai/reflect-runtime/types"
)

// EventType identifies a module lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventUnloaded
)

// Event is delivered to observers after the list changes.
type Event struct {
	Module string
	Types  int
	Type   EventType
}

// List owns the loaded modules of a runtime.
type List struct {
	arena     *types.Arena
	registry  *registry.Registry
	logger    *zap.Logger
	modules   map[string]*Module
	observers []func(Event)
	order     []string
	mu        sync.RWMutex
}

// Option configures a List.
type Option func(*List)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(ls *List) {
		if l != nil {
			ls.logger = l
		}
	}
}

// WithObserver adds a lifecycle callback.
func WithObserver(fn func(Event)) Option {
	return func(ls *List) {
		ls.observers = append(ls.observers, fn)
	}
}

// NewList creates an empty module list. Descriptors are stored in arena and
// native associations are made in reg.
func NewList(arena *types.Arena, reg *registry.Registry, opts ...Option) *List {
	ls := &List{
		arena:    arena,
		registry: reg,
		logger:   zap.NewNop(),
		modules:  make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// Registry returns the registry native associations are made in.
func (ls *List) Registry() *registry.Registry {
	return ls.registry
}

// Create allocates an empty module and appends it to the list.
func (ls *List) Create(name string) (*Module, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseDefine, "module name cannot be empty")
	}
	if strings.Contains(name, ".") {
		return nil, errors.InvalidInput(errors.PhaseDefine, "module name cannot contain '.'")
	}

	ls.mu.Lock()
	if _, ok := ls.modules[name]; ok {
		ls.mu.Unlock()
		return nil, errors.DuplicateModuleName(name)
	}
	m := newModule(ls, name)
	ls.modules[name] = m
	ls.order = append(ls.order, name)
	ls.mu.Unlock()

	ls.logger.Debug("module created", zap.String("module", name))
	ls.notify(Event{Type: EventCreated, Module: name})
	return m, nil
}

// Get returns the loaded module called name.
func (ls *List) Get(name string) (*Module, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	m, ok := ls.modules[name]
	return m, ok
}

// Modules returns the loaded modules in creation order.
func (ls *List) Modules() []*Module {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	out := make([]*Module, 0, len(ls.order))
	for _, name := range ls.order {
		out = append(out, ls.modules[name])
	}
	return out
}

// Len returns the number of loaded modules.
func (ls *List) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.modules)
}

// Unload removes the module called name and drops every descriptor it owns.
// Registry entries for those descriptors stop resolving at the same moment.
func (ls *List) Unload(name string) error {
	ls.mu.Lock()
	m, ok := ls.modules[name]
	if !ok {
		ls.mu.Unlock()
		return errors.NotFound(errors.PhaseTeardown, "module", name)
	}
	delete(ls.modules, name)
	ls.order = slices.DeleteFunc(ls.order, func(n string) bool { return n == name })
	ls.mu.Unlock()

	dropped := m.release()

	ls.logger.Debug("module unloaded",
		zap.String("module", name),
		zap.Int("types", dropped))
	ls.notify(Event{Type: EventUnloaded, Module: name, Types: dropped})
	return nil
}

// UnloadAll unloads every module in reverse creation order.
func (ls *List) UnloadAll() {
	ls.mu.RLock()
	names := slices.Clone(ls.order)
	ls.mu.RUnlock()
	slices.Reverse(names)
	for _, name := range names {
		_ = ls.Unload(name)
	}
}

// ResolveType looks up a "Module.Type" reference.
func (ls *List) ResolveType(ref string) (*types.Type, error) {
	mod, name, ok := strings.Cut(ref, ".")
	if !ok || mod == "" || name == "" {
		return nil, errors.InvalidInput(errors.PhaseResolve, "type reference must be Module.Type: "+ref)
	}
	m, ok := ls.Get(mod)
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "module", mod)
	}
	t, ok := m.Type(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "type", ref)
	}
	return t, nil
}

// ResolveFunction looks up "Module.Func" or "Module.Type.Func". Type
// functions are searched along the base chain.
func (ls *List) ResolveFunction(ref string) (*types.Function, error) {
	parts := strings.Split(ref, ".")
	if len(parts) < 2 || len(parts) > 3 || slices.Contains(parts, "") {
		return nil, errors.InvalidInput(errors.PhaseResolve, "function reference must be Module.Func or Module.Type.Func: "+ref)
	}
	m, ok := ls.Get(parts[0])
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "module", parts[0])
	}
	if len(parts) == 2 {
		fn, ok := m.Function(parts[1])
		if !ok {
			return nil, errors.NotFound(errors.PhaseResolve, "function", ref)
		}
		return fn, nil
	}
	t, ok := m.Type(parts[1])
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "type", parts[0]+"."+parts[1])
	}
	fn, _, err := types.LookupFunction(t, parts[2])
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseResolve, "function", ref)
	}
	return fn, nil
}

func (ls *List) notify(e Event) {
	for _, fn := range ls.observers {
		fn(e)
	}
}
