package engine

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
	"github.com/wippyai/reflect-runtime/vm"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB), which is also the maximum.
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CloseOnContextDone aborts running guest code when the call context is
	// cancelled.
	CloseOnContextDone bool
}

// Engine owns a wazero runtime and the modules instantiated in it.
type Engine struct {
	runtime wazero.Runtime
	modules map[string]*Module
	hosts   map[string]api.Module
	mu      sync.Mutex
}

// MaxMemoryPages is the largest memory a 32-bit wasm instance can address.
const MaxMemoryPages = 65536

// New creates a wazero-backed engine. A nil cfg uses the defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil {
		if cfg.MemoryLimitPages > MaxMemoryPages {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Value(cfg.MemoryLimitPages).
				Detail("memory limit %d pages exceeds %d", cfg.MemoryLimitPages, MaxMemoryPages).
				Build()
		}
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}
	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		modules: make(map[string]*Module),
		hosts:   make(map[string]api.Module),
	}, nil
}

// HostModule instantiates a module named name whose exports are fns.
// Guests import them as (name, fn.Name). Every function must use kinds
// with a core representation.
func (e *Engine) HostModule(ctx context.Context, name string, fns []*types.Function) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "host module name cannot be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.hosts[name]; ok {
		return errors.DuplicateModuleName(name)
	}
	if _, ok := e.modules[name]; ok {
		return errors.DuplicateModuleName(name)
	}

	builder := e.runtime.NewHostModuleBuilder(name)
	for _, fn := range fns {
		kinds := make([]value.Kind, len(fn.Params))
		names := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			kinds[i] = p.Kind
			names[i] = p.Name
		}
		in, out, err := coreTypes([]string{name, fn.Name}, kinds, fn.Result)
		if err != nil {
			return err
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(hostFunc(fn), in, out).
			WithParameterNames(names...).
			Export(fn.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return errors.Load("instantiate host module "+name, err)
	}
	e.hosts[name] = mod
	Logger().Debug("host module instantiated", zap.String("module", name), zap.Int("functions", len(fns)))
	return nil
}

// hostFunc adapts fn to a wazero host function. Errors surface to the
// guest caller as a trap carrying the error.
func hostFunc(fn *types.Function) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args := make([]value.Value, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = decode(p.Kind, stack[i])
		}
		res, err := vm.Invoke(ctx, fn, args...)
		if err != nil {
			panic(err)
		}
		if fn.Result != value.KindEmpty {
			stack[0] = encode(res)
		}
	}
}

// Load compiles and instantiates a core module under name.
func (e *Engine) Load(ctx context.Context, name string, wasm []byte) (*Module, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "module name cannot be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.modules[name]; ok {
		return nil, errors.DuplicateModuleName(name)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile "+name, err)
	}
	inst, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load("instantiate "+name, err)
	}

	m := &Module{engine: e, name: name, compiled: compiled, instance: inst}
	e.modules[name] = m
	debugf("loaded module %s with %d exports", name, len(inst.ExportedFunctionDefinitions()))
	return m, nil
}

// Module returns a loaded module.
func (e *Engine) Module(name string) (*Module, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.modules[name]
	return m, ok
}

// Close releases every module and the runtime.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	clear(e.modules)
	clear(e.hosts)
	e.mu.Unlock()
	return e.runtime.Close(ctx)
}

// Module is an instantiated core module.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	instance api.Module
	name     string
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Exports returns the names of exported functions, sorted.
func (m *Module) Exports() []string {
	defs := m.instance.ExportedFunctionDefinitions()
	out := make([]string, 0, len(defs))
	for name := range defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Export checks that name has the core signature implied by params and
// result and returns an Invoker for it.
func (m *Module) Export(name string, params []value.Kind, result value.Kind) (*Export, error) {
	path := []string{m.name, name}
	def, ok := m.instance.ExportedFunctionDefinitions()[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseBind, "export", m.name+"."+name)
	}
	in, out, err := coreTypes(path, params, result)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(def.ParamTypes(), in) || !slices.Equal(def.ResultTypes(), out) {
		return nil, errors.TypeMismatch(errors.PhaseBind, path,
			typeNames(def.ParamTypes())+" -> "+typeNames(def.ResultTypes()),
			typeNames(in)+" -> "+typeNames(out))
	}
	return &Export{
		module: m,
		name:   name,
		params: slices.Clone(params),
		result: result,
	}, nil
}

// Close releases the instance and removes it from the engine.
func (m *Module) Close(ctx context.Context) error {
	m.engine.mu.Lock()
	delete(m.engine.modules, m.name)
	m.engine.mu.Unlock()
	err := m.instance.Close(ctx)
	if cerr := m.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// Export is a typed guest function. It implements types.Invoker.
type Export struct {
	module *Module
	name   string
	params []value.Kind
	result value.Kind
}

// Invoke calls the guest function. The api.Function is looked up per call
// so concurrent invocations do not share call state.
func (x *Export) Invoke(ctx context.Context, args []value.Value) (value.Value, error) {
	path := []string{x.module.name, x.name}
	if len(args) != len(x.params) {
		return value.Value{}, errors.ArityMismatch(path, len(x.params), len(args))
	}
	raw := make([]uint64, len(args))
	for i, a := range args {
		if a.Kind() != x.params[i] {
			return value.Value{}, errors.TypeMismatch(errors.PhaseCall, path, a.Kind().String(), x.params[i].String())
		}
		raw[i] = encode(a)
	}

	fn := x.module.instance.ExportedFunction(x.name)
	if fn == nil {
		return value.Value{}, errors.Unloaded(x.module.name)
	}
	results, err := fn.Call(ctx, raw...)
	if err != nil {
		return value.Value{}, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Path(path...).
			Cause(err).
			Detail("guest call failed").
			Build()
	}
	if x.result == value.KindEmpty || len(results) == 0 {
		return value.Empty(), nil
	}
	return decode(x.result, results[0]), nil
}

var _ types.Invoker = (*Export)(nil)
