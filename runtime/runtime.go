package runtime

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/engine"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/metrics"
	"github.com/wippyai/reflect-runtime/module"
	"github.com/wippyai/reflect-runtime/registry"
	"github.com/wippyai/reflect-runtime/resource"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
	"github.com/wippyai/reflect-runtime/vm"
)

// Config holds configuration for runtime creation.
type Config struct {
	// Logger receives debug events from every component. Nil disables logging.
	Logger *zap.Logger

	// Registerer enables Prometheus metrics when set.
	Registerer prometheus.Registerer

	// Engine enables wasm implementations when set.
	Engine *engine.Config

	// StackLimit bounds execution context stacks. 0 means vm.DefaultStackLimit.
	StackLimit int
}

// Runtime owns the process-lifetime state of the reflection core.
type Runtime struct {
	logger   *zap.Logger
	arena    *types.Arena
	registry *registry.Registry
	modules  *module.List
	global   *vm.Context
	bindings *Bindings
	engine   *engine.Engine
	metrics  *metrics.Collector
	ctxOpts  []vm.Option
	hosted   map[string]bool
	mu       sync.Mutex
	closed   bool
}

// New creates an isolated runtime.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runtime{
		logger:   logger,
		arena:    types.NewArena(),
		bindings: NewBindings(),
		hosted:   make(map[string]bool),
	}

	regOpts := []registry.Option{registry.WithLogger(logger.Named("registry"))}
	listOpts := []module.Option{
		module.WithLogger(logger.Named("module")),
		module.WithObserver(r.releaseWasm),
	}
	r.ctxOpts = []vm.Option{vm.WithLogger(logger.Named("vm")), vm.WithStackLimit(cfg.StackLimit)}

	if cfg.Registerer != nil {
		r.metrics = metrics.New(cfg.Registerer)
		r.arena.Subscribe(r.metrics)
		regOpts = append(regOpts, registry.WithObserver(r.metrics.ObserveAssociation))
		listOpts = append(listOpts, module.WithObserver(r.metrics.ObserveModule))
		r.ctxOpts = append(r.ctxOpts, vm.WithCallObserver(r.metrics.ObserveCall))
	}
	r.arena.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if t, ok := e.Value.(*types.Type); ok {
			logger.Debug("descriptor "+e.Type.String(),
				zap.String("type", t.FullName()),
				zap.Stringer("handle", e.Handle))
		}
	}))

	r.registry = registry.New(regOpts...)
	r.modules = module.NewList(r.arena, r.registry, listOpts...)
	r.global = vm.New(r.ctxOpts...)

	if cfg.Engine != nil {
		eng, err := engine.New(ctx, cfg.Engine)
		if err != nil {
			return nil, errors.Load("create engine", err)
		}
		r.engine = eng
	}
	return r, nil
}

// releaseWasm closes the wasm instance loaded under an unloaded module's
// name, so the name can be loaded again.
func (r *Runtime) releaseWasm(e module.Event) {
	if e.Type != module.EventUnloaded || r.engine == nil {
		return
	}
	wm, ok := r.engine.Module(e.Module)
	if !ok {
		return
	}
	if err := wm.Close(context.Background()); err != nil {
		r.logger.Warn("close wasm module",
			zap.String("module", e.Module),
			zap.Error(err))
	}
}

// Registry returns the type registry.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Modules returns the module list.
func (r *Runtime) Modules() *module.List { return r.modules }

// Global returns the global execution context.
func (r *Runtime) Global() *vm.Context { return r.global }

// Bindings returns the host function registry.
func (r *Runtime) Bindings() *Bindings { return r.bindings }

// Engine returns the wasm engine, or nil when the runtime was created
// without one.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *zap.Logger { return r.logger }

// CreateModule is shorthand for Modules().Create.
func (r *Runtime) CreateModule(name string) (*module.Module, error) {
	return r.modules.Create(name)
}

// NewContext creates an execution context isolated from the global one but
// configured like it.
func (r *Runtime) NewContext(opts ...vm.Option) *vm.Context {
	return vm.New(append(append([]vm.Option{}, r.ctxOpts...), opts...)...)
}

// Call resolves "Module.Func" or "Module.Type.Func" and invokes it on the
// global context.
func (r *Runtime) Call(ctx context.Context, ref string, args ...value.Value) (value.Value, error) {
	fn, err := r.modules.ResolveFunction(ref)
	if err != nil {
		return value.Value{}, err
	}
	return r.global.Call(ctx, fn, args...)
}

// LoadWasm loads a core module into the engine. Host namespaces registered
// in Bindings are made importable first; functions whose kinds have no
// core representation are left out of the host module.
func (r *Runtime) LoadWasm(ctx context.Context, name string, wasm []byte) (*engine.Module, error) {
	if r.engine == nil {
		return nil, errors.Unsupported(errors.PhaseLoad, "runtime created without a wasm engine")
	}
	if err := r.bindHosts(ctx); err != nil {
		return nil, err
	}
	return r.engine.Load(ctx, name, wasm)
}

func (r *Runtime) bindHosts(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ns := range r.bindings.Namespaces() {
		if r.hosted[ns] {
			continue
		}
		var fns []*types.Function
		for _, fn := range r.bindings.Functions(ns) {
			if !coreCompatible(fn) {
				r.logger.Debug("host function not importable by wasm",
					zap.String("function", ns+"#"+fn.Name))
				continue
			}
			fns = append(fns, fn)
		}
		if err := r.engine.HostModule(ctx, ns, fns); err != nil {
			return err
		}
		r.hosted[ns] = true
	}
	return nil
}

func coreCompatible(fn *types.Function) bool {
	for _, p := range fn.Params {
		if _, ok := engine.CoreType(p.Kind); !ok {
			return false
		}
	}
	if fn.Result == value.KindEmpty {
		return true
	}
	_, ok := engine.CoreType(fn.Result)
	return ok
}

// Close unloads every module, closes the global context and the engine.
// An unbalanced global stack is reported but does not stop the teardown.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.modules.UnloadAll()

	var errs []error
	if err := r.global.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.engine != nil {
		if err := r.engine.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.arena.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
	defaultConfig  = func() Config { return Config{Engine: &engine.Config{}} }
)

// Default returns the process-wide runtime, creating it on first use with
// a wasm engine and no metrics. If the engine cannot be created the runtime
// is created without one and the failure is logged.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRuntime != nil {
		return defaultRuntime
	}
	cfg := defaultConfig()
	rt, err := New(context.Background(), cfg)
	if err != nil {
		logger := cfg.Logger
		if logger == nil {
			logger = zap.L()
		}
		logger.Warn("default runtime created without wasm engine", zap.Error(err))
		cfg.Engine = nil
		// Without an engine New has nothing left that can fail.
		rt, _ = New(context.Background(), cfg)
	}
	defaultRuntime = rt
	return defaultRuntime
}

// Shutdown closes the process-wide runtime. A later Default creates a new
// one.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	rt := defaultRuntime
	defaultRuntime = nil
	defaultMu.Unlock()
	if rt == nil {
		return nil
	}
	return rt.Close(ctx)
}
