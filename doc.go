// Package reflectruntime is a runtime reflection core: modules own type
// descriptors, a registry maps native type identities to descriptors, and
// functions are invoked through a bounded value stack.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	reflectruntime/
//	├── runtime/     Process-wide wiring: registry, module list, global context, host bindings
//	├── module/      Named modules and the list that creates, resolves and unloads them
//	├── types/       Type and function descriptors, weak refs, base chains, Go binding
//	├── registry/    Native type id to descriptor associations
//	├── vm/          Execution contexts: value stack, call frames, typed calls
//	├── value/       Tagged dynamic values with weak native references
//	├── attribute/   Ordered key/value metadata
//	├── native/      Stable identities for Go types
//	├── resource/    Generation-checked handle arena behind weak references
//	├── engine/      wazero integration for wasm-implemented functions
//	├── manifest/    YAML and HCL module manifests, loader and file watcher
//	├── metrics/     Prometheus collectors
//	├── errors/      Structured error types for debugging
//	└── cmd/reflect  Command-line runner with an interactive TUI
//
// # Quick Start
//
// Define a module and call into it:
//
//	rt, err := runtime.New(ctx, runtime.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	physics, _ := rt.CreateModule("Physics")
//	add := types.MustBind("Add", func(a, b int64) int64 { return a + b })
//	body, _ := physics.DefineType(types.Description{
//	    Name:      "Body",
//	    Functions: []*types.Function{add},
//	}, native.IDOf[Body]())
//
//	t, ok := rt.Registry().Resolve(native.IDOf[Body]()) // body
//	res, err := rt.Call(ctx, "Physics.Body.Add", value.Int(2), value.Int(3))
//	fmt.Println(res) // 5
//
// # Lifetimes
//
// Descriptors are reached through weak references. Unloading a module
// expires every descriptor it defined in one step: registry lookups stop
// resolving them, derived types in other modules report an expired base,
// and held Refs return nothing. Nothing dangles and nothing is freed twice.
//
// # Host Functions
//
// Go functions become callable implementations through Bind or a Host:
//
//	type MathHost struct{}
//
//	func (MathHost) Namespace() string  { return "math" }
//	func (MathHost) Add(a, b int64) int64 { return a + b }
//
//	rt.Bindings().RegisterHost(MathHost{})
//
// Manifests then refer to them as "math#add". The same functions are
// importable by wasm modules when their kinds have a core representation.
//
// # Thread Safety
//
// Runtime, Registry, List and Module are safe for concurrent use. A
// vm.Context is locked per operation but a call sequence on one context
// must come from a single goroutine, since frames nest.
package reflectruntime
