// Package runtime ties the reflection core together: one type arena, the
// type registry, the module list and the global execution context.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	physics, _ := rt.Modules().Create("Physics")
//	add := types.MustBind("Add", func(a, b int64) int64 { return a + b })
//	physics.DefineType(types.Description{Name: "Body", Functions: []*types.Function{add}}, 42)
//
//	res, _ := rt.Call(ctx, "Physics.Body.Add", value.Int(1), value.Int(2))
//	sum, _ := value.As[int64](res) // 3
//
// # Isolation
//
// Every Runtime owns its own state. Default returns a lazily created
// process-wide instance for embedders that want a single shared runtime;
// tests should construct their own with New.
//
// # Host functions
//
// Bindings holds Go functions grouped by namespace. They are referenced
// from manifests as "namespace#name" and are importable by wasm guests
// under the same namespace:
//
//	rt.Bindings().RegisterFunc("math", "double", func(x int64) int64 { return 2 * x })
//	rt.Bindings().RegisterHost(&Logger{}) // methods become kebab-case names
package runtime
