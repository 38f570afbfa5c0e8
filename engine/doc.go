// Package engine runs scripted function implementations on wazero.
//
// A core WebAssembly module is compiled and instantiated once per Load.
// Its exports are exposed as types.Invoker values so they can back
// functions declared on type descriptors:
//
//	eng, _ := engine.New(ctx, nil)
//	mod, _ := eng.Load(ctx, "math", wasmBytes)
//	add, _ := mod.Export("add", []value.Kind{value.KindInt, value.KindInt}, value.KindInt)
//	fn := &types.Function{Name: "Add", Params: ..., Result: value.KindInt, Impl: add}
//
// # Value mapping
//
//	Kind     Core type
//	──────────────────
//	int      i64
//	float    f64
//	bool     i32 (0 or 1)
//
// Strings, lists and native references have no core representation and
// are rejected when an export or host function is declared.
//
// # Host functions
//
// HostModule makes runtime functions importable by guests. A host function
// runs through the execution context carried by the calling context, so a
// guest calling back into the runtime shares the caller's stack.
package engine
