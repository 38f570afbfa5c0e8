// Package module groups type descriptors into units of load and unload.
//
// A Module is the only strong owner of its descriptors. Everything else,
// the type registry included, holds weak references:
//
//	list := module.NewList(arena, reg)
//	physics, _ := list.Create("Physics")
//	body, _ := physics.DefineType(types.Description{Name: "Body"}, 42)
//
//	reg.Resolve(42)         // body, true
//	list.Unload("Physics")  // body and every other Physics type expire at once
//	reg.Resolve(42)         // nil, false
//
// Unload removes all descriptors of a module from the arena under a single
// arena lock, so a reader never sees some of them alive and others gone.
package module
