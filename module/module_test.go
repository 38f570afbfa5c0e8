package module

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/native"
	"github.com/wippyai/reflect-runtime/registry"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

func newList(opts ...Option) (*List, *registry.Registry) {
	reg := registry.New()
	return NewList(types.NewArena(), reg, opts...), reg
}

func TestPhysicsScenario(t *testing.T) {
	ls, reg := newList()

	physics, err := ls.Create("Physics")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	body, err := physics.DefineType(types.Description{Name: "Body"}, 42)
	if err != nil {
		t.Fatalf("DefineType: %v", err)
	}

	got, ok := reg.Resolve(42)
	if !ok || got != body {
		t.Fatalf("Resolve(42) = %v, %v", got, ok)
	}

	if err := ls.Unload("Physics"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if _, ok := reg.Resolve(42); ok {
		t.Fatal("Resolve(42) should be none after unload")
	}
	if body.Alive() {
		t.Fatal("Body should be expired")
	}

	physics2, err := ls.Create("Physics")
	if err != nil {
		t.Fatalf("Create after unload: %v", err)
	}
	body2, err := physics2.DefineType(types.Description{Name: "Body"}, 42)
	if err != nil {
		t.Fatalf("re-associate 42: %v", err)
	}
	if got, _ := reg.Resolve(42); got != body2 {
		t.Fatalf("Resolve(42) = %v, want new Body", got)
	}
}

func TestCreate_Errors(t *testing.T) {
	ls, _ := newList()
	if _, err := ls.Create("A"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind errors.Kind
	}{
		{"A", errors.KindDuplicateModuleName},
		{"", errors.KindInvalidInput},
		{"A.B", errors.KindInvalidInput},
	}
	for _, tt := range tests {
		if _, err := ls.Create(tt.name); !errors.IsKind(err, tt.kind) {
			t.Errorf("Create(%q) err = %v, want %s", tt.name, err, tt.kind)
		}
	}
	if ls.Len() != 1 {
		t.Errorf("Len = %d", ls.Len())
	}
}

func TestDefineType_DuplicateName(t *testing.T) {
	ls, _ := newList()
	m, _ := ls.Create("M")
	if _, err := m.DefineType(types.Description{Name: "T"}); err != nil {
		t.Fatal(err)
	}
	_, err := m.DefineType(types.Description{Name: "T"})
	if !errors.IsKind(err, errors.KindDuplicateTypeName) {
		t.Fatalf("err = %v, want duplicate_type_name", err)
	}

	other, _ := ls.Create("Other")
	if _, err := other.DefineType(types.Description{Name: "T"}); err != nil {
		t.Fatalf("same name in another module: %v", err)
	}
}

func TestDefineType_RollbackOnAssociateFailure(t *testing.T) {
	ls, reg := newList()
	m, _ := ls.Create("M")
	first, err := m.DefineType(types.Description{Name: "First"}, 2)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.DefineType(types.Description{Name: "Second"}, 1, 2, 3)
	if !errors.IsKind(err, errors.KindAlreadyRegistered) {
		t.Fatalf("err = %v, want already_registered", err)
	}

	if _, ok := m.Type("Second"); ok {
		t.Error("Second should not be defined")
	}
	if _, ok := reg.Resolve(1); ok {
		t.Error("association 1 should have been rolled back")
	}
	if _, ok := reg.Resolve(3); ok {
		t.Error("association 3 should never have been made")
	}
	if got, _ := reg.Resolve(2); got != first {
		t.Error("existing association 2 must be untouched")
	}
	if n := ls.arena.Len(); n != 1 {
		t.Errorf("arena holds %d types, want 1", n)
	}

	if _, err := m.DefineType(types.Description{Name: "Second"}, 1); err != nil {
		t.Fatalf("define after rollback: %v", err)
	}
}

func TestRemoveType(t *testing.T) {
	ls, reg := newList()
	m, _ := ls.Create("M")
	typ, _ := m.DefineType(types.Description{Name: "T"}, 5, 6)

	if diff := cmp.Diff([]native.ID{5, 6}, m.NativeIDs(typ)); diff != "" {
		t.Errorf("NativeIDs mismatch (-want +got):\n%s", diff)
	}
	if err := m.RemoveType("T"); err != nil {
		t.Fatalf("RemoveType: %v", err)
	}
	if typ.Alive() {
		t.Error("removed type should be expired")
	}
	if reg.Len() != 0 {
		t.Errorf("registry Len = %d, want 0", reg.Len())
	}
	if err := m.RemoveType("T"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("second RemoveType err = %v", err)
	}
	if !m.Alive() {
		t.Error("module should stay loaded")
	}
}

func TestUnload_ExpiresAllTogether(t *testing.T) {
	ls, reg := newList()
	m, _ := ls.Create("Game")
	base, _ := m.DefineType(types.Description{Name: "Entity"}, 1)
	derived, _ := m.DefineType(types.Description{Name: "Player", Base: base}, 2)

	fn := &types.Function{
		Name: "Tick",
		Impl: types.NativeFunc(func(context.Context, []value.Value) (value.Value, error) {
			return value.Empty(), nil
		}),
	}
	if err := m.DefineFunction(fn); err != nil {
		t.Fatal(err)
	}
	if fn.FullName() != "Game.Tick" || !fn.Resolvable() {
		t.Fatalf("free function %s resolvable=%v", fn.FullName(), fn.Resolvable())
	}

	if err := m.Unload(); err != nil {
		t.Fatal(err)
	}
	for _, typ := range []*types.Type{base, derived} {
		if typ.Alive() {
			t.Errorf("%s should be expired", typ)
		}
	}
	for _, id := range []native.ID{1, 2} {
		if _, ok := reg.Resolve(id); ok {
			t.Errorf("Resolve(%d) should be none", id)
		}
	}
	if fn.Resolvable() {
		t.Error("free function of an unloaded module should not be resolvable")
	}
	if m.Alive() {
		t.Error("module should be unloaded")
	}
	if _, err := m.DefineType(types.Description{Name: "Late"}); !errors.IsKind(err, errors.KindUnloaded) {
		t.Errorf("DefineType on unloaded module err = %v", err)
	}
	if err := ls.Unload("Game"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("second Unload err = %v", err)
	}
}

func TestCrossModuleBase(t *testing.T) {
	ls, _ := newList()
	core, _ := ls.Create("Core")
	game, _ := ls.Create("Game")
	obj, _ := core.DefineType(types.Description{Name: "Object"})
	player, err := game.DefineType(types.Description{Name: "Player", Base: obj})
	if err != nil {
		t.Fatal(err)
	}

	_ = ls.Unload("Core")

	if !player.Alive() {
		t.Fatal("Player belongs to Game and must stay alive")
	}
	if _, err := player.ResolveBase(); !errors.IsKind(err, errors.KindExpired) {
		t.Fatalf("ResolveBase err = %v, want expired", err)
	}
}

func TestResolveRefs(t *testing.T) {
	ls, _ := newList()
	m, _ := ls.Create("Math")
	add := types.MustBind("Add", func(a, b int64) int64 { return a + b })
	shape, _ := m.DefineType(types.Description{Name: "Shape", Functions: []*types.Function{add}})
	_, _ = m.DefineType(types.Description{Name: "Circle", Base: shape})
	abs := types.MustBind("Abs", func(a int64) int64 { return max(a, -a) })
	_ = m.DefineFunction(abs)

	if typ, err := ls.ResolveType("Math.Circle"); err != nil || typ.Name() != "Circle" {
		t.Errorf("ResolveType = %v, %v", typ, err)
	}
	if fn, err := ls.ResolveFunction("Math.Circle.Add"); err != nil || fn != add {
		t.Errorf("ResolveFunction inherited = %v, %v", fn, err)
	}
	if fn, err := ls.ResolveFunction("Math.Abs"); err != nil || fn != abs {
		t.Errorf("ResolveFunction free = %v, %v", fn, err)
	}

	errTests := []struct {
		ref  string
		kind errors.Kind
	}{
		{"Math", errors.KindInvalidInput},
		{"Nope.Shape", errors.KindNotFound},
		{"Math.Nope", errors.KindNotFound},
		{"Math.Shape.Nope", errors.KindNotFound},
		{"Math..Add", errors.KindInvalidInput},
	}
	for _, tt := range errTests {
		if _, err := ls.ResolveFunction(tt.ref); !errors.IsKind(err, tt.kind) {
			t.Errorf("ResolveFunction(%q) err = %v, want %s", tt.ref, err, tt.kind)
		}
	}
}

func TestModulesOrderAndObserver(t *testing.T) {
	var events []Event
	ls, _ := newList(WithObserver(func(e Event) { events = append(events, e) }))
	a, _ := ls.Create("A")
	_, _ = ls.Create("B")
	_, _ = a.DefineType(types.Description{Name: "T"})

	var names []string
	for _, m := range ls.Modules() {
		names = append(names, m.Name())
	}
	if diff := cmp.Diff([]string{"A", "B"}, names); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}

	ls.UnloadAll()
	if ls.Len() != 0 {
		t.Fatalf("Len = %d", ls.Len())
	}

	want := []Event{
		{Type: EventCreated, Module: "A"},
		{Type: EventCreated, Module: "B"},
		{Type: EventUnloaded, Module: "B"},
		{Type: EventUnloaded, Module: "A", Types: 1},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
