package types

import (
	"context"
	"testing"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

func addFunc() *Function {
	return &Function{
		Name:   "Add",
		Params: []Param{{Name: "a", Kind: value.KindInt}, {Name: "b", Kind: value.KindInt}},
		Result: value.KindInt,
		Impl: NativeFunc(func(_ context.Context, args []value.Value) (value.Value, error) {
			a, _ := value.As[int64](args[0])
			b, _ := value.As[int64](args[1])
			return value.Int(a + b), nil
		}),
	}
}

func TestDefine(t *testing.T) {
	arena := NewArena()
	fn := addFunc()
	typ, err := Define(arena, "Physics", Description{
		Name:       "Body",
		Properties: []Property{{Name: "mass", Kind: value.KindFloat}},
		Functions:  []*Function{fn},
		Attributes: attribute.New(attribute.P(attribute.Display, value.String("Rigid body"))),
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	if got := typ.FullName(); got != "Physics.Body" {
		t.Errorf("FullName = %q", got)
	}
	if !typ.Alive() {
		t.Error("type should be alive after Define")
	}
	if typ.HasBase() {
		t.Error("type should have no base")
	}
	if got := fn.FullName(); got != "Physics.Body.Add" {
		t.Errorf("function FullName = %q", got)
	}
	if !fn.Resolvable() {
		t.Error("attached function should be resolvable")
	}
	if p, ok := typ.Property("mass"); !ok || p.Kind != value.KindFloat {
		t.Errorf("Property(mass) = %v, %v", p, ok)
	}
	if _, ok := typ.Property("missing"); ok {
		t.Error("Property(missing) should not be found")
	}
	if v, ok := typ.Attribute(attribute.Display); !ok || !v.Equal(value.String("Rigid body")) {
		t.Errorf("Attribute(display) = %v, %v", v, ok)
	}
}

func TestDefine_Errors(t *testing.T) {
	tests := []struct {
		name string
		desc func() Description
		kind errors.Kind
	}{
		{
			name: "empty name",
			desc: func() Description { return Description{} },
			kind: errors.KindInvalidInput,
		},
		{
			name: "duplicate property",
			desc: func() Description {
				return Description{Name: "T", Properties: []Property{{Name: "x"}, {Name: "x"}}}
			},
			kind: errors.KindDuplicateName,
		},
		{
			name: "property clashes with function",
			desc: func() Description {
				fn := addFunc()
				return Description{Name: "T", Properties: []Property{{Name: "Add"}}, Functions: []*Function{fn}}
			},
			kind: errors.KindDuplicateName,
		},
		{
			name: "duplicate parameter",
			desc: func() Description {
				fn := addFunc()
				fn.Params[1].Name = "a"
				return Description{Name: "T", Functions: []*Function{fn}}
			},
			kind: errors.KindDuplicateName,
		},
		{
			name: "unnamed function",
			desc: func() Description {
				return Description{Name: "T", Functions: []*Function{{}}}
			},
			kind: errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena := NewArena()
			_, err := Define(arena, "M", tt.desc())
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			if arena.Len() != 0 {
				t.Errorf("arena holds %d types after failed Define", arena.Len())
			}
		})
	}
}

func massAccessors() (get, set *Function) {
	get = MustBind("GetMass", func(b *body) float64 { return b.mass })
	set = MustBind("SetMass", func(b *body, m float64) { b.mass = m })
	return get, set
}

func TestDefine_PropertyAccessors(t *testing.T) {
	arena := NewArena()
	get, set := massAccessors()
	typ, err := Define(arena, "Physics", Description{
		Name:       "Body",
		Properties: []Property{{Name: "mass", Getter: get, Setter: set}, {Name: "tag", Kind: value.KindString}},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	p, ok := typ.Property("mass")
	if !ok {
		t.Fatal("Property(mass) not found")
	}
	if p.Kind != value.KindFloat {
		t.Errorf("Kind = %s, want float from the getter", p.Kind)
	}
	if !p.Readable() || !p.Writable() {
		t.Errorf("Readable %v Writable %v", p.Readable(), p.Writable())
	}
	if get.Owner() != typ || set.Owner() != typ {
		t.Error("accessors must be owned by the type")
	}
	if got := get.FullName(); got != "Physics.Body.GetMass" {
		t.Errorf("getter FullName = %q", got)
	}
	if len(typ.Functions()) != 0 {
		t.Error("accessors must not be listed as functions")
	}
	if tag, _ := typ.Property("tag"); tag.Readable() || tag.Writable() {
		t.Error("plain property must have no accessors")
	}
}

func TestDefine_PropertyAccessorErrors(t *testing.T) {
	tests := []struct {
		name string
		prop func() Property
		kind errors.Kind
	}{
		{
			name: "setter without getter",
			prop: func() Property { _, set := massAccessors(); return Property{Name: "mass", Setter: set} },
			kind: errors.KindInvalidInput,
		},
		{
			name: "getter without result",
			prop: func() Property {
				return Property{Name: "mass", Getter: MustBind("Get", func(*body) {})}
			},
			kind: errors.KindTypeMismatch,
		},
		{
			name: "getter takes two parameters",
			prop: func() Property {
				return Property{Name: "mass", Getter: MustBind("Get", func(b *body, x float64) float64 { return x })}
			},
			kind: errors.KindArityMismatch,
		},
		{
			name: "getter result differs from declared kind",
			prop: func() Property {
				get, _ := massAccessors()
				return Property{Name: "mass", Kind: value.KindInt, Getter: get}
			},
			kind: errors.KindTypeMismatch,
		},
		{
			name: "setter value kind differs from getter result",
			prop: func() Property {
				get, _ := massAccessors()
				set := MustBind("SetMass", func(b *body, m int64) { b.mass = float64(m) })
				return Property{Name: "mass", Getter: get, Setter: set}
			},
			kind: errors.KindTypeMismatch,
		},
		{
			name: "setter takes one parameter",
			prop: func() Property {
				get, _ := massAccessors()
				return Property{Name: "mass", Getter: get, Setter: MustBind("Reset", func(b *body) { b.mass = 0 })}
			},
			kind: errors.KindArityMismatch,
		},
		{
			name: "same function as getter and setter",
			prop: func() Property {
				get, _ := massAccessors()
				return Property{Name: "mass", Getter: get, Setter: get}
			},
			kind: errors.KindInvalidInput,
		},
		{
			name: "getter already owned",
			prop: func() Property {
				get, _ := massAccessors()
				_ = get.Attach(&Type{name: "Other"})
				return Property{Name: "mass", Getter: get}
			},
			kind: errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena := NewArena()
			p := tt.prop()
			_, err := Define(arena, "M", Description{Name: "T", Properties: []Property{p}})
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			if arena.Len() != 0 {
				t.Errorf("arena holds %d types after failed Define", arena.Len())
			}
			if p.Setter != nil && p.Setter.Owner() != nil {
				t.Error("failed Define attached the setter")
			}
		})
	}
}

func TestDefine_AccessorListedAsFunction(t *testing.T) {
	get, _ := massAccessors()
	_, err := Define(NewArena(), "M", Description{
		Name:       "T",
		Properties: []Property{{Name: "mass", Getter: get}},
		Functions:  []*Function{get},
	})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if get.Owner() != nil {
		t.Error("failed Define attached the getter")
	}
}

func TestDefine_FunctionOwnedOnce(t *testing.T) {
	arena := NewArena()
	fn := addFunc()
	if _, err := Define(arena, "M", Description{Name: "A", Functions: []*Function{fn}}); err != nil {
		t.Fatalf("Define A: %v", err)
	}
	_, err := Define(arena, "M", Description{Name: "B", Functions: []*Function{fn}})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("err = %v, want invalid_input", err)
	}
}

func TestResolveBase(t *testing.T) {
	arena := NewArena()
	base, err := Define(arena, "M", Description{Name: "Shape", Functions: []*Function{addFunc()}})
	if err != nil {
		t.Fatal(err)
	}
	derived, err := Define(arena, "M", Description{Name: "Circle", Base: base})
	if err != nil {
		t.Fatal(err)
	}

	got, err := derived.ResolveBase()
	if err != nil || got != base {
		t.Fatalf("ResolveBase = %v, %v", got, err)
	}
	if b, err := base.ResolveBase(); b != nil || err != nil {
		t.Fatalf("root ResolveBase = %v, %v", b, err)
	}

	ok, err := IsDerivedFrom(derived, base)
	if err != nil || !ok {
		t.Fatalf("IsDerivedFrom = %v, %v", ok, err)
	}
	ok, err = IsDerivedFrom(base, derived)
	if err != nil || ok {
		t.Fatalf("IsDerivedFrom reversed = %v, %v", ok, err)
	}

	fn, owner, err := LookupFunction(derived, "Add")
	if err != nil || fn == nil || owner != base {
		t.Fatalf("LookupFunction = %v, %v, %v", fn, owner, err)
	}
	if fn, _, err := LookupFunction(derived, "Missing"); fn != nil || err != nil {
		t.Fatalf("LookupFunction(Missing) = %v, %v", fn, err)
	}

	chain, err := Chain(derived)
	if err != nil || len(chain) != 2 {
		t.Fatalf("Chain = %v, %v", chain, err)
	}

	arena.Remove(base.Ref().Handle())

	if base.Alive() {
		t.Fatal("base should be expired")
	}
	if _, err := derived.ResolveBase(); !errors.IsKind(err, errors.KindExpired) {
		t.Fatalf("ResolveBase after removal err = %v, want expired", err)
	}
	if _, err := IsDerivedFrom(derived, base); !errors.IsKind(err, errors.KindExpired) {
		t.Fatalf("IsDerivedFrom after removal err = %v, want expired", err)
	}
	chain, err = Chain(derived)
	if !errors.IsKind(err, errors.KindExpired) || len(chain) != 1 {
		t.Fatalf("Chain after removal = %v, %v", chain, err)
	}
	if fn.Resolvable() {
		t.Error("function of a removed type should not be resolvable")
	}
}

func TestDefine_ExpiredBase(t *testing.T) {
	arena := NewArena()
	base, err := Define(arena, "M", Description{Name: "Base"})
	if err != nil {
		t.Fatal(err)
	}
	arena.Remove(base.Ref().Handle())

	_, err = Define(arena, "M", Description{Name: "Derived", Base: base})
	if !errors.IsKind(err, errors.KindExpired) {
		t.Fatalf("err = %v, want expired", err)
	}
}

func TestSchemaOverride(t *testing.T) {
	arena := NewArena()
	typ, err := Define(arena, "M", Description{Name: "T"})
	if err != nil {
		t.Fatal(err)
	}

	if _, set := typ.SchemaOverride(); set {
		t.Fatal("schema should be unset")
	}

	typ.SetAttribute(attribute.Schema, value.Empty())
	v, set := typ.SchemaOverride()
	if !set || !v.IsEmpty() {
		t.Fatalf("SchemaOverride = %v, %v; want empty override", v, set)
	}

	typ.SetAttribute(attribute.Schema, value.String(`{"type":"object"}`))
	if v, _ := typ.SchemaOverride(); v.Kind() != value.KindString {
		t.Fatalf("SchemaOverride kind = %s", v.Kind())
	}

	attrs := typ.Attributes()
	attrs.Set("other", value.Int(1))
	if _, ok := typ.Attribute("other"); ok {
		t.Error("Attributes must return a copy")
	}

	if !typ.DeleteAttribute(attribute.Schema) {
		t.Error("DeleteAttribute should report presence")
	}
	if _, set := typ.SchemaOverride(); set {
		t.Error("schema should be unset after delete")
	}
}

func TestFunction_Signature(t *testing.T) {
	tests := []struct {
		fn   *Function
		want string
	}{
		{addFunc(), "Add(a int, b int) int"},
		{&Function{Name: "Reset"}, "Reset()"},
		{&Function{Name: "Say", Params: []Param{{Kind: value.KindString}}}, "Say(string)"},
	}
	for _, tt := range tests {
		if got := tt.fn.Signature(); got != tt.want {
			t.Errorf("Signature() = %q, want %q", got, tt.want)
		}
	}
}

func TestFunction_InputIndex(t *testing.T) {
	fn := addFunc()
	if i, ok := fn.InputIndex("b"); !ok || i != 1 {
		t.Errorf("InputIndex(b) = %d, %v", i, ok)
	}
	if _, ok := fn.InputIndex("c"); ok {
		t.Error("InputIndex(c) should not be found")
	}
	if fn.Arity() != 2 {
		t.Errorf("Arity = %d", fn.Arity())
	}
	if !fn.IsNative() {
		t.Error("NativeFunc should be native")
	}
}

type testOwner struct {
	name  string
	alive bool
}

func (o *testOwner) Alive() bool      { return o.alive }
func (o *testOwner) FullName() string { return o.name }

func TestFunction_Attach(t *testing.T) {
	fn := addFunc()
	if fn.Resolvable() {
		t.Fatal("detached function should not be resolvable")
	}
	owner := &testOwner{name: "Math", alive: true}
	if err := fn.Attach(owner); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if fn.FullName() != "Math.Add" {
		t.Errorf("FullName = %q", fn.FullName())
	}
	if err := fn.Attach(owner); err == nil {
		t.Error("second Attach should fail")
	}
	owner.alive = false
	if fn.Resolvable() {
		t.Error("function of a dead owner should not be resolvable")
	}
}
