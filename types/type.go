package types

import (
	"slices"
	"strconv"
	"sync"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

// Property is an exposed field of a type.
//
// Getter, when set, takes the receiver and returns the property value; Kind
// then defaults to its result. Setter takes the receiver and a value of the
// same kind and requires a getter. Define attaches both to the type.
type Property struct {
	Getter     *Function
	Setter     *Function
	Name       string
	Attributes attribute.Attributes
	Kind       value.Kind
}

// Readable reports whether p has a getter.
func (p Property) Readable() bool { return p.Getter != nil }

// Writable reports whether p has a setter.
func (p Property) Writable() bool { return p.Setter != nil }

func (p Property) clone() Property {
	p.Attributes = p.Attributes.Clone()
	return p
}

// Description is the input to Define.
type Description struct {
	Base       *Type
	Name       string
	Properties []Property
	Functions  []*Function
	Attributes attribute.Attributes
}

// Type is a reflective type descriptor.
// Everything except attributes is immutable after Define.
type Type struct {
	attrs      attribute.Attributes
	base       Ref
	ref        Ref
	name       string
	module     string
	properties []Property
	functions  []*Function
	mu         sync.RWMutex
}

// Define validates desc, inserts the resulting Type into arena and attaches
// its functions. The arena owns the Type from then on.
func Define(arena *Arena, module string, desc Description) (*Type, error) {
	if desc.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseDefine, "type name cannot be empty")
	}
	path := []string{module, desc.Name}

	t := &Type{
		name:   desc.Name,
		module: module,
		attrs:  desc.Attributes.Clone(),
	}

	if desc.Base != nil {
		if !desc.Base.Alive() {
			return nil, errors.Expired(errors.PhaseDefine, path, "base type "+desc.Base.FullName())
		}
		t.base = desc.Base.ref
	}

	seen := make(map[string]bool, len(desc.Properties)+len(desc.Functions))
	claimed := make(map[*Function]bool)
	claim := func(fn *Function) error {
		if err := fn.Validate(); err != nil {
			return err
		}
		if fn.owner != nil {
			return errors.InvalidInput(errors.PhaseDefine, "function "+fn.Name+" already belongs to "+fn.owner.FullName())
		}
		if claimed[fn] {
			return errors.InvalidInput(errors.PhaseDefine, "function "+fn.Name+" used twice in "+desc.Name)
		}
		claimed[fn] = true
		return nil
	}

	for _, p := range desc.Properties {
		if p.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseDefine, "property name cannot be empty")
		}
		if seen[p.Name] {
			return nil, errors.DuplicateName(path, "property", p.Name)
		}
		seen[p.Name] = true
		if err := checkAccessors(append(slices.Clone(path), p.Name), &p); err != nil {
			return nil, err
		}
		for _, fn := range []*Function{p.Getter, p.Setter} {
			if fn == nil {
				continue
			}
			if err := claim(fn); err != nil {
				return nil, err
			}
		}
		t.properties = append(t.properties, p.clone())
	}
	for _, fn := range desc.Functions {
		if err := fn.Validate(); err != nil {
			return nil, err
		}
		if seen[fn.Name] {
			return nil, errors.DuplicateName(path, "member", fn.Name)
		}
		if err := claim(fn); err != nil {
			return nil, err
		}
		seen[fn.Name] = true
	}

	h, err := arena.Insert(t)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDefine, errors.KindUnloaded, err, "insert type "+desc.Name)
	}
	t.ref = Ref{arena: arena, handle: h}

	for fn := range claimed {
		fn.owner = t
	}
	t.functions = slices.Clone(desc.Functions)
	return t, nil
}

// checkAccessors validates p's getter and setter and fills in p.Kind from
// the getter when it is unset.
func checkAccessors(path []string, p *Property) error {
	if p.Getter == nil {
		if p.Setter != nil {
			return errors.InvalidInput(errors.PhaseDefine, "property "+p.Name+" has a setter but no getter")
		}
		return nil
	}
	if p.Getter == p.Setter {
		return errors.InvalidInput(errors.PhaseDefine, "property "+p.Name+" uses one function as getter and setter")
	}

	get := p.Getter
	if len(get.Params) != 1 {
		return accessorArity(append(path, "getter"), 1, len(get.Params))
	}
	if get.Result == value.KindEmpty {
		return errors.TypeMismatch(errors.PhaseDefine, append(path, "getter"), get.Result.String(), "a value")
	}
	if p.Kind == value.KindEmpty {
		p.Kind = get.Result
	} else if p.Kind != get.Result {
		return errors.TypeMismatch(errors.PhaseDefine, path, get.Result.String(), p.Kind.String())
	}

	if set := p.Setter; set != nil {
		if len(set.Params) != 2 {
			return accessorArity(append(path, "setter"), 2, len(set.Params))
		}
		if set.Params[1].Kind != get.Result {
			return errors.TypeMismatch(errors.PhaseDefine, append(path, "setter"), set.Params[1].Kind.String(), get.Result.String())
		}
	}
	return nil
}

func accessorArity(path []string, want, got int) error {
	return errors.New(errors.PhaseDefine, errors.KindArityMismatch).
		Path(path...).
		Want(strconv.Itoa(want)).
		Got(strconv.Itoa(got)).
		Detail("accessor parameter count").
		Build()
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Module returns the name of the owning module.
func (t *Type) Module() string { return t.module }

// FullName returns "Module.Type".
func (t *Type) FullName() string {
	if t.module == "" {
		return t.name
	}
	return t.module + "." + t.name
}

// Ref returns a weak handle to t.
func (t *Type) Ref() Ref { return t.ref }

// Alive reports whether t is still owned by its module.
func (t *Type) Alive() bool { return t.ref.Alive() }

// HasBase reports whether t was declared with a base.
func (t *Type) HasBase() bool { return !t.base.IsZero() }

// ResolveBase walks exactly one base link. It returns (nil, nil) when t has
// no base and an expired error when the base has been released.
func (t *Type) ResolveBase() (*Type, error) {
	if t.base.IsZero() {
		return nil, nil
	}
	b, ok := t.base.Resolve()
	if !ok {
		return nil, errors.Expired(errors.PhaseResolve, []string{t.module, t.name}, "base type")
	}
	return b, nil
}

// Properties returns a copy of the exposed properties.
func (t *Type) Properties() []Property {
	out := make([]Property, len(t.properties))
	for i, p := range t.properties {
		out[i] = p.clone()
	}
	return out
}

// Property returns the property called name.
func (t *Type) Property(name string) (Property, bool) {
	for _, p := range t.properties {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Property{}, false
}

// Functions returns the functions declared directly on t.
func (t *Type) Functions() []*Function {
	out := make([]*Function, len(t.functions))
	copy(out, t.functions)
	return out
}

// Function returns the function called name declared directly on t.
func (t *Type) Function(name string) (*Function, bool) {
	for _, fn := range t.functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// Attribute returns the attribute stored under key.
func (t *Type) Attribute(key string) (value.Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attrs.Get(key)
}

// Attributes returns a copy of the type attributes.
func (t *Type) Attributes() attribute.Attributes {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attrs.Clone()
}

// SetAttribute amends the type attributes after definition.
func (t *Type) SetAttribute(key string, v value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attrs.Set(key, v)
}

// DeleteAttribute removes an attribute. It reports whether it was present.
func (t *Type) DeleteAttribute(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attrs.Delete(key)
}

// SchemaOverride returns the schema attribute. set is false when no override
// was specified; a present override may hold the empty value.
func (t *Type) SchemaOverride() (schema value.Value, set bool) {
	return t.Attribute(attribute.Schema)
}

func (t *Type) String() string {
	return t.FullName()
}
