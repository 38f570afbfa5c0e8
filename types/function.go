package types

import (
	"context"
	"strings"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

// Invoker executes a function body. Native Go functions and scripted
// implementations both satisfy it.
type Invoker interface {
	Invoke(ctx context.Context, args []value.Value) (value.Value, error)
}

// NativeFunc is an Invoker implemented in Go.
type NativeFunc func(ctx context.Context, args []value.Value) (value.Value, error)

// Invoke calls f.
func (f NativeFunc) Invoke(ctx context.Context, args []value.Value) (value.Value, error) {
	return f(ctx, args)
}

// Owner is the entity a function belongs to: a Type or a module.
type Owner interface {
	Alive() bool
	FullName() string
}

// Param declares one function input.
type Param struct {
	Name string
	Kind value.Kind
}

// Function describes a callable member.
// Result is KindEmpty for functions that return nothing.
type Function struct {
	Impl       Invoker
	owner      Owner
	Name       string
	Params     []Param
	Attributes attribute.Attributes
	Result     value.Kind
}

// Attach binds fn to owner. A function can be attached once.
func (fn *Function) Attach(owner Owner) error {
	if err := fn.Validate(); err != nil {
		return err
	}
	if fn.owner != nil {
		return errors.InvalidInput(errors.PhaseDefine, "function "+fn.Name+" already belongs to "+fn.owner.FullName())
	}
	fn.owner = owner
	return nil
}

// Owner returns the owning entity, or nil before the function is attached.
func (fn *Function) Owner() Owner {
	return fn.owner
}

// Resolvable reports whether fn is attached to a live owner and has an
// implementation.
func (fn *Function) Resolvable() bool {
	return fn.owner != nil && fn.owner.Alive() && fn.Impl != nil
}

// IsNative reports whether the implementation is a Go function.
func (fn *Function) IsNative() bool {
	_, ok := fn.Impl.(NativeFunc)
	return ok
}

// Arity returns the number of declared parameters.
func (fn *Function) Arity() int {
	return len(fn.Params)
}

// InputIndex returns the position of the parameter called name.
func (fn *Function) InputIndex(name string) (int, bool) {
	for i, p := range fn.Params {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

// FullName returns "Owner.Function", or the bare name when detached.
func (fn *Function) FullName() string {
	if fn.owner == nil {
		return fn.Name
	}
	return fn.owner.FullName() + "." + fn.Name
}

// Path returns the dotted full name split into segments, for errors.
func (fn *Function) Path() []string {
	return strings.Split(fn.FullName(), ".")
}

// Signature renders the declaration, e.g. "Add(a int, b int) int".
func (fn *Function) Signature() string {
	var b strings.Builder
	b.WriteString(fn.Name)
	b.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Name != "" {
			b.WriteString(p.Name)
			b.WriteByte(' ')
		}
		b.WriteString(p.Kind.String())
	}
	b.WriteByte(')')
	if fn.Result != value.KindEmpty {
		b.WriteByte(' ')
		b.WriteString(fn.Result.String())
	}
	return b.String()
}

// Validate checks that fn is non-nil, named and has unique parameter names.
func (fn *Function) Validate() error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseDefine, "nil function")
	}
	if fn.Name == "" {
		return errors.InvalidInput(errors.PhaseDefine, "function name cannot be empty")
	}
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			return errors.DuplicateName([]string{fn.Name}, "parameter", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
