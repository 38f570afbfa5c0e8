package manifest

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/engine"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/module"
	"github.com/wippyai/reflect-runtime/native"
	"github.com/wippyai/reflect-runtime/runtime"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// Load defines m in rt: the module, its types in declaration order and its
// free functions. On failure nothing of m stays loaded.
func Load(ctx context.Context, rt *runtime.Runtime, m *Manifest) (*module.Module, error) {
	l := &loader{rt: rt, m: m}
	mod, err := l.load(ctx)
	if err != nil {
		// Unloading the module also closes its wasm instance.
		if mod != nil {
			_ = mod.Unload()
		} else if l.wasm != nil {
			_ = l.wasm.Close(ctx)
		}
		return nil, err
	}
	rt.Logger().Debug("manifest loaded",
		zap.String("module", m.Module),
		zap.Int("types", len(m.Types)),
		zap.Int("functions", len(m.Functions)))
	return mod, nil
}

// LoadFile parses the manifest at path and loads it.
func LoadFile(ctx context.Context, rt *runtime.Runtime, path string) (*module.Module, error) {
	m, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Load(ctx, rt, m)
}

// Unload removes a module loaded from a manifest. The runtime closes its
// wasm instance, if any.
func Unload(rt *runtime.Runtime, name string) error {
	return rt.Modules().Unload(name)
}

type loader struct {
	rt   *runtime.Runtime
	m    *Manifest
	wasm *engine.Module
}

func (l *loader) load(ctx context.Context) (*module.Module, error) {
	if l.m.Wasm != "" {
		path := l.m.Wasm
		if !filepath.IsAbs(path) && l.m.Dir != "" {
			path = filepath.Join(l.m.Dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Load("read wasm "+path, err)
		}
		if l.wasm, err = l.rt.LoadWasm(ctx, l.m.Module, data); err != nil {
			return nil, err
		}
	}

	mod, err := l.rt.Modules().Create(l.m.Module)
	if err != nil {
		return nil, err
	}
	for k, v := range l.m.Attributes.All() {
		mod.SetAttribute(k, v)
	}

	for _, t := range l.m.Types {
		if err := l.defineType(mod, t); err != nil {
			return mod, err
		}
	}
	for _, f := range l.m.Functions {
		fn, err := l.function([]string{l.m.Module}, f)
		if err != nil {
			return mod, err
		}
		if err := mod.DefineFunction(fn); err != nil {
			return mod, err
		}
	}
	return mod, nil
}

func (l *loader) defineType(mod *module.Module, t Type) error {
	desc := types.Description{
		Name:       t.Name,
		Attributes: t.Attributes.Clone(),
	}

	if t.Base != "" {
		var err error
		if strings.Contains(t.Base, ".") {
			desc.Base, err = l.rt.Modules().ResolveType(t.Base)
		} else if base, ok := mod.Type(t.Base); ok {
			desc.Base = base
		} else {
			err = errors.NotFound(errors.PhaseLoad, "base type", t.Base)
		}
		if err != nil {
			return err
		}
	}

	for _, p := range t.Properties {
		k, _ := value.ParseKind(p.Kind)
		prop := types.Property{
			Name:       p.Name,
			Kind:       k,
			Attributes: p.Attributes.Clone(),
		}
		var err error
		if p.Get != "" {
			if prop.Getter, err = l.accessor("get_"+p.Name, p.Get); err != nil {
				return err
			}
		}
		if p.Set != "" {
			if prop.Setter, err = l.accessor("set_"+p.Name, p.Set); err != nil {
				return err
			}
		}
		desc.Properties = append(desc.Properties, prop)
	}
	for _, f := range t.Functions {
		fn, err := l.function([]string{l.m.Module, t.Name}, f)
		if err != nil {
			return err
		}
		desc.Functions = append(desc.Functions, fn)
	}

	ids := make([]native.ID, len(t.NativeIDs))
	for i, id := range t.NativeIDs {
		ids[i] = native.ID(id)
	}
	_, err := mod.DefineType(desc, ids...)
	return err
}

func (l *loader) function(owner []string, f Function) (*types.Function, error) {
	fn := &types.Function{
		Name:       f.Name,
		Attributes: f.Attributes.Clone(),
	}
	for _, p := range f.Params {
		k, _ := value.ParseKind(p.Kind)
		fn.Params = append(fn.Params, types.Param{Name: p.Name, Kind: k})
	}
	fn.Result, _ = value.ParseKind(f.Result)

	path := append(slices.Clone(owner), f.Name)
	switch {
	case f.Native != "":
		bound, ok := l.rt.Bindings().Lookup(f.Native)
		if !ok {
			return nil, errors.NotFound(errors.PhaseLoad, "host function", f.Native)
		}
		if len(f.Params) == 0 && f.Result == "" {
			fn.Params = slices.Clone(bound.Params)
			fn.Result = bound.Result
		} else if err := sameSignature(path, fn, bound); err != nil {
			return nil, err
		}
		fn.Impl = bound.Impl
	case f.Wasm != "":
		if l.wasm == nil {
			return nil, errors.InvalidData(errors.PhaseLoad, path, "wasm export used but module declares no wasm file")
		}
		kinds := make([]value.Kind, len(fn.Params))
		for i, p := range fn.Params {
			kinds[i] = p.Kind
		}
		export, err := l.wasm.Export(f.Wasm, kinds, fn.Result)
		if err != nil {
			return nil, err
		}
		fn.Impl = export
	}
	return fn, nil
}

// accessor copies the host function ref under name; bound functions stay
// owned by their namespace.
func (l *loader) accessor(name, ref string) (*types.Function, error) {
	bound, ok := l.rt.Bindings().Lookup(ref)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "host function", ref)
	}
	return &types.Function{
		Name:   name,
		Params: slices.Clone(bound.Params),
		Result: bound.Result,
		Impl:   bound.Impl,
	}, nil
}

func sameSignature(path []string, declared, bound *types.Function) error {
	mismatch := len(declared.Params) != len(bound.Params) || declared.Result != bound.Result
	for i := 0; !mismatch && i < len(declared.Params); i++ {
		mismatch = declared.Params[i].Kind != bound.Params[i].Kind
	}
	if mismatch {
		return errors.TypeMismatch(errors.PhaseLoad, path, bound.Signature(), declared.Signature())
	}
	return nil
}
