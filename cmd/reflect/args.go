package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/reflect-runtime/runtime"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// parseArg converts command-line text to a value of the given kind.
// List elements are separated by spaces and their kinds are inferred.
func parseArg(s string, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.KindEmpty:
		if s != "" {
			return value.Value{}, fmt.Errorf("expected no value, got %q", s)
		}
		return value.Empty(), nil
	case value.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return value.Bool(b), nil
	case value.KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}
		return value.Int(i), nil
	case value.KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("parse float %q: %w", s, err)
		}
		return value.Float(f), nil
	case value.KindString:
		return value.String(s), nil
	case value.KindList:
		fields := strings.Fields(s)
		list := make([]value.Value, len(fields))
		for i, f := range fields {
			list[i] = inferArg(f)
		}
		return value.List(list...), nil
	}
	return value.Value{}, fmt.Errorf("%s arguments cannot be given on the command line", kind)
}

func inferArg(s string) value.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return value.Bool(b)
	}
	return value.String(s)
}

// parseArgs splits a comma-separated list and converts each element to the
// matching parameter kind of fn.
func parseArgs(fn *types.Function, raw string) ([]value.Value, error) {
	var parts []string
	if raw != "" {
		parts = strings.Split(raw, ",")
	}
	if len(parts) != len(fn.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", fn.Signature(), len(fn.Params), len(parts))
	}
	args := make([]value.Value, len(parts))
	for i, p := range fn.Params {
		v, err := parseArg(strings.TrimSpace(parts[i]), p.Kind)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

// funcInfo is a callable function and the reference that resolves it.
type funcInfo struct {
	fn  *types.Function
	ref string
}

// collectFuncs lists module and type functions in module creation order.
func collectFuncs(rt *runtime.Runtime) []funcInfo {
	var out []funcInfo
	for _, mod := range rt.Modules().Modules() {
		for _, t := range mod.Types() {
			for _, fn := range t.Functions() {
				out = append(out, funcInfo{ref: t.FullName() + "." + fn.Name, fn: fn})
			}
		}
		for _, fn := range mod.Functions() {
			out = append(out, funcInfo{ref: mod.Name() + "." + fn.Name, fn: fn})
		}
	}
	return out
}

// printModules writes every loaded module with its types and functions.
func printModules(w io.Writer, rt *runtime.Runtime) {
	for _, mod := range rt.Modules().Modules() {
		fmt.Fprintf(w, "module %s\n", mod.Name())
		for _, t := range mod.Types() {
			fmt.Fprintf(w, "  type %s", t.Name())
			if ids := mod.NativeIDs(t); len(ids) > 0 {
				fmt.Fprintf(w, " %v", ids)
			}
			if t.HasBase() {
				if base, err := t.ResolveBase(); err == nil {
					fmt.Fprintf(w, " : %s", base.FullName())
				} else {
					fmt.Fprint(w, " : <expired>")
				}
			}
			fmt.Fprintln(w)
			for _, p := range t.Properties() {
				fmt.Fprintf(w, "    property %s %s\n", p.Name, p.Kind)
			}
			for _, fn := range t.Functions() {
				fmt.Fprintf(w, "    func %s%s\n", fn.Signature(), unresolved(fn))
			}
		}
		for _, fn := range mod.Functions() {
			fmt.Fprintf(w, "  func %s%s\n", fn.Signature(), unresolved(fn))
		}
	}
}

func unresolved(fn *types.Function) string {
	if fn.Resolvable() {
		return ""
	}
	return " (unresolved)"
}
