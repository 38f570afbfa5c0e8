package types

import (
	"context"
	"reflect"
	"strconv"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	listType    = reflect.TypeFor[[]value.Value]()
)

// Bind derives a Function from a Go func.
//
// Supported parameter types are bool, int64, float64, string, []value.Value
// and pointers, which are taken from native references. An optional leading
// context.Context receives the call context. Results may be empty, one
// supported non-pointer type, error, or a supported type followed by error.
// Parameters are named arg0, arg1, ... until renamed with WithParamNames.
func Bind(name string, fn any) (*Function, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		got := "nil"
		if fn != nil {
			got = reflect.TypeOf(fn).String()
		}
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			Path(name).
			Got(got).
			Want("func").
			Detail("handler must be a function").
			Build()
	}
	rt := rv.Type()
	if rt.IsVariadic() {
		return nil, errors.Unsupported(errors.PhaseBind, "variadic function "+name)
	}

	in := 0
	wantsCtx := rt.NumIn() > 0 && rt.In(0) == contextType
	if wantsCtx {
		in = 1
	}

	params := make([]Param, 0, rt.NumIn()-in)
	for i := in; i < rt.NumIn(); i++ {
		k, err := kindOf(rt.In(i))
		if err != nil {
			return nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
				Path(name).
				Got(rt.In(i).String()).
				Detail("parameter %d", i-in).
				Build()
		}
		params = append(params, Param{Name: "arg" + strconv.Itoa(i-in), Kind: k})
	}

	result := value.KindEmpty
	returnsErr := false
	switch rt.NumOut() {
	case 0:
	case 1:
		if rt.Out(0) == errorType {
			returnsErr = true
			break
		}
		k, err := resultKind(rt.Out(0))
		if err != nil {
			return nil, bindResultErr(name, rt.Out(0))
		}
		result = k
	case 2:
		if rt.Out(1) != errorType {
			return nil, bindResultErr(name, rt.Out(1))
		}
		k, err := resultKind(rt.Out(0))
		if err != nil {
			return nil, bindResultErr(name, rt.Out(0))
		}
		result = k
		returnsErr = true
	default:
		return nil, errors.Unsupported(errors.PhaseBind, "more than two results in "+name)
	}

	f := &Function{
		Name:   name,
		Params: params,
		Result: result,
	}
	f.Impl = NativeFunc(func(ctx context.Context, args []value.Value) (value.Value, error) {
		callArgs := make([]reflect.Value, 0, rt.NumIn())
		if wantsCtx {
			callArgs = append(callArgs, reflect.ValueOf(&ctx).Elem())
		}
		for i, a := range args {
			arg, err := toReflect(a, rt.In(i+in))
			if err != nil {
				path := append(f.Path(), f.Params[i].Name)
				return value.Value{}, errors.New(errors.PhaseCall, errors.KindOf(err)).
					Path(path...).
					Cause(err).
					Build()
			}
			callArgs = append(callArgs, arg)
		}

		out := rv.Call(callArgs)

		if returnsErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return value.Value{}, errv.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		if len(out) == 0 {
			return value.Empty(), nil
		}
		return value.Of(out[0].Interface())
	})
	return f, nil
}

// MustBind is like Bind but panics on error. Intended for static tables of
// host functions.
func MustBind(name string, fn any) *Function {
	f, err := Bind(name, fn)
	if err != nil {
		panic(err)
	}
	return f
}

// WithParamNames renames parameters in order and returns fn.
func (fn *Function) WithParamNames(names ...string) *Function {
	for i, n := range names {
		if i < len(fn.Params) {
			fn.Params[i].Name = n
		}
	}
	return fn
}

func kindOf(t reflect.Type) (value.Kind, error) {
	switch {
	case t == listType:
		return value.KindList, nil
	case t.Kind() == reflect.Pointer:
		return value.KindNative, nil
	}
	return resultKind(t)
}

func resultKind(t reflect.Type) (value.Kind, error) {
	switch t {
	case reflect.TypeFor[bool]():
		return value.KindBool, nil
	case reflect.TypeFor[int64]():
		return value.KindInt, nil
	case reflect.TypeFor[float64]():
		return value.KindFloat, nil
	case reflect.TypeFor[string]():
		return value.KindString, nil
	case listType:
		return value.KindList, nil
	}
	return value.KindEmpty, errors.Unsupported(errors.PhaseBind, t.String())
}

func bindResultErr(name string, t reflect.Type) error {
	return errors.New(errors.PhaseBind, errors.KindUnsupported).
		Path(name).
		Got(t.String()).
		Detail("result type").
		Build()
}

func toReflect(v value.Value, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		obj, ok := v.Deref()
		if !ok {
			if v.Kind() == value.KindNative {
				return reflect.Value{}, errors.Expired(errors.PhaseCall, nil, "native reference")
			}
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseCall, nil, v.Kind().String(), t.String())
		}
		rv := reflect.ValueOf(obj)
		if !rv.Type().AssignableTo(t) {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseCall, nil, rv.Type().String(), t.String())
		}
		return rv, nil
	}
	x := v.Interface()
	if x == nil {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseCall, nil, v.Kind().String(), t.String())
	}
	rv := reflect.ValueOf(x)
	if rv.Type() != t {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseCall, nil, v.Kind().String(), t.String())
	}
	return rv, nil
}
