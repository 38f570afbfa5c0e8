package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

// CoreType returns the core value type a kind is passed as.
func CoreType(k value.Kind) (api.ValueType, bool) {
	switch k {
	case value.KindInt:
		return api.ValueTypeI64, true
	case value.KindFloat:
		return api.ValueTypeF64, true
	case value.KindBool:
		return api.ValueTypeI32, true
	}
	return 0, false
}

func coreTypes(path []string, params []value.Kind, result value.Kind) ([]api.ValueType, []api.ValueType, error) {
	in := make([]api.ValueType, len(params))
	for i, k := range params {
		vt, ok := CoreType(k)
		if !ok {
			return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
				Path(path...).
				Got(k.String()).
				Detail("parameter %d has no core representation", i).
				Build()
		}
		in[i] = vt
	}
	if result == value.KindEmpty {
		return in, nil, nil
	}
	vt, ok := CoreType(result)
	if !ok {
		return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
			Path(path...).
			Got(result.String()).
			Detail("result has no core representation").
			Build()
	}
	return in, []api.ValueType{vt}, nil
}

func encode(v value.Value) uint64 {
	switch v.Kind() {
	case value.KindInt:
		i, _ := value.As[int64](v)
		return api.EncodeI64(i)
	case value.KindFloat:
		f, _ := value.As[float64](v)
		return api.EncodeF64(f)
	case value.KindBool:
		if b, _ := value.As[bool](v); b {
			return 1
		}
	}
	return 0
}

func decode(k value.Kind, raw uint64) value.Value {
	switch k {
	case value.KindInt:
		return value.Int(int64(raw))
	case value.KindFloat:
		return value.Float(api.DecodeF64(raw))
	case value.KindBool:
		return value.Bool(api.DecodeI32(raw) != 0)
	}
	return value.Empty()
}

func typeNames(vts []api.ValueType) string {
	s := "("
	for i, vt := range vts {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(vt)
	}
	return s + ")"
}
