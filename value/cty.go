package value

import (
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/wippyai/reflect-runtime/errors"
)

// ToCty converts v to a cty value. Lists become tuples so that elements may
// differ in kind. Native references have no cty form.
func ToCty(v Value) (cty.Value, error) {
	switch v.kind {
	case KindEmpty:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case KindBool:
		return cty.BoolVal(v.b), nil
	case KindInt:
		return cty.NumberIntVal(v.i), nil
	case KindFloat:
		return cty.NumberFloatVal(v.f), nil
	case KindString:
		return cty.StringVal(v.s), nil
	case KindList:
		if len(v.list) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(v.list))
		for i, e := range v.list {
			ce, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = ce
		}
		return cty.TupleVal(elems), nil
	}
	return cty.NilVal, errors.Unsupported(errors.PhaseConvert, "native references cannot be converted to cty")
}

// FromCty converts a cty value to a Value. Null becomes Empty, whole numbers
// that fit in int64 become Int and every other number becomes Float.
// Lists, sets and tuples become List. Maps and objects are not values; use
// attribute.FromCty for those.
func FromCty(cv cty.Value) (Value, error) {
	if cv.IsMarked() {
		cv, _ = cv.Unmark()
	}
	if !cv.IsKnown() {
		return Value{}, errors.InvalidData(errors.PhaseConvert, nil, "unknown cty value")
	}
	if cv.IsNull() {
		return Empty(), nil
	}

	ty := cv.Type()
	switch {
	case ty == cty.Bool:
		return Bool(cv.True()), nil
	case ty == cty.String:
		return String(cv.AsString()), nil
	case ty == cty.Number:
		bf := cv.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return Float(f), nil
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		list := make([]Value, 0, cv.LengthInt())
		for it := cv.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			e, err := FromCty(ev)
			if err != nil {
				return Value{}, err
			}
			list = append(list, e)
		}
		return Value{kind: KindList, list: list}, nil
	}
	return Value{}, errors.New(errors.PhaseConvert, errors.KindUnsupported).
		Got(ty.FriendlyName()).
		Detail("cty type has no value kind").
		Build()
}
