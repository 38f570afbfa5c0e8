package attribute

import (
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

// FromCty builds attributes from a cty object or map. cty objects carry no
// order, so keys are inserted sorted.
func FromCty(cv cty.Value) (Attributes, error) {
	var a Attributes
	if cv.IsNull() {
		return a, nil
	}
	ty := cv.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return a, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
			Got(ty.FriendlyName()).
			Want("object").
			Build()
	}

	m := cv.AsValueMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := value.FromCty(m[k])
		if err != nil {
			return Attributes{}, errors.New(errors.PhaseConvert, errors.KindInvalidData).
				Path(k).
				Cause(err).
				Build()
		}
		a.Set(k, v)
	}
	return a, nil
}
