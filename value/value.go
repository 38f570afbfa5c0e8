package value

import (
	"reflect"
	"strconv"
	"strings"
	"weak"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/native"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindNative
	KindList
)

var kindNames = [...]string{
	KindEmpty:  "empty",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindNative: "native",
	KindList:   "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind parses a kind name as produced by Kind.String.
// "void" is accepted as an alias of "empty".
func ParseKind(s string) (Kind, bool) {
	if s == "void" {
		return KindEmpty, true
	}
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindEmpty, false
}

// Value is a tagged dynamic value.
type Value struct {
	ref  *nativeRef
	s    string
	list []Value
	i    int64
	f    float64
	kind Kind
	b    bool
}

type nativeRef struct {
	key any // weak.Pointer[T]; comparable
	get func() any
	id  native.ID
}

// Empty returns the empty value.
func Empty() Value { return Value{} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an int value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a composite value holding a copy of vs.
func List(vs ...Value) Value {
	list := make([]Value, len(vs))
	copy(list, vs)
	return Value{kind: KindList, list: list}
}

// NativeOf returns a non-owning reference to p, tagged with the native id of T.
func NativeOf[T any](p *T) Value {
	return NativeWithID(native.IDOf[T](), p)
}

// NativeWithID returns a non-owning reference to p tagged with an
// embedder-chosen native id.
func NativeWithID[T any](id native.ID, p *T) Value {
	w := weak.Make(p)
	return Value{
		kind: KindNative,
		ref: &nativeRef{
			id:  id,
			key: w,
			get: func() any {
				if v := w.Value(); v != nil {
					return v
				}
				return nil
			},
		},
	}
}

// Of converts a Go value to a Value. Integers of any width become Int,
// float32/float64 become Float. Pointers must go through NativeOf.
func Of(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Empty(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case []Value:
		return List(v...), nil
	case []any:
		list := make([]Value, len(v))
		for i, e := range v {
			ev, err := Of(e)
			if err != nil {
				return Value{}, err
			}
			list[i] = ev
		}
		return Value{kind: KindList, list: list}, nil
	}
	return Value{}, errors.New(errors.PhaseConvert, errors.KindUnsupported).
		Got(reflect.TypeOf(x).String()).
		Detail("no value kind for Go type").
		Build()
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether v is the empty value.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Len returns the number of elements of a list, or 0.
func (v Value) Len() int { return len(v.list) }

// Index returns the i-th list element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// NativeID returns the native type id of a native reference.
func (v Value) NativeID() (native.ID, bool) {
	if v.kind != KindNative {
		return native.None, false
	}
	return v.ref.id, true
}

// Alive reports whether a native reference still observes a live object.
// It is false for every other kind.
func (v Value) Alive() bool {
	_, ok := v.Deref()
	return ok
}

// Deref returns the referent of a native reference if it is still alive.
func (v Value) Deref() (any, bool) {
	if v.kind != KindNative {
		return nil, false
	}
	obj := v.ref.get()
	return obj, obj != nil
}

// Interface returns the payload as a plain Go value: nil, bool, int64,
// float64, string, []Value, or the native referent (nil if expired).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		return List(v.list...).list
	case KindNative:
		obj, _ := v.Deref()
		return obj
	}
	return nil
}

// As returns the payload of v if its variant matches T exactly.
//
//	bool     KindBool
//	int64    KindInt
//	float64  KindFloat
//	string   KindString
//	[]Value  KindList (copy)
//	other    KindNative whose live referent has dynamic type T
func As[T any](v Value) (T, bool) {
	var zero T
	switch p := any(&zero).(type) {
	case *bool:
		if v.kind == KindBool {
			*p = v.b
			return zero, true
		}
	case *int64:
		if v.kind == KindInt {
			*p = v.i
			return zero, true
		}
	case *float64:
		if v.kind == KindFloat {
			*p = v.f
			return zero, true
		}
	case *string:
		if v.kind == KindString {
			*p = v.s
			return zero, true
		}
	case *[]Value:
		if v.kind == KindList {
			*p = List(v.list...).list
			return zero, true
		}
	default:
		obj, ok := v.Deref()
		if !ok {
			return zero, false
		}
		t, ok := obj.(T)
		return t, ok
	}
	return zero, false
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindNative:
		return v.ref.id == o.ref.id && v.ref.key == o.ref.key
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String formats v for logs and debugging.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.kind {
	case KindEmpty:
		b.WriteString("<empty>")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.s))
	case KindNative:
		b.WriteString(native.Name(v.ref.id))
		if !v.Alive() {
			b.WriteString("(expired)")
		}
	case KindList:
		b.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			e.format(b)
		}
		b.WriteByte(']')
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (v Value) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", v.kind.String())
	switch v.kind {
	case KindBool:
		enc.AddBool("value", v.b)
	case KindInt:
		enc.AddInt64("value", v.i)
	case KindFloat:
		enc.AddFloat64("value", v.f)
	case KindString:
		enc.AddString("value", v.s)
	case KindNative:
		enc.AddUint64("native_id", uint64(v.ref.id))
		enc.AddBool("alive", v.Alive())
	case KindList:
		enc.AddInt("len", len(v.list))
		enc.AddString("value", v.String())
	}
	return nil
}

// Field returns a zap field for v.
func Field(key string, v Value) zap.Field {
	return zap.Object(key, v)
}
