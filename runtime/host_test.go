package runtime

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
	"github.com/wippyai/reflect-runtime/vm"
)

type mathHost struct{ calls int }

func (h *mathHost) Namespace() string { return "math" }

func (h *mathHost) AddInts(a, b int64) int64 {
	h.calls++
	return a + b
}

func (h *mathHost) GetHTTPURL() string { return "http://localhost" }

type explicitHost struct{}

func (explicitHost) Namespace() string { return "text" }

func (explicitHost) Register() map[string]any {
	return map[string]any{
		"[method]upper": func(s string) string { return s + "!" },
	}
}

type badHost struct{}

func (badHost) Namespace() string { return "bad" }
func (badHost) Take(int)          {}

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Add", "add"},
		{"AddInts", "add-ints"},
		{"GetHTTPURL", "get-httpurl"},
		{"GetHTTPRequest", "get-http-request"},
		{"ID", "id"},
	}
	for _, tt := range tests {
		if got := toKebabCase(tt.in); got != tt.want {
			t.Errorf("toKebabCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBindings_RegisterHost(t *testing.T) {
	b := NewBindings()
	h := &mathHost{}
	if err := b.RegisterHost(h); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}

	var names []string
	for _, fn := range b.Functions("math") {
		names = append(names, fn.Name)
	}
	if diff := cmp.Diff([]string{"add-ints", "get-httpurl"}, names); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}

	fn, ok := b.Lookup("math#add-ints")
	if !ok {
		t.Fatal("Lookup(math#add-ints) failed")
	}
	if fn.FullName() != "math.add-ints" || !fn.Resolvable() {
		t.Errorf("bound function %s resolvable=%v", fn.FullName(), fn.Resolvable())
	}

	res, err := vm.New().Call(context.Background(), fn, value.Int(1), value.Int(2))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !res.Equal(value.Int(3)) || h.calls != 1 {
		t.Errorf("res = %v calls = %d", res, h.calls)
	}

	if err := b.RegisterHost(h); !errors.IsKind(err, errors.KindDuplicateName) {
		t.Errorf("second RegisterHost err = %v", err)
	}
}

func TestBindings_ExplicitRegistrar(t *testing.T) {
	b := NewBindings()
	if err := b.RegisterHost(explicitHost{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Lookup("text#[method]upper"); !ok {
		t.Fatal("explicit name not registered")
	}
	if diff := cmp.Diff([]string{"text"}, b.Namespaces()); diff != "" {
		t.Errorf("Namespaces mismatch (-want +got):\n%s", diff)
	}
}

func TestBindings_Errors(t *testing.T) {
	b := NewBindings()

	if err := b.RegisterHost(badHost{}); !errors.IsKind(err, errors.KindUnsupported) {
		t.Errorf("bad host err = %v", err)
	}
	if len(b.Namespaces()) != 0 {
		t.Error("failed host must not register anything")
	}
	if err := b.RegisterFunc("", "f", func() {}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("empty namespace err = %v", err)
	}
	if err := b.RegisterFunc("ns", "", func() {}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("empty name err = %v", err)
	}
	if err := b.RegisterFunc("ns", "f", "not a func"); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("non-func err = %v", err)
	}

	fn := types.MustBind("g", func() {})
	if err := b.Register("ns", fn); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("other", fn); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("attached function err = %v", err)
	}
	if _, ok := b.Lookup("ns.g"); ok {
		t.Error("reference without '#' must not resolve")
	}
	if _, ok := b.Get("ns", "g"); !ok {
		t.Error("Get(ns, g) failed")
	}
}

func TestBindings_RegisterIsAllOrNothing(t *testing.T) {
	tests := []struct {
		bad  *types.Function
		kind errors.Kind
		name string
	}{
		{&types.Function{}, errors.KindInvalidInput, "unnamed function"},
		{&types.Function{Name: "h", Params: []types.Param{
			{Name: "x", Kind: value.KindInt}, {Name: "x", Kind: value.KindInt},
		}}, errors.KindDuplicateName, "duplicate parameter"},
		{nil, errors.KindInvalidInput, "nil function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBindings()
			good := types.MustBind("g", func() {})
			if err := b.Register("ns", good, tt.bad); !errors.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
			if good.Owner() != nil {
				t.Error("valid function attached by a failed Register")
			}
			if _, ok := b.Get("ns", "g"); ok {
				t.Error("valid function stored by a failed Register")
			}
			if err := b.Register("other", good); err != nil {
				t.Errorf("function must stay registrable: %v", err)
			}
		})
	}
}
