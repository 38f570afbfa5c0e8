package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
	"github.com/wippyai/reflect-runtime/vm"
)

// (func (export "add") (param i64 i64) (result i64) local.get 0 local.get 1 i64.add)
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
}

// (import "host" "double" (func (param i64) (result i64)))
// (func (export "quad") (param i64) (result i64) local.get 0 call 0 call 0)
var quadWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7e, 0x01, 0x7e,
	0x02, 0x0f, 0x01, 0x04, 0x68, 0x6f, 0x73, 0x74, 0x06, 0x64, 0x6f, 0x75, 0x62, 0x6c, 0x65, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x08, 0x01, 0x04, 0x71, 0x75, 0x61, 0x64, 0x00, 0x01,
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x20, 0x00, 0x10, 0x00, 0x10, 0x00, 0x0b,
}

func newEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{CloseOnContextDone: true}, "close on done"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, tc.cfg)
			if e.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestNew_MemoryLimitTooLarge(t *testing.T) {
	e, err := New(context.Background(), &Config{MemoryLimitPages: MaxMemoryPages + 1})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if e != nil {
		t.Fatal("engine should be nil on error")
	}
	newEngine(t, &Config{MemoryLimitPages: MaxMemoryPages})
}

func TestLoadAndInvoke(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)

	mod, err := e.Load(ctx, "math", addWasm)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"add"}, mod.Exports()); diff != "" {
		t.Errorf("Exports mismatch (-want +got):\n%s", diff)
	}
	if got, ok := e.Module("math"); !ok || got != mod {
		t.Errorf("Module(math) = %v, %v", got, ok)
	}

	add, err := mod.Export("add", []value.Kind{value.KindInt, value.KindInt}, value.KindInt)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	res, err := add.Invoke(ctx, []value.Value{value.Int(40), value.Int(2)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !res.Equal(value.Int(42)) {
		t.Errorf("add = %v", res)
	}

	if _, err := add.Invoke(ctx, []value.Value{value.Int(1)}); !errors.IsKind(err, errors.KindArityMismatch) {
		t.Errorf("short args err = %v", err)
	}
	if _, err := add.Invoke(ctx, []value.Value{value.Int(1), value.Float(1)}); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("float arg err = %v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod, err := e.Load(ctx, "math", addWasm)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		export string
		params []value.Kind
		result value.Kind
		kind   errors.Kind
	}{
		{"missing", "sub", []value.Kind{value.KindInt, value.KindInt}, value.KindInt, errors.KindNotFound},
		{"wrong params", "add", []value.Kind{value.KindFloat, value.KindFloat}, value.KindInt, errors.KindTypeMismatch},
		{"wrong result", "add", []value.Kind{value.KindInt, value.KindInt}, value.KindEmpty, errors.KindTypeMismatch},
		{"string param", "add", []value.Kind{value.KindString, value.KindInt}, value.KindInt, errors.KindUnsupported},
		{"list result", "add", []value.Kind{value.KindInt, value.KindInt}, value.KindList, errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mod.Export(tt.export, tt.params, tt.result)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)

	if _, err := e.Load(ctx, "bad", []byte("not wasm")); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("garbage err = %v", err)
	}
	if _, err := e.Load(ctx, "", addWasm); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("empty name err = %v", err)
	}
	if _, err := e.Load(ctx, "math", addWasm); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Load(ctx, "math", addWasm); !errors.IsKind(err, errors.KindDuplicateModuleName) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := e.Load(ctx, "needs-host", quadWasm); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("missing import err = %v", err)
	}
}

type hostOwner struct{}

func (hostOwner) Alive() bool      { return true }
func (hostOwner) FullName() string { return "host" }

func TestHostModule(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)

	var calls int
	double := types.MustBind("double", func(ctx context.Context, x int64) int64 {
		if _, ok := vm.FromContext(ctx); ok {
			calls++
		}
		return x * 2
	})
	if err := double.Attach(hostOwner{}); err != nil {
		t.Fatal(err)
	}
	if err := e.HostModule(ctx, "host", []*types.Function{double}); err != nil {
		t.Fatalf("HostModule: %v", err)
	}

	mod, err := e.Load(ctx, "guest", quadWasm)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	quad, err := mod.Export("quad", []value.Kind{value.KindInt}, value.KindInt)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	c := vm.New()
	fn := &types.Function{
		Name:   "Quad",
		Params: []types.Param{{Name: "x", Kind: value.KindInt}},
		Result: value.KindInt,
		Impl:   quad,
	}
	if err := fn.Attach(hostOwner{}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Call(ctx, fn, value.Int(3))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !res.Equal(value.Int(12)) {
		t.Errorf("quad(3) = %v", res)
	}
	if calls != 2 {
		t.Errorf("host calls through vm = %d, want 2", calls)
	}
	if c.Depth() != 0 {
		t.Errorf("depth = %d", c.Depth())
	}

	if err := e.HostModule(ctx, "host", nil); !errors.IsKind(err, errors.KindDuplicateModuleName) {
		t.Errorf("duplicate host err = %v", err)
	}
}

func TestHostModule_Unsupported(t *testing.T) {
	e := newEngine(t, nil)
	greet := types.MustBind("greet", func(s string) string { return s })
	err := e.HostModule(context.Background(), "text", []*types.Function{greet})
	if !errors.IsKind(err, errors.KindUnsupported) {
		t.Fatalf("err = %v, want unsupported", err)
	}
}

func TestModuleClose(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	mod, err := e.Load(ctx, "math", addWasm)
	if err != nil {
		t.Fatal(err)
	}
	if err := mod.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := e.Module("math"); ok {
		t.Error("closed module should be removed")
	}
	if _, err := e.Load(ctx, "math", addWasm); err != nil {
		t.Errorf("reload after close: %v", err)
	}
}

func TestSetLogger(t *testing.T) {
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("Logger must never be nil")
	}
}
