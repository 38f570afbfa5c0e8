package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/reflect-runtime/manifest"
	"github.com/wippyai/reflect-runtime/runtime"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

const physics = `
module: Physics
types:
  - name: Body
    native_ids: [42]
    properties:
      - {name: mass, kind: float}
    functions:
      - name: Add
        params: [{name: a, kind: int}, {name: b, kind: int}]
        result: int
        native: math#add
  - name: Rigid
    base: Body
functions:
  - name: Shout
    params: [{name: s, kind: string}]
    result: string
    native: str#upper
  - name: Later
`

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := runtime.New(ctx, runtime.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })
	if err := registerHosts(rt); err != nil {
		t.Fatalf("registerHosts: %v", err)
	}
	m, err := manifest.Parse([]byte(physics), manifest.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := manifest.Load(ctx, rt, m); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return rt
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		in      string
		kind    value.Kind
		want    value.Value
		wantErr bool
	}{
		{"42", value.KindInt, value.Int(42), false},
		{"-1", value.KindInt, value.Int(-1), false},
		{"x", value.KindInt, value.Value{}, true},
		{"1.5", value.KindFloat, value.Float(1.5), false},
		{"true", value.KindBool, value.Bool(true), false},
		{"maybe", value.KindBool, value.Value{}, true},
		{"hi there", value.KindString, value.String("hi there"), false},
		{"1 2.5 yes", value.KindList, value.List(value.Int(1), value.Float(2.5), value.String("yes")), false},
		{"", value.KindEmpty, value.Empty(), false},
		{"x", value.KindEmpty, value.Value{}, true},
		{"x", value.KindNative, value.Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.in, func(t *testing.T) {
			got, err := parseArg(tt.in, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	fn := types.MustBind("Add", func(a, b int64) int64 { return a + b })

	args, err := parseArgs(fn, "1, 2")
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 2 || !args[1].Equal(value.Int(2)) {
		t.Errorf("args = %v", args)
	}
	if _, err := parseArgs(fn, "1"); err == nil {
		t.Error("expected arity error")
	}
	if _, err := parseArgs(fn, "1,b"); err == nil {
		t.Error("expected parse error")
	}
}

func TestPrintModules(t *testing.T) {
	rt := newTestRuntime(t)

	var buf bytes.Buffer
	printModules(&buf, rt)
	out := buf.String()

	for _, want := range []string{
		"module Physics\n",
		"  type Body [42]\n",
		"    property mass float\n",
		"    func Add(a int, b int) int\n",
		"  type Rigid : Physics.Body\n",
		"  func Shout(s string) string\n",
		"  func Later() (unresolved)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCall(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	if err := call(ctx, rt, "Physics.Body.Add", "2,3"); err != nil {
		t.Errorf("call Add: %v", err)
	}
	if err := call(ctx, rt, "Physics.Missing", ""); err == nil {
		t.Error("expected error for missing function")
	}
	if err := call(ctx, rt, "Physics.Later", ""); err == nil {
		t.Error("expected error for unresolved function")
	}
}

func TestHosts(t *testing.T) {
	rt := newTestRuntime(t)

	for _, ref := range []string{"math#add", "math#div", "math#sqrt", "str#concat", "str#len", "log#info"} {
		if _, ok := rt.Bindings().Lookup(ref); !ok {
			t.Errorf("%s not registered", ref)
		}
	}

	div, _ := rt.Bindings().Lookup("math#div")
	if _, err := rt.Global().Call(context.Background(), div, value.Int(1), value.Int(0)); err == nil {
		t.Error("expected division by zero error")
	}
}

func TestInteractiveModel(t *testing.T) {
	rt := newTestRuntime(t)
	m := newInteractiveModel(rt, "physics.yaml")

	if len(m.funcs) != 3 || m.funcs[0].ref != "Physics.Body.Add" {
		t.Fatalf("funcs = %+v", m.funcs)
	}
	if !strings.Contains(m.View(), "Physics.Body.Add") {
		t.Error("function list not rendered")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateInputArgs || len(m.inputs) != 2 {
		t.Fatalf("state = %v, inputs = %d", m.state, len(m.inputs))
	}
	m.inputs[0].SetValue("20")
	m.inputs[1].SetValue("22")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on inputs should issue a call")
	}
	m.Update(cmd())
	if m.state != stateShowResult {
		t.Fatalf("state = %v", m.state)
	}
	if m.err != nil || m.result != "42" {
		t.Errorf("result = %q, err = %v", m.result, m.err)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateSelectFunc {
		t.Errorf("esc should return to the list, state = %v", m.state)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.funcs[m.selected].ref != "Physics.Later" {
		t.Fatalf("selected %s", m.funcs[m.selected].ref)
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("nullary function should be called directly")
	}
	m.Update(cmd())
	if m.err == nil {
		t.Error("unresolved function should report an error")
	}
}
