package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/runtime"
)

// mathHost exposes arithmetic to manifests as math#add, math#div and so on.
// Its core-typed functions are also importable by wasm modules.
type mathHost struct{}

func (mathHost) Namespace() string { return "math" }

func (mathHost) Add(a, b int64) int64 { return a + b }
func (mathHost) Sub(a, b int64) int64 { return a - b }
func (mathHost) Mul(a, b int64) int64 { return a * b }

func (mathHost) Div(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func (mathHost) Sqrt(x float64) float64 { return math.Sqrt(x) }

// strHost exposes string helpers as str#concat, str#len and str#upper.
type strHost struct{}

func (strHost) Namespace() string { return "str" }

func (strHost) Concat(a, b string) string { return a + b }
func (strHost) Len(s string) int64        { return int64(len(s)) }
func (strHost) Upper(s string) string     { return strings.ToUpper(s) }

// logHost forwards guest messages to the CLI logger. Names are explicit so
// the binding reads log#info rather than a method-derived name.
type logHost struct {
	logger *zap.Logger
}

func (logHost) Namespace() string { return "log" }

func (h logHost) Register() map[string]any {
	return map[string]any{
		"info": func(_ context.Context, msg string) {
			h.logger.Info(msg)
		},
		"value": func(_ context.Context, v int64) {
			h.logger.Info("guest value", zap.Int64("value", v))
		},
	}
}

func registerHosts(rt *runtime.Runtime) error {
	for _, h := range []runtime.Host{mathHost{}, strHost{}, logHost{logger: rt.Logger().Named("guest")}} {
		if err := rt.Bindings().RegisterHost(h); err != nil {
			return err
		}
	}
	return nil
}
