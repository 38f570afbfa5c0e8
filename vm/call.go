package vm

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// Call invokes fn with args on c.
//
// Unresolved owners, arity and argument kinds are checked before anything
// is pushed. On return the stack depth equals the depth before the call,
// whether the call succeeded or not.
//
// Top-level calls on one context run one at a time. Calls made from inside
// a running function through a ctx derived from its own skip the queue.
func (c *Context) Call(ctx context.Context, fn *types.Function, args ...value.Value) (value.Value, error) {
	if fn == nil {
		return value.Value{}, errors.InvalidInput(errors.PhaseCall, "nil function")
	}
	if c.Closed() {
		return value.Value{}, errors.InvalidInput(errors.PhaseCall, "execution context is closed")
	}
	if err := check(fn, args); err != nil {
		c.logger.Debug("call rejected", zap.String("function", fn.FullName()), zap.Error(err))
		c.observe(fn, 0, err)
		return value.Value{}, err
	}

	if !nested(ctx, c) {
		c.call.Lock()
		defer c.call.Unlock()
	}

	start := time.Now()
	res, err := c.invoke(ctx, fn, args)
	c.observe(fn, time.Since(start), err)
	if err != nil {
		c.logger.Debug("call failed", zap.String("function", fn.FullName()), zap.Error(err))
		return value.Value{}, err
	}
	return res, nil
}

// Invoke is Call on the context carried by ctx, or on a fresh context when
// ctx carries none.
func Invoke(ctx context.Context, fn *types.Function, args ...value.Value) (value.Value, error) {
	c, ok := FromContext(ctx)
	if !ok {
		c = New()
	}
	return c.Call(ctx, fn, args...)
}

func check(fn *types.Function, args []value.Value) error {
	if !fn.Resolvable() {
		detail := "owner expired"
		switch {
		case fn.Owner() == nil:
			detail = "function is not attached"
		case fn.Impl == nil:
			detail = "function has no implementation"
		}
		return errors.UnresolvedFunction(fn.Path(), detail)
	}
	if len(args) != len(fn.Params) {
		return errors.ArityMismatch(fn.Path(), len(fn.Params), len(args))
	}
	for i, p := range fn.Params {
		if args[i].Kind() != p.Kind {
			path := append(fn.Path(), paramName(p, i))
			return errors.TypeMismatch(errors.PhaseCall, path, args[i].Kind().String(), p.Kind.String())
		}
	}
	return nil
}

func (c *Context) invoke(ctx context.Context, fn *types.Function, args []value.Value) (value.Value, error) {
	c.mu.Lock()
	before := len(c.stack)
	frames := len(c.frames)
	if before+len(args) > c.limit {
		c.mu.Unlock()
		return value.Value{}, errors.StackOverflow(c.limit)
	}
	c.frames = append(c.frames, frame{fn: fn, base: before})
	c.stack = append(c.stack, args...)
	frameArgs := make([]value.Value, len(args))
	copy(frameArgs, c.stack[before:])
	c.mu.Unlock()

	res, callErr := fn.Impl.Invoke(WithContext(ctx, c), frameArgs)

	c.mu.Lock()
	gotFrames, gotDepth := len(c.frames), len(c.stack)
	balanced := gotFrames == frames+1 && gotDepth >= before
	if len(c.frames) > frames {
		c.frames = c.frames[:frames]
	}
	if len(c.stack) > before {
		clear(c.stack[before:])
		c.stack = c.stack[:before]
	}
	depth := len(c.stack)
	c.mu.Unlock()

	if !balanced || depth != before {
		return value.Value{}, errors.New(errors.PhaseCall, errors.KindUnbalancedStack).
			Path(fn.Path()...).
			Value(gotDepth).
			Detail("frames %d, expected %d; stack depth %d, expected at least %d",
				gotFrames, frames+1, gotDepth, before).
			Build()
	}
	if callErr != nil {
		return value.Value{}, callErr
	}
	if res.Kind() != fn.Result {
		path := append(fn.Path(), "result")
		return value.Value{}, errors.TypeMismatch(errors.PhaseCall, path, res.Kind().String(), fn.Result.String())
	}
	return res, nil
}

func (c *Context) observe(fn *types.Function, d time.Duration, err error) {
	if c.observer != nil {
		c.observer(fn, d, err)
	}
}

func paramName(p types.Param, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return "#" + strconv.Itoa(i)
}
