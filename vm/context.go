package vm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// DefaultStackLimit is the maximum number of values on a stack.
const DefaultStackLimit = 1024

// CallObserver is notified after every Call that reached validation.
type CallObserver func(fn *types.Function, elapsed time.Duration, err error)

type frame struct {
	fn   *types.Function
	base int
}

// Context is an execution context owning one call stack.
type Context struct {
	logger   *zap.Logger
	observer CallObserver
	stack    []value.Value
	frames   []frame
	limit    int
	id       uuid.UUID
	mu       sync.Mutex
	closed   bool

	// call serializes top-level calls; nested calls already hold it.
	call sync.Mutex
}

// Option configures a Context.
type Option func(*Context)

// WithStackLimit sets the maximum number of values on the stack.
func WithStackLimit(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCallObserver sets a callback run after each call.
func WithCallObserver(fn CallObserver) Option {
	return func(c *Context) {
		c.observer = fn
	}
}

// New creates a context with an empty stack and its base frame.
func New(opts ...Option) *Context {
	c := &Context{
		logger: zap.NewNop(),
		limit:  DefaultStackLimit,
		id:     uuid.New(),
		frames: []frame{{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.Stringer("vm", c.id))
	return c
}

// ID returns the context id.
func (c *Context) ID() uuid.UUID { return c.id }

// Depth returns the number of values on the stack.
func (c *Context) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// Frames returns the number of frames, the base frame included.
func (c *Context) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// PushFrame opens a frame. Values pushed afterwards belong to it.
func (c *Context) PushFrame() {
	c.pushFrame(nil)
}

func (c *Context) pushFrame(fn *types.Function) {
	c.mu.Lock()
	c.frames = append(c.frames, frame{fn: fn, base: len(c.stack)})
	c.mu.Unlock()
}

// PopFrame closes the innermost frame and discards its values. The base
// frame cannot be popped.
func (c *Context) PopFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 1 {
		return errors.UnbalancedStack(errors.PhaseStack, 1, 0)
	}
	top := c.frames[len(c.frames)-1]
	clear(c.stack[top.base:])
	c.stack = c.stack[:top.base]
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Push appends v to the innermost frame.
func (c *Context) Push(v value.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) >= c.limit {
		return errors.StackOverflow(c.limit)
	}
	c.stack = append(c.stack, v)
	return nil
}

// Pop removes the top value of the innermost frame.
func (c *Context) Pop() (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.frames[len(c.frames)-1].base
	if len(c.stack) <= base {
		return value.Value{}, false
	}
	v := c.stack[len(c.stack)-1]
	c.stack[len(c.stack)-1] = value.Value{}
	c.stack = c.stack[:len(c.stack)-1]
	return v, true
}

// Args returns a copy of the values of the innermost frame.
func (c *Context) Args() []value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.frames[len(c.frames)-1].base
	out := make([]value.Value, len(c.stack)-base)
	copy(out, c.stack[base:])
	return out
}

// Current returns the function of the innermost frame, or nil in the base
// frame and in frames opened with PushFrame.
func (c *Context) Current() *types.Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[len(c.frames)-1].fn
}

// Trace returns the full names of the functions on the call stack,
// innermost first.
func (c *Context) Trace() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for i := len(c.frames) - 1; i > 0; i-- {
		if fn := c.frames[i].fn; fn != nil {
			out = append(out, fn.FullName())
		}
	}
	return out
}

// Close releases the context. It reports UnbalancedStack in the teardown
// phase when values or frames remain; the stack is left intact for
// inspection in that case.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) > 0 || len(c.frames) > 1 {
		c.logger.Warn("context closed with unbalanced stack",
			zap.Int("depth", len(c.stack)),
			zap.Int("frames", len(c.frames)))
		return errors.UnbalancedStackOnTeardown(len(c.stack))
	}
	c.closed = true
	return nil
}

// Closed reports whether Close succeeded.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type ctxKey struct{}

// scope links the contexts of the calls in progress along one ctx chain,
// innermost first.
type scope struct {
	vm     *Context
	parent *scope
}

// WithContext returns ctx carrying c as the innermost execution context.
func WithContext(ctx context.Context, c *Context) context.Context {
	parent, _ := ctx.Value(ctxKey{}).(*scope)
	return context.WithValue(ctx, ctxKey{}, &scope{vm: c, parent: parent})
}

// FromContext returns the execution context a call runs on.
func FromContext(ctx context.Context) (*Context, bool) {
	s, ok := ctx.Value(ctxKey{}).(*scope)
	if !ok {
		return nil, false
	}
	return s.vm, true
}

// nested reports whether ctx belongs to a call already running on c.
func nested(ctx context.Context, c *Context) bool {
	s, _ := ctx.Value(ctxKey{}).(*scope)
	for ; s != nil; s = s.parent {
		if s.vm == c {
			return true
		}
	}
	return false
}
