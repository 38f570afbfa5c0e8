package vm

import (
	"context"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
	"github.com/wippyai/reflect-runtime/value"
)

// GetProperty calls the getter of property name, looked up on t and its
// bases, with receiver.
func (c *Context) GetProperty(ctx context.Context, t *types.Type, name string, receiver value.Value) (value.Value, error) {
	p, err := property(t, name)
	if err != nil {
		return value.Value{}, err
	}
	if !p.Readable() {
		return value.Value{}, errors.Unsupported(errors.PhaseCall, "reading property "+t.FullName()+"."+name+" without a getter")
	}
	return c.Call(ctx, p.Getter, receiver)
}

// SetProperty calls the setter of property name with receiver and v.
func (c *Context) SetProperty(ctx context.Context, t *types.Type, name string, receiver, v value.Value) error {
	p, err := property(t, name)
	if err != nil {
		return err
	}
	if !p.Writable() {
		return errors.Unsupported(errors.PhaseCall, "writing property "+t.FullName()+"."+name+" without a setter")
	}
	_, err = c.Call(ctx, p.Setter, receiver, v)
	return err
}

func property(t *types.Type, name string) (types.Property, error) {
	if t == nil {
		return types.Property{}, errors.InvalidInput(errors.PhaseCall, "nil type")
	}
	p, _, err := types.LookupProperty(t, name)
	if err != nil {
		return types.Property{}, err
	}
	if p.Name == "" {
		return types.Property{}, errors.NotFound(errors.PhaseCall, "property", t.FullName()+"."+name)
	}
	return p, nil
}
