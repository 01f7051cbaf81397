package bridge

import (
	"context"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Names of the client members the model factory is built from.
const (
	createMethod     = "create"
	modelTypesMethod = "getConstructableModelTypes"
)

// ModelFactory constructs one model type on the host.
type ModelFactory func(ctx context.Context, args ...any) (any, error)

// Client is the wrapped root object of the runtime plus a model factory
// keyed by constructable type name.
type Client struct {
	*RemoteObject

	types   []iabridge.ModelType
	factory map[string]ModelFactory
}

// CreateClient fetches the runtime's client reference, wraps it and builds
// the model factory. The factory replaces the client's create member.
func (b *Bridge) CreateClient(ctx context.Context) (*Client, error) {
	raw, err := b.host.Invoke(ctx, b.opts.target, iabridge.OpGetClientReference)
	if err != nil {
		return nil, errors.Remote(errors.PhaseInvoke, b.opts.target, iabridge.OpGetClientReference, err)
	}
	h, ok := raw.(iabridge.Handle)
	if !ok {
		return nil, errors.New(errors.PhaseReflect, errors.KindTypeMismatch).
			Member(iabridge.OpGetClientReference).
			Value(raw).
			Detail("expected object handle, got %T", raw).
			Build()
	}
	obj, err := b.Wrap(ctx, h)
	if err != nil {
		return nil, err
	}

	c := &Client{
		RemoteObject: obj,
		factory:      make(map[string]ModelFactory),
	}

	create, ok := obj.desc.Methods[createMethod]
	if !ok {
		return c, nil
	}
	createFn := obj.method(create)

	rawTypes, err := obj.Invoke(ctx, modelTypesMethod)
	if err != nil {
		return nil, err
	}
	if err := mapstructure.Decode(rawTypes, &c.types); err != nil {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidData).
			Object(obj.ID()).
			Member(modelTypesMethod).
			Cause(err).
			Build()
	}

	for _, mt := range c.types {
		typeID := mt.TypeID
		c.factory[mt.TypeName] = func(ctx context.Context, args ...any) (any, error) {
			return createFn(ctx, typeID, b.toHostArgs(args))
		}
	}

	obj.mu.Lock()
	obj.fields[createMethod] = c.factory
	obj.mu.Unlock()

	return c, nil
}

// ModelTypes returns the model types the client can construct.
func (c *Client) ModelTypes() []iabridge.ModelType {
	out := make([]iabridge.ModelType, len(c.types))
	copy(out, c.types)
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}

// Factory returns the constructor for typeName, if the client offers one.
func (c *Client) Factory(typeName string) (ModelFactory, bool) {
	f, ok := c.factory[typeName]
	return f, ok
}

// Create constructs a model of the named type.
func (c *Client) Create(ctx context.Context, typeName string, args ...any) (any, error) {
	f, ok := c.factory[typeName]
	if !ok {
		return nil, errors.MemberNotFound(errors.PhaseInvoke, c.ID(), typeName, "model type")
	}
	return f(ctx, args...)
}
