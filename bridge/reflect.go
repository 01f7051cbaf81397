package bridge

import (
	"context"

	"github.com/go-viper/mapstructure/v2"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// reflectHandle runs the one reflection pass for a handle.
func reflectHandle(ctx context.Context, h iabridge.Handle) (Descriptors, error) {
	id := h.ObjectID()

	rawMethods, err := h.InvokeMethod(ctx, iabridge.OpGetMethods)
	if err != nil {
		return Descriptors{}, errors.Reflection(id, iabridge.OpGetMethods, err)
	}
	var methods []string
	if err := mapstructure.Decode(rawMethods, &methods); err != nil {
		return Descriptors{}, errors.Reflection(id, iabridge.OpGetMethods, err)
	}

	properties, err := reflectMembers(ctx, h, iabridge.OpGetProperties)
	if err != nil {
		return Descriptors{}, err
	}
	events, err := reflectMembers(ctx, h, iabridge.OpGetEvents)
	if err != nil {
		return Descriptors{}, err
	}

	return Descriptors{
		Methods:    MethodDescriptors(methods),
		Properties: MemberDescriptors(properties),
		Events:     MemberDescriptors(events),
	}, nil
}

func reflectMembers(ctx context.Context, h iabridge.Handle, op string) (map[string]map[string]any, error) {
	raw, err := h.InvokeMethod(ctx, op)
	if err != nil {
		return nil, errors.Reflection(h.ObjectID(), op, err)
	}
	members := make(map[string]map[string]any)
	if raw == nil {
		return members, nil
	}
	if err := mapstructure.Decode(raw, &members); err != nil {
		return nil, errors.Reflection(h.ObjectID(), op, err)
	}
	return members, nil
}
