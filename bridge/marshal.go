package bridge

import (
	"context"

	iabridge "github.com/wippyai/ia-bridge"
)

// toHost converts a local value to its outbound form. Wrapped remote objects
// travel as a Ref carrying only their ID.
func (b *Bridge) toHost(v any) any {
	switch x := v.(type) {
	case *RemoteObject:
		if x == nil {
			return nil
		}
		return iabridge.Ref{ID: x.ID()}
	case []any:
		if !b.opts.deepMarshal {
			return v
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = b.toHost(e)
		}
		return out
	case map[string]any:
		if !b.opts.deepMarshal {
			return v
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = b.toHost(e)
		}
		return out
	default:
		return v
	}
}

// toHostArgs converts positional arguments into a fresh slice.
func (b *Bridge) toHostArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = b.toHost(a)
	}
	return out
}

// toLocal converts an inbound value. Anything that can invoke methods on
// itself is wrapped in a new RemoteObject.
func (b *Bridge) toLocal(ctx context.Context, v any) (any, error) {
	switch x := v.(type) {
	case iabridge.Handle:
		return b.Wrap(ctx, x)
	case []any:
		if !b.opts.deepMarshal {
			return v, nil
		}
		out := make([]any, len(x))
		for i, e := range x {
			w, err := b.toLocal(ctx, e)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case map[string]any:
		if !b.opts.deepMarshal {
			return v, nil
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			w, err := b.toLocal(ctx, e)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	default:
		return v, nil
	}
}

// toLocalArgs converts positional inbound arguments into a fresh slice.
func (b *Bridge) toLocalArgs(ctx context.Context, args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		w, err := b.toLocal(ctx, a)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}
