package wasmhost

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	iabridge "github.com/wippyai/ia-bridge"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wasmhost: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wasmhost: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// EncodeArgs serializes event arguments the way guests pass them to
// fire_event.
func EncodeArgs(args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return cborEncMode.Marshal(args)
}

// DecodeArgs deserializes event arguments written by a guest. An empty
// buffer decodes to no arguments.
func DecodeArgs(data []byte) ([]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var args []any
	if err := cborDecMode.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("wasmhost: decode event args: %w", err)
	}
	return args, nil
}

// resolveRefs replaces single-key reference maps nested in v, in place.
func resolveRefs(v any, resolve RefResolver) any {
	switch x := v.(type) {
	case []any:
		for i, e := range x {
			x[i] = resolveRefs(e, resolve)
		}
		return x
	case map[string]any:
		if len(x) == 1 {
			if id, ok := x[iabridge.RefKey].(string); ok {
				return resolve(id)
			}
		}
		for k, e := range x {
			x[k] = resolveRefs(e, resolve)
		}
		return x
	default:
		return v
	}
}
