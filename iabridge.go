package iabridge

import "context"

// RuntimeTarget is the target category for operations that are not bound to
// a particular remote object.
const RuntimeTarget = "IARuntime"

// Target-level operations.
const (
	OpGetClientReference  = "GetClientReference"
	OpRemoveEventListener = "RemoveEventListener"
)

// Per-object operations.
const (
	OpGetMethods       = "GetMethods"
	OpGetProperties    = "GetProperties"
	OpGetEvents        = "GetEvents"
	OpInvokeMethod     = "InvokeMethod"
	OpGetProperty      = "GetProperty"
	OpSetProperty      = "SetProperty"
	OpAddEventListener = "AddEventListener"
)

// RefKey is the field name carrying an object ID in encoded references.
const RefKey = "__RuntimeObjectId"

// Host is the synchronous call surface of the host runtime.
type Host interface {
	// Invoke runs a named operation on a target category and returns its result.
	Invoke(ctx context.Context, target, op string, args ...any) (any, error)
}

// Handle is a non-owning reference to an object living in the host runtime.
type Handle interface {
	// ObjectID returns the host-assigned object ID.
	ObjectID() string

	// InvokeMethod runs a per-object operation.
	InvokeMethod(ctx context.Context, op string, args ...any) (any, error)
}

// Notifier is the surface the host uses to notify the bridge.
// Both methods must return without running listener code.
type Notifier interface {
	FireEvent(listenerID string, args []any)
	FireRuntimeReady()
}

// Ref is the minimal outbound form of a wrapped remote object.
type Ref struct {
	ID string `json:"__RuntimeObjectId" cbor:"__RuntimeObjectId" mapstructure:"__RuntimeObjectId"`
}

// ModelType describes a model the client can construct.
type ModelType struct {
	TypeID   int    `json:"typeId" mapstructure:"typeId"`
	TypeName string `json:"typeName" mapstructure:"typeName"`
}
