package rpc

import (
	"encoding/json"
	stderrors "errors"

	"github.com/sourcegraph/jsonrpc2"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Method names.
const (
	MethodInvoke           = "invoke"
	MethodInvokeMethod     = "invokeMethod"
	MethodFireEvent        = "fireEvent"
	MethodFireRuntimeReady = "fireRuntimeReady"
)

// Error codes beyond the JSON-RPC reserved range.
const (
	CodeHostError int64 = -32000
)

// InvokeParams are the params of a target-level call.
type InvokeParams struct {
	Target string `json:"target"`
	Op     string `json:"op"`
	Args   []any  `json:"args,omitempty"`
}

// InvokeMethodParams are the params of a per-object call.
type InvokeMethodParams struct {
	ObjectID string `json:"objectId"`
	Op       string `json:"op"`
	Args     []any  `json:"args,omitempty"`
}

// FireEventParams are the params of an event notification.
type FireEventParams struct {
	ListenerID string `json:"listenerId"`
	Args       []any  `json:"args"`
}

// errorData is the structured part of a host error.
type errorData struct {
	Phase  errors.Phase `json:"phase"`
	Kind   errors.Kind  `json:"kind"`
	Object string       `json:"object,omitempty"`
	Member string       `json:"member,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// toWireError converts a host error into a JSON-RPC error that keeps its
// phase and kind.
func toWireError(err error) *jsonrpc2.Error {
	if err == nil {
		return nil
	}
	wire := &jsonrpc2.Error{Code: CodeHostError, Message: err.Error()}
	var e *errors.Error
	if stderrors.As(err, &e) {
		wire.SetError(errorData{
			Phase:  e.Phase,
			Kind:   e.Kind,
			Object: e.Object,
			Member: e.Member,
			Detail: e.Detail,
		})
	}
	return wire
}

// fromWireError rebuilds a host error from a JSON-RPC error. Errors without
// structured data become remote transport errors.
func fromWireError(err error, object, member string) error {
	var wire *jsonrpc2.Error
	if !stderrors.As(err, &wire) {
		return errors.Remote(errors.PhaseTransport, object, member, err)
	}
	if wire.Data != nil {
		var data errorData
		if json.Unmarshal(*wire.Data, &data) == nil && data.Kind != "" {
			return &errors.Error{
				Phase:  data.Phase,
				Kind:   data.Kind,
				Object: data.Object,
				Member: data.Member,
				Detail: data.Detail,
				Cause:  wire,
			}
		}
	}
	return errors.Remote(errors.PhaseHost, object, member, wire)
}

// encodeRefs replaces handles with their wire references.
func encodeRefs(v any) any {
	switch x := v.(type) {
	case iabridge.Handle:
		return iabridge.Ref{ID: x.ObjectID()}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeRefs(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeRefs(e)
		}
		return out
	default:
		return v
	}
}

func encodeArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return encodeRefs(args).([]any)
}

// decodeRefs replaces wire references with the result of mk.
func decodeRefs(v any, mk func(id string) any) any {
	switch x := v.(type) {
	case []any:
		for i, e := range x {
			x[i] = decodeRefs(e, mk)
		}
		return x
	case map[string]any:
		if len(x) == 1 {
			if id, ok := x[iabridge.RefKey].(string); ok {
				return mk(id)
			}
		}
		for k, e := range x {
			x[k] = decodeRefs(e, mk)
		}
		return x
	default:
		return v
	}
}

func decodeArgs(args []any, mk func(id string) any) []any {
	for i, a := range args {
		args[i] = decodeRefs(a, mk)
	}
	return args
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errInvalidParams
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return errInvalidParams
	}
	return nil
}
