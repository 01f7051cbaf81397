// Package wasmhost lets an IA runtime compiled to WebAssembly notify the
// bridge.
//
// The guest imports two functions from the "ia" module:
//
//	(import "ia" "fire_event"         (func (param i32 i32 i32 i32)))
//	(import "ia" "fire_runtime_ready" (func))
//
// fire_event takes the listener ID as (ptr, len) of UTF-8 bytes and the
// event arguments as (ptr, len) of a CBOR array in guest memory. Both are
// forwarded to the notifier passed to Load, usually a *bridge.Bridge.
//
// Object references travel as {"__RuntimeObjectId": id} maps. They reach the
// notifier unchanged unless Load is given WithRefResolver, which maps each
// ID to a handle the bridge can wrap:
//
//	g, err := wasmhost.Load(ctx, wasm, b, wasmhost.WithRefResolver(func(id string) any {
//		h, err := sess.Object(id)
//		if err != nil {
//			return nil
//		}
//		return h
//	}))
package wasmhost
