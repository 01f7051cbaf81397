// Package rpc carries the host call surface over JSON-RPC 2.0.
//
// The bridge side uses a Client, which implements iabridge.Host and hands
// out remote handles; the host side serves a runtime.Runtime with Serve,
// one session per connection.
//
//	client methods   invoke        {target, op, args}
//	                 invokeMethod  {objectId, op, args}
//	host notifies    fireEvent     {listenerId, args}
//	                 fireRuntimeReady
//
// Objects travel as {"__RuntimeObjectId": "<id>"} in both directions.
// Messages are framed with Content-Length headers.
package rpc
