// Package bridge mirrors host-owned objects as local proxies.
//
// A Bridge wraps an iabridge.Host. Wrapping a handle reflects the remote
// object once and captures its methods, properties and events under local
// (first letter lowercased) names:
//
//	obj, err := b.Wrap(ctx, handle)
//	obj.Invoke(ctx, "connect", "tcp://lobby:7000")   // calls Connect
//	obj.SetProperty(ctx, "pointSize", 2.5)           // writes PointSize
//	v, err := obj.Get(ctx, "anything")               // nil, nil if unknown
//
// # Events
//
// The host reports event firings through FireEvent. Firings are buffered and
// delivered by the event loop started with Start: every tick the buffer is
// drained and listeners run one at a time on a dedicated goroutine, never on
// the host's call stack. By default only the latest firing per listener
// between two ticks is delivered; WithDeliveryMode(DeliverAll) keeps all of
// them.
//
// # Marshalling
//
// Outbound arguments that are *RemoteObject travel as iabridge.Ref. Inbound
// values implementing iabridge.Handle come back as new *RemoteObject. Only
// top-level arguments are inspected unless WithDeepMarshal(true) is set.
package bridge
