// Package runtime is a reference IA host: it exposes a Go object graph
// through the iabridge host call surface.
//
// # Quick Start
//
//	rt, err := runtime.New(client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	sess := rt.NewSession()
//	b := bridge.New(sess)
//	sess.Attach(b)
//	rt.Ready()
//
// # Object Model
//
// Any pointer to a struct reachable from the root becomes a remote object
// the first time it crosses the boundary. Its members are derived by
// reflection:
//
//	exported methods          -> methods (ConnectToLobbyServer)
//	exported fields           -> properties (ConnectionState)
//	fields of type Event      -> events (StateChanged)
//	Item / SetItem methods    -> indexers get_Item / set_Item
//
// A field tagged `ia:"readonly"` reports canWrite=false and rejects
// SetProperty; `ia:"-"` hides it.
//
// Object IDs come from a resource table, so the same pointer always has
// the same ID until it is released with Release.
//
// # Events
//
// Model code fires events with Event.Fire. Each listener added through a
// session is routed to that session's notifier:
//
//	type Client struct {
//	    ConnectionState string `ia:"readonly"`
//	    StateChanged    runtime.Event
//	}
//
//	rt.Do(func() {
//	    c.ConnectionState = "Joined"
//	    c.StateChanged.Fire(c.ConnectionState)
//	})
//
// # Calls
//
// Arguments are coerced to the parameter types of the target method:
// numbers convert between kinds, object references resolve to their
// objects and maps decode into structs. A leading context.Context
// parameter receives the call context and a trailing error result is
// returned as the call error. All calls and Do run under one lock.
package runtime
