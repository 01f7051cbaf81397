// Package resource assigns stable, generation-checked handles to host objects.
//
// The host runtime exposes Go values to remote callers by ID. A Table maps
// handles to values and back, so handing out the same value twice yields
// the same handle:
//
//	table := resource.NewTable()
//
//	h := table.Intern(kindScene, scene)   // new handle
//	h2 := table.Intern(kindScene, scene)  // h2 == h
//
//	value, ok := table.Get(h)
//	value, ok = table.GetTyped(h, kindScene)
//
// # Handles
//
// A Handle packs a slot index and a generation. Removing a value bumps the
// slot's generation, so stale handles never resolve to a value that later
// reuses the slot. Handles print as "index.generation":
//
//	h.String()                   // "3.1"
//	h, err := resource.ParseHandle("3.1")
//
// Handle 0 is reserved and always invalid.
//
// # Observers
//
// Observers see every insertion and removal:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %s", e.Type, e.Handle)
//	}))
//
// # Releasing
//
// Values are not collected automatically. Remove drops one handle and calls
// Release on values implementing Releaser; Close releases everything.
package resource
