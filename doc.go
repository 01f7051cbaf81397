// Package iabridge mirrors objects owned by an IA Runtime host as local
// proxies that application code can drive.
//
// The root package holds the boundary contract shared by every layer: the
// Host call surface the bridge consumes, the Handle every remote object
// reference satisfies, and the Notifier the host uses to push events back.
//
// # Architecture Overview
//
//	iabridge/            Boundary contract: Host, Handle, Notifier, Ref
//	├── bridge/          Remote object proxies, reflection, event loop, marshalling
//	├── runtime/         Reflective Go host runtime exposing an object graph
//	├── resource/        Handle table assigning remote object IDs
//	├── rpc/             JSON-RPC 2.0 transport for Host and Notifier
//	├── wasmhost/        WebAssembly guest channel for runtime notifications
//	├── config/          TOML/YAML configuration
//	├── errors/          Structured error types
//	└── cmd/iabridge/    CLI: serve a sample runtime, explore one through the bridge
//
// # Quick Start
//
//	rt, err := runtime.New(root)
//	sess := rt.NewSession()
//
//	b := bridge.New(sess)
//	sess.Attach(b)
//	b.Start(ctx)
//	defer b.Close()
//
//	b.OnReady(func() {
//	    client, err := b.CreateClient(ctx)
//	    ...
//	    client.Invoke(ctx, "connectToLobbyServer", "tcp://lobby:7000")
//	})
//	rt.Ready()
//
// # Events
//
// Remote events never run listener code on the host's call stack. Firings are
// buffered and delivered by the bridge's tick loop:
//
//	unsubscribe, err := client.Subscribe(ctx, "stateChanged", func(args ...any) {
//	    fmt.Println("state:", args)
//	})
//	defer unsubscribe()
package iabridge
