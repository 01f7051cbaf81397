package bridge

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	iabridge "github.com/wippyai/ia-bridge"
)

// call is one operation observed by fakeHost.
type call struct {
	Object string
	Op     string
	Args   []any
}

// fakeHost is an in-memory host that records every operation it receives.
type fakeHost struct {
	mu          sync.Mutex
	calls       []call
	objects     map[string]*fakeObject
	listeners   int
	listenerIDs []any
	removeErr   error
}

func newFakeHost() *fakeHost {
	return &fakeHost{objects: make(map[string]*fakeObject)}
}

func (h *fakeHost) record(object, op string, args []any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]any, len(args))
	copy(cp, args)
	h.calls = append(h.calls, call{Object: object, Op: op, Args: cp})
}

func (h *fakeHost) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

// callsFor returns the recorded calls of one operation.
func (h *fakeHost) callsFor(op string) []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []call
	for _, c := range h.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// nextListenerID hands out l1, l2, ... unless listenerIDs holds overrides.
func (h *fakeHost) nextListenerID() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.listenerIDs) > 0 {
		id := h.listenerIDs[0]
		h.listenerIDs = h.listenerIDs[1:]
		return id
	}
	h.listeners++
	return fmt.Sprintf("l%d", h.listeners)
}

func (h *fakeHost) Invoke(_ context.Context, target, op string, args ...any) (any, error) {
	h.record(target, op, args)
	switch op {
	case iabridge.OpGetClientReference:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.objects["client"], nil
	case iabridge.OpRemoveEventListener:
		return nil, h.removeErr
	}
	return nil, fmt.Errorf("unknown operation %s", op)
}

func (h *fakeHost) add(o *fakeObject) *fakeObject {
	o.host = h
	if o.properties == nil {
		o.properties = map[string]map[string]any{}
	}
	if o.events == nil {
		o.events = map[string]map[string]any{}
	}
	if o.values == nil {
		o.values = map[string]any{}
	}
	if o.results == nil {
		o.results = map[string]any{}
	}
	if o.fail == nil {
		o.fail = map[string]error{}
	}
	h.mu.Lock()
	h.objects[o.id] = o
	h.mu.Unlock()
	return o
}

type fakeObject struct {
	host       *fakeHost
	id         string
	methods    []string
	properties map[string]map[string]any
	events     map[string]map[string]any
	values     map[string]any
	results    map[string]any
	fail       map[string]error
}

func (o *fakeObject) ObjectID() string { return o.id }

func (o *fakeObject) InvokeMethod(_ context.Context, op string, args ...any) (any, error) {
	o.host.record(o.id, op, args)
	if err := o.fail[op]; err != nil {
		return nil, err
	}
	switch op {
	case iabridge.OpGetMethods:
		return o.methods, nil
	case iabridge.OpGetProperties:
		return o.properties, nil
	case iabridge.OpGetEvents:
		return o.events, nil
	case iabridge.OpInvokeMethod:
		return o.results[args[0].(string)], nil
	case iabridge.OpGetProperty:
		o.host.mu.Lock()
		defer o.host.mu.Unlock()
		return o.values[args[0].(string)], nil
	case iabridge.OpSetProperty:
		o.host.mu.Lock()
		defer o.host.mu.Unlock()
		o.values[args[0].(string)] = args[1]
		return nil, nil
	case iabridge.OpAddEventListener:
		return o.host.nextListenerID(), nil
	}
	return nil, fmt.Errorf("unknown operation %s", op)
}

func (o *fakeObject) set(name string, v any) {
	o.host.mu.Lock()
	defer o.host.mu.Unlock()
	o.values[name] = v
}

// newClientObject returns a fake shaped like the IA client.
func newClientObject(h *fakeHost) *fakeObject {
	return h.add(&fakeObject{
		id:      "client",
		methods: []string{"ConnectToLobbyServer", "Disconnect"},
		properties: map[string]map[string]any{
			"ConnectionState": {"type": "string", "canWrite": false},
			"LobbyServerUri":  {"type": "string", "canWrite": true},
		},
		events: map[string]map[string]any{
			"StateChanged": {},
			"RoomChanged":  {},
		},
	})
}

// startedBridge returns a running bridge whose ticker never fires on its own;
// tests drive the loop with Tick.
func startedBridge(t *testing.T, h iabridge.Host, opts ...Option) *Bridge {
	t.Helper()
	b := New(h, append([]Option{WithTickInterval(time.Hour)}, opts...)...)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// flush waits until everything scheduled so far has run. It takes two rounds
// so that work scheduled by a delivered callback runs as well.
func flush(t *testing.T, b *Bridge) {
	t.Helper()
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		b.sched.schedule(func() { close(done) })
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not drain")
		}
	}
}
