package bridge

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// recorder collects listener deliveries.
type recorder struct {
	mu   sync.Mutex
	got  [][]any
	name []string
}

func (r *recorder) listener(name string) Listener {
	return func(args ...any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got = append(r.got, args)
		r.name = append(r.name, name)
	}
}

func (r *recorder) deliveries() ([]string, [][]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.name...), append([][]any(nil), r.got...)
}

func TestFireEvent_DoesNotDeliverSynchronously(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	rec := &recorder{}

	if _, err := obj.Subscribe(context.Background(), "stateChanged", rec.listener("a")); err != nil {
		t.Fatal(err)
	}
	b.FireEvent("l1", []any{1})
	flush(t, b)

	if names, _ := rec.deliveries(); len(names) != 0 {
		t.Fatalf("delivered before tick: %v", names)
	}
	if b.pendingCount() != 1 {
		t.Errorf("pendingCount = %d, want 1", b.pendingCount())
	}
}

func TestTick_CoalescesPerListener(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	ctx := context.Background()
	rec := &recorder{}

	if _, err := obj.Subscribe(ctx, "stateChanged", rec.listener("state")); err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Subscribe(ctx, "roomChanged", rec.listener("room")); err != nil {
		t.Fatal(err)
	}

	b.FireEvent("l1", []any{"connecting"})
	b.FireEvent("l1", []any{"connected"})
	b.FireEvent("l2", []any{"lobby"})
	b.Tick()
	flush(t, b)

	names, got := rec.deliveries()
	if diff := cmp.Diff([]string{"state", "room"}, names); diff != "" {
		t.Errorf("delivery order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]any{{"connected"}, {"lobby"}}, got); diff != "" {
		t.Errorf("delivered args mismatch (-want +got):\n%s", diff)
	}
	if b.pendingCount() != 0 {
		t.Errorf("queue not cleared: %d pending", b.pendingCount())
	}

	b.Tick()
	flush(t, b)
	if names, _ := rec.deliveries(); len(names) != 2 {
		t.Errorf("second tick redelivered: %v", names)
	}
}

func TestTick_DeliverAll(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h, WithDeliveryMode(DeliverAll))
	obj := wrap(t, b, newClientObject(h))
	rec := &recorder{}

	if _, err := obj.Subscribe(context.Background(), "stateChanged", rec.listener("state")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		b.FireEvent("l1", []any{i})
	}
	b.Tick()
	flush(t, b)

	_, got := rec.deliveries()
	if diff := cmp.Diff([][]any{{0}, {1}, {2}}, got); diff != "" {
		t.Errorf("delivered args mismatch (-want +got):\n%s", diff)
	}
}

func TestTick_DropsUnknownListener(t *testing.T) {
	b := startedBridge(t, newFakeHost())
	b.FireEvent("nobody", []any{1})
	b.Tick()
	flush(t, b)
	if b.pendingCount() != 0 {
		t.Errorf("pendingCount = %d, want 0", b.pendingCount())
	}
}

func TestEventLoop_TicksOnItsOwn(t *testing.T) {
	h := newFakeHost()
	b := New(h, WithTickInterval(5*time.Millisecond))
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	obj := wrap(t, b, newClientObject(h))

	got := make(chan []any, 1)
	if _, err := obj.Subscribe(context.Background(), "stateChanged", func(args ...any) { got <- args }); err != nil {
		t.Fatal(err)
	}

	for _, v := range []string{"x", "y"} {
		b.FireEvent("l1", []any{v})
		select {
		case args := <-got:
			if diff := cmp.Diff([]any{v}, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event loop did not deliver %q", v)
		}
	}
}

func TestClose_FromListener(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))

	closed := make(chan error, 1)
	if _, err := obj.Subscribe(context.Background(), "stateChanged", func(...any) {
		closed <- b.Close()
	}); err != nil {
		t.Fatal(err)
	}
	b.FireEvent("l1", []any{"Disconnected"})
	b.Tick()

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from a listener did not return")
	}
	if err := b.Start(context.Background()); err == nil {
		t.Error("Start after Close should fail")
	}
}

func TestClose_FromReadyCallback(t *testing.T) {
	b := startedBridge(t, newFakeHost())

	closed := make(chan struct{})
	b.OnReady(func() {
		_ = b.Close()
		close(closed)
	})
	b.FireRuntimeReady()
	b.Tick()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from a ready callback did not return")
	}
}

func TestReady_CallbackOrdering(t *testing.T) {
	b := startedBridge(t, newFakeHost())

	var mu sync.Mutex
	var order []string
	add := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}

	b.OnReady(add("first"))
	b.OnReady(add("second"))
	b.FireRuntimeReady()
	flush(t, b)
	if len(snapshot()) != 0 || b.Ready() {
		t.Fatal("ready callbacks ran before the tick")
	}

	b.Tick()
	flush(t, b)
	if !b.Ready() {
		t.Fatal("bridge not ready after tick")
	}
	if diff := cmp.Diff([]string{"first", "second"}, snapshot()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	b.OnReady(add("late"))
	flush(t, b)
	if diff := cmp.Diff([]string{"first", "second", "late"}, snapshot()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	rec := &recorder{}

	unsub, err := obj.Subscribe(context.Background(), "stateChanged", rec.listener("a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Subscribe(context.Background(), "roomChanged", rec.listener("b")); err != nil {
		t.Fatal(err)
	}
	if b.listenerCount() != 2 {
		t.Fatalf("listenerCount = %d, want 2", b.listenerCount())
	}

	unsub()
	unsub()

	removals := h.callsFor(iabridge.OpRemoveEventListener)
	want := []call{{Object: iabridge.RuntimeTarget, Op: iabridge.OpRemoveEventListener, Args: []any{"l1"}}}
	if diff := cmp.Diff(want, removals); diff != "" {
		t.Errorf("removal calls mismatch (-want +got):\n%s", diff)
	}
	if b.listenerCount() != 1 {
		t.Errorf("listenerCount = %d, want 1", b.listenerCount())
	}

	b.FireEvent("l1", []any{1})
	b.FireEvent("l2", []any{2})
	b.Tick()
	flush(t, b)
	names, got := rec.deliveries()
	if diff := cmp.Diff([]string{"b"}, names); diff != "" {
		t.Errorf("delivered listeners mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]any{{2}}, got); diff != "" {
		t.Errorf("delivered args mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe_RemoteErrorIgnored(t *testing.T) {
	h := newFakeHost()
	h.removeErr = stderrors.New("gone")
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))

	unsub, err := obj.Subscribe(context.Background(), "stateChanged", func(...any) {})
	if err != nil {
		t.Fatal(err)
	}
	unsub()
	if b.listenerCount() != 0 {
		t.Errorf("listenerCount = %d, want 0", b.listenerCount())
	}
}

func TestSubscribe_ReservedListenerID(t *testing.T) {
	h := newFakeHost()
	h.listenerIDs = []any{ReadyListenerID}
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))

	_, err := obj.Subscribe(context.Background(), "stateChanged", func(...any) {})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindReserved}) {
		t.Fatalf("error = %v, want reserved", err)
	}

	var ran bool
	b.OnReady(func() { ran = true })
	b.FireRuntimeReady()
	b.Tick()
	flush(t, b)
	if !ran {
		t.Error("ready handler was replaced")
	}
}

func TestSubscribe_NumericListenerID(t *testing.T) {
	h := newFakeHost()
	h.listenerIDs = []any{float64(17)}
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	got := make(chan struct{}, 1)

	if _, err := obj.Subscribe(context.Background(), "stateChanged", func(...any) { got <- struct{}{} }); err != nil {
		t.Fatal(err)
	}
	b.FireEvent("17", nil)
	b.Tick()
	flush(t, b)
	select {
	case <-got:
	default:
		t.Error("listener registered under numeric ID not delivered")
	}
}

func TestListenerPanicRecovered(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	rec := &recorder{}
	ctx := context.Background()

	if _, err := obj.Subscribe(ctx, "stateChanged", func(...any) { panic("listener bug") }); err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Subscribe(ctx, "roomChanged", rec.listener("room")); err != nil {
		t.Fatal(err)
	}
	b.FireEvent("l1", nil)
	b.FireEvent("l2", nil)
	b.Tick()
	flush(t, b)

	if names, _ := rec.deliveries(); len(names) != 1 {
		t.Errorf("deliveries after panic = %v, want one", names)
	}
}

func TestEventArgsWrapped(t *testing.T) {
	h := newFakeHost()
	b := startedBridge(t, h)
	obj := wrap(t, b, newClientObject(h))
	room := h.add(&fakeObject{id: "room-1", methods: []string{"Leave"}})
	got := make(chan any, 1)

	if _, err := obj.Subscribe(context.Background(), "roomChanged", func(args ...any) { got <- args[0] }); err != nil {
		t.Fatal(err)
	}
	b.FireEvent("l1", []any{room})
	b.Tick()
	flush(t, b)

	select {
	case v := <-got:
		ro, ok := v.(*RemoteObject)
		if !ok || ro.ID() != "room-1" || !ro.Has("leave") {
			t.Errorf("event arg = %#v, want wrapped room", v)
		}
	default:
		t.Fatal("no delivery")
	}
}

func TestBridge_StartClose(t *testing.T) {
	b := New(newFakeHost())
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Errorf("second Start = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := b.Start(context.Background()); err == nil {
		t.Error("Start after Close should fail")
	}
}

func TestFireQueue(t *testing.T) {
	q := newFireQueue(DeliverLatest)
	q.put("b", []any{1})
	q.put("a", []any{2})
	q.put("b", []any{3})

	want := []firing{{listenerID: "b", args: []any{3}}, {listenerID: "a", args: []any{2}}}
	if diff := cmp.Diff(want, q.drain(), cmp.AllowUnexported(firing{})); diff != "" {
		t.Errorf("drain mismatch (-want +got):\n%s", diff)
	}
	if q.len() != 0 {
		t.Errorf("len after drain = %d", q.len())
	}
}
