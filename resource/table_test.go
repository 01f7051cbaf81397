package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type scene struct{ name string }

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	// Insert
	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	// Get
	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	// GetTyped with correct type
	if _, ok = table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}

	// GetTyped with wrong type
	if _, ok = table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	// Remove
	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_Intern(t *testing.T) {
	table := NewTable()
	s := &scene{name: "main"}

	h1 := table.Intern(1, s)
	h2 := table.Intern(1, s)
	if h1 != h2 {
		t.Fatalf("same value got handles %v and %v", h1, h2)
	}
	if table.Len() != 1 {
		t.Fatalf("Len = %d, want 1", table.Len())
	}

	other := table.Intern(1, &scene{name: "main"})
	if other == h1 {
		t.Fatal("distinct pointers must get distinct handles")
	}

	if h, ok := table.Lookup(s); !ok || h != h1 {
		t.Fatalf("Lookup = %v, %v", h, ok)
	}

	table.Remove(h1)
	if _, ok := table.Lookup(s); ok {
		t.Fatal("Lookup should fail after Remove")
	}
	if h3 := table.Intern(1, s); h3 == h1 {
		t.Fatal("re-interned value reused a stale handle")
	}
}

func TestUnifiedTable_StaleHandle(t *testing.T) {
	table := NewTable()

	h1 := table.Insert(1, "a")
	table.Remove(h1)
	h2 := table.Insert(1, "b")

	if h1.slot() != h2.slot() {
		t.Fatalf("expected slot reuse, got %d and %d", h1.slot(), h2.slot())
	}
	if _, ok := table.Get(h1); ok {
		t.Fatal("stale handle resolved")
	}
	if _, ok := table.Remove(h1); ok {
		t.Fatal("stale handle removed a live value")
	}
	if v, ok := table.Get(h2); !ok || v != "b" {
		t.Fatalf("Get(h2) = %v, %v", v, ok)
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	// Insert should trigger EventCreated
	h := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Fatalf("unexpected event %+v", obs.events[0])
	}

	// Interning an existing value is silent
	table.Intern(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Intern of existing value notified: %d events", len(obs.events))
	}

	// Remove should trigger EventDropped
	table.Remove(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped {
		t.Fatalf("unexpected events %+v", obs.events)
	}

	table.Unsubscribe(obs)
	table.Insert(1, "test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var types []EventType
	f := ObserverFunc(func(e Event) { types = append(types, e.Type) })
	table.Subscribe(f)

	h := table.Insert(1, "x")
	table.Remove(h)
	table.Unsubscribe(f)

	if len(types) != 2 || types[0] != EventCreated || types[1] != EventDropped {
		t.Fatalf("events = %v", types)
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()

	table.Insert(1, "a")
	table.Insert(1, "b")
	table.Insert(1, "c")

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert(1, "a")
	table.Insert(1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if h := table.Insert(1, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
	if h := table.Intern(1, "c"); h != 0 {
		t.Fatal("Expected Intern to fail after Close")
	}
}

type releaseCounter struct {
	count int
}

func (r *releaseCounter) Release() {
	r.count++
}

func TestUnifiedTable_Releaser(t *testing.T) {
	table := NewTable()
	r := &releaseCounter{}

	h := table.Insert(1, r)
	table.Remove(h)

	if r.count != 1 {
		t.Fatalf("Expected Release() to be called once, called %d times", r.count)
	}
}

func TestHandle_StringRoundTrip(t *testing.T) {
	table := NewTable()
	h := table.Insert(1, "a")
	table.Remove(h)
	h = table.Insert(1, "b")

	if got := h.String(); got != "1.2" {
		t.Fatalf("String = %q, want 1.2", got)
	}
	parsed, err := ParseHandle(h.String())
	if err != nil {
		t.Fatalf("ParseHandle failed: %v", err)
	}
	if parsed != h {
		t.Fatalf("ParseHandle = %v, want %v", parsed, h)
	}

	for _, bad := range []string{"", "1", "0.1", "x.1", "1.y"} {
		if _, err := ParseHandle(bad); err == nil {
			t.Errorf("ParseHandle(%q) should fail", bad)
		}
	}
}
