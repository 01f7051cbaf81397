package resource

import (
	"sync"
)

// UnifiedTable implements Table on a LocalBackend.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

var _ Table = (*UnifiedTable)(nil)

// NewTable creates a new table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

func (t *UnifiedTable) isClosed() bool {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	return t.closed
}

// Insert adds a value and returns a fresh handle, or 0 once closed.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	if t.isClosed() {
		return 0
	}

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return handle
}

// Intern returns the existing handle of value, or inserts it.
func (t *UnifiedTable) Intern(typeID uint32, value any) Handle {
	if t.isClosed() {
		return 0
	}

	handle, created, err := t.backend.Intern(typeID, value)
	if err != nil {
		return 0
	}
	if created {
		t.notify(Event{
			Type:   EventCreated,
			Handle: handle,
			TypeID: typeID,
			Value:  value,
		})
	}
	return handle
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it was stored under typeID.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Lookup returns the handle of a stored value.
func (t *UnifiedTable) Lookup(value any) (Handle, bool) {
	return t.backend.Lookup(value)
}

// Remove drops a value and returns (value, true) if found.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if r, ok := value.(Releaser); ok {
		r.Release()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. ObserverFunc values cannot be compared
// and are never removed.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	if _, ok := o.(ObserverFunc); ok {
		return
	}
	for i, obs := range t.observers {
		if _, ok := obs.(ObserverFunc); ok {
			continue
		}
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live values.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Clear drops all values.
func (t *UnifiedTable) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all values and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
