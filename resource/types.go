package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle is an opaque reference to a value in a table.
// The low 32 bits hold the slot index plus one, the high 32 bits the slot
// generation. Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(slot int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

func (h Handle) slot() int {
	return int(uint32(h)) - 1
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// String formats the handle as "index.generation".
func (h Handle) String() string {
	return strconv.FormatUint(uint64(uint32(h)), 10) + "." + strconv.FormatUint(uint64(h.generation()), 10)
}

// ParseHandle parses the form produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	idx, gen, ok := strings.Cut(s, ".")
	if !ok {
		return 0, fmt.Errorf("malformed handle %q", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil || i == 0 {
		return 0, fmt.Errorf("malformed handle index %q", s)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed handle generation %q", s)
	}
	return Handle(g<<32 | i), nil
}

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event is a table lifecycle notification.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives table lifecycle notifications.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage for a table.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Lookup returns the live handle of a comparable value.
	Lookup(value any) (Handle, bool)

	// Drop removes a value and returns it.
	Drop(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Table manages values with type information and observer support.
type Table interface {
	// Insert adds a value and returns a fresh handle.
	Insert(typeID uint32, value any) Handle

	// Intern returns the existing handle of value, or inserts it.
	Intern(typeID uint32, value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it was stored under typeID.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Lookup returns the handle of a stored value.
	Lookup(value any) (Handle, bool)

	// Remove drops a value and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of live values.
	Len() int

	// Clear drops all values.
	Clear()

	// Close releases all values and stops accepting operations.
	Close() error
}

// Releaser is optionally implemented by values that need cleanup when their
// handle is removed.
type Releaser interface {
	Release()
}
