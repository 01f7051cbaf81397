package runtime

import (
	"reflect"
	"sync"
)

var eventType = reflect.TypeOf(Event{})

// Event is a model field that remote listeners can subscribe to.
// The zero value is ready to use. An Event must not be copied after use.
type Event struct {
	mu    sync.Mutex
	order []string
	subs  map[string]func(args []any)
}

// Fire calls every subscriber with args, in subscription order.
func (e *Event) Fire(args ...any) {
	e.mu.Lock()
	subs := make([]func([]any), 0, len(e.order))
	for _, id := range e.order {
		subs = append(subs, e.subs[id])
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(args)
	}
}

// Listeners returns the number of subscribers.
func (e *Event) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

func (e *Event) add(id string, fn func([]any)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[string]func([]any))
	}
	if _, ok := e.subs[id]; !ok {
		e.order = append(e.order, id)
	}
	e.subs[id] = fn
}

func (e *Event) remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.subs[id]; !ok {
		return false
	}
	delete(e.subs, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}
