package resource

import (
	"errors"
	"reflect"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

// LocalBackend is an in-memory backend with slot reuse and a reverse index
// from comparable values to their handles.
type LocalBackend struct {
	entries  []entry
	freeList []int
	index    map[any]Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID uint32
	gen    uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
		index:    make(map[any]Handle),
	}
}

func indexable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.create(typeID, value)
}

func (b *LocalBackend) create(typeID uint32, value any) (Handle, error) {
	if b.closed {
		return 0, ErrClosed
	}

	var slot int
	if n := len(b.freeList); n > 0 {
		slot = b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
	} else {
		b.entries = append(b.entries, entry{})
		slot = len(b.entries) - 1
	}

	e := &b.entries[slot]
	e.gen++
	e.value = value
	e.typeID = typeID
	e.valid = true

	h := makeHandle(slot, e.gen)
	if indexable(value) {
		if _, exists := b.index[value]; !exists {
			b.index[value] = h
		}
	}
	return h, nil
}

// Intern returns the live handle of value, creating one if needed.
// Non-comparable values always get a fresh handle.
func (b *LocalBackend) Intern(typeID uint32, value any) (Handle, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if indexable(value) {
		if h, ok := b.index[value]; ok {
			return h, false, nil
		}
	}
	h, err := b.create(typeID, value)
	return h, err == nil, err
}

func (b *LocalBackend) lookupEntry(handle Handle) *entry {
	slot := handle.slot()
	if handle == 0 || slot < 0 || slot >= len(b.entries) {
		return nil
	}
	e := &b.entries[slot]
	if !e.valid || e.gen != handle.generation() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookupEntry(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Lookup returns the live handle of a comparable value.
func (b *LocalBackend) Lookup(value any) (Handle, bool) {
	if !indexable(value) {
		return 0, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.index[value]
	return h, ok
}

// Drop removes a value and returns it. The slot's generation changes on the
// next reuse, so the dropped handle stays invalid.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookupEntry(handle)
	if e == nil {
		return nil, false
	}

	value := e.value
	if indexable(value) && b.index[value] == handle {
		delete(b.index, value)
	}
	e.valid = false
	e.value = nil
	b.freeList = append(b.freeList, handle.slot())
	return value, true
}

// Close releases all values.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if r, ok := b.entries[i].value.(Releaser); ok {
				r.Release()
			}
		}
	}

	b.entries = nil
	b.freeList = nil
	b.index = nil
	return nil
}

// TypeID returns the type ID a handle was stored under.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookupEntry(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of live values.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries) - len(b.freeList)
}

// Each iterates over all live values.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(i, e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
