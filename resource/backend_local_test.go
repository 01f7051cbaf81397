package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(1, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok || val != "test value" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	typeID, ok := b.TypeID(handle)
	if !ok || typeID != 1 {
		t.Fatalf("TypeID = %d, %v", typeID, ok)
	}

	val, ok = b.Drop(handle)
	if !ok || val != "test value" {
		t.Fatalf("Drop = %v, %v", val, ok)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	if _, ok = b.Drop(handle); ok {
		t.Fatal("Expected double Drop to fail")
	}
}

func TestLocalBackend_InvalidHandles(t *testing.T) {
	b := NewLocalBackend()

	for _, h := range []Handle{0, 1, makeHandle(99, 1)} {
		if _, ok := b.Get(h); ok {
			t.Errorf("Get(%v) should fail", h)
		}
		if _, ok := b.TypeID(h); ok {
			t.Errorf("TypeID(%v) should fail", h)
		}
	}
}

func TestLocalBackend_NonComparableValues(t *testing.T) {
	b := NewLocalBackend()
	v := []string{"a"}

	h1, created1, err := b.Intern(1, v)
	if err != nil || !created1 {
		t.Fatalf("Intern = %v, %v, %v", h1, created1, err)
	}
	h2, created2, _ := b.Intern(1, v)
	if !created2 || h1 == h2 {
		t.Fatal("non-comparable values should always get a fresh handle")
	}
	if _, ok := b.Lookup(v); ok {
		t.Fatal("Lookup of non-comparable value should fail")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	r := &releaseCounter{}
	if _, err := b.Create(1, r); err != nil {
		t.Fatal(err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r.count != 1 {
		t.Fatalf("Release called %d times, want 1", r.count)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := b.Create(1, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Create after Close = %v, want ErrClosed", err)
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()
	h1, _ := b.Create(1, "a")
	b.Create(2, "b")
	b.Drop(h1)
	b.Create(3, "c")

	seen := map[uint32]any{}
	b.Each(func(h Handle, typeID uint32, v any) bool {
		seen[typeID] = v
		return true
	})
	if len(seen) != 2 || seen[2] != "b" || seen[3] != "c" {
		t.Fatalf("Each saw %v", seen)
	}

	count := 0
	b.Each(func(Handle, uint32, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each did not stop early: %d", count)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := b.Create(1, j)
				if err != nil {
					t.Error(err)
					return
				}
				if _, ok := b.Get(h); !ok {
					t.Error("Get of fresh handle failed")
					return
				}
				b.Drop(h)
			}
		}()
	}
	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}
