package interp

import (
	"errors"
	"testing"
)

func TestHeapAllocAndGet(t *testing.T) {
	h := NewHeap()
	if h.Len() != 0 {
		t.Fatalf("new heap has %d arrays", h.Len())
	}

	ref := h.Alloc(3)
	if ref != 0 {
		t.Errorf("first ref = %d, want 0", ref)
	}
	if ref2 := h.Alloc(5); ref2 != 1 {
		t.Errorf("second ref = %d, want 1", ref2)
	}
	if h.Len() != 2 {
		t.Errorf("heap len = %d, want 2", h.Len())
	}

	a, err := h.Get(ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Len() != 3 {
		t.Errorf("array len = %d, want 3", a.Len())
	}
	// Fresh arrays are zero-filled.
	for i := int32(0); i < a.Len(); i++ {
		if v, _ := a.Load(i); v != 0 {
			t.Errorf("elem %d = %d, want 0", i, v)
		}
	}
}

func TestHeapStoreLoadRoundTrip(t *testing.T) {
	h := NewHeap()
	a, err := h.Get(h.Alloc(4))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := a.Store(2, -77); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	v, err := a.Load(2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v != -77 {
		t.Errorf("Load = %d, want -77", v)
	}
}

func TestHeapBadRef(t *testing.T) {
	h := NewHeap()
	h.Alloc(1)

	for _, ref := range []int32{-1, 1, 100} {
		if _, err := h.Get(ref); !errors.Is(err, ErrBadRef) {
			t.Errorf("Get(%d) err = %v, want ErrBadRef", ref, err)
		}
	}
}

func TestArrayBadIndex(t *testing.T) {
	a := NewArray(2)
	if _, err := a.Load(-1); !errors.Is(err, ErrBadIndex) {
		t.Errorf("Load(-1) err = %v, want ErrBadIndex", err)
	}
	if _, err := a.Load(2); !errors.Is(err, ErrBadIndex) {
		t.Errorf("Load(2) err = %v, want ErrBadIndex", err)
	}
	if err := a.Store(2, 1); !errors.Is(err, ErrBadIndex) {
		t.Errorf("Store(2) err = %v, want ErrBadIndex", err)
	}
}

func TestHeapRefsAreDense(t *testing.T) {
	h := NewHeap()
	for i := int32(0); i < 10; i++ {
		if ref := h.Alloc(i); ref != i {
			t.Fatalf("ref = %d, want %d", ref, i)
		}
	}
	// arraylength(r) always matches the allocation size.
	for i := int32(0); i < 10; i++ {
		a, err := h.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", i, err)
		}
		if a.Len() != i {
			t.Errorf("array %d len = %d, want %d", i, a.Len(), i)
		}
	}
}
