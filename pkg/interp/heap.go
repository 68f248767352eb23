package interp

import (
	"errors"
	"fmt"
)

var (
	ErrBadRef   = errors.New("heap reference out of range")
	ErrBadIndex = errors.New("array index out of range")
)

// Array is one heap-allocated integer array. Its length lives out of
// band, so bytecode can never overwrite it through iastore.
type Array struct {
	elems []int32
}

// NewArray allocates a zero-filled array of the given length.
func NewArray(length int32) *Array {
	return &Array{elems: make([]int32, length)}
}

// Len returns the array's element count.
func (a *Array) Len() int32 {
	return int32(len(a.elems))
}

// Load returns the element at index.
func (a *Array) Load(index int32) (int32, error) {
	if index < 0 || index >= a.Len() {
		return 0, fmt.Errorf("index %d of %d: %w", index, a.Len(), ErrBadIndex)
	}
	return a.elems[index], nil
}

// Store writes the element at index.
func (a *Array) Store(index, value int32) error {
	if index < 0 || index >= a.Len() {
		return fmt.Errorf("index %d of %d: %w", index, a.Len(), ErrBadIndex)
	}
	a.elems[index] = value
	return nil
}

// Heap is a monotonically growing sequence of integer arrays. A
// reference is an array's index in the sequence; indices are dense,
// never reused, and valid for the heap's lifetime. Release is the
// process exit, so there is no free.
type Heap struct {
	arrays []*Array
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Add appends an array and returns its reference.
func (h *Heap) Add(a *Array) int32 {
	h.arrays = append(h.arrays, a)
	return int32(len(h.arrays) - 1)
}

// Alloc allocates a zero-filled array of the given length and returns
// its reference.
func (h *Heap) Alloc(length int32) int32 {
	return h.Add(NewArray(length))
}

// Get returns the array behind a reference.
func (h *Heap) Get(ref int32) (*Array, error) {
	if ref < 0 || int(ref) >= len(h.arrays) {
		return nil, fmt.Errorf("ref %d of %d: %w", ref, len(h.arrays), ErrBadRef)
	}
	return h.arrays[ref], nil
}

// Len returns the number of live arrays.
func (h *Heap) Len() int {
	return len(h.arrays)
}
