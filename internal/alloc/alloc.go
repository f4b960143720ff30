// Package alloc assigns GPU virtual addresses to buffer handles without a
// driver, so batches encode the same way in tests, tools and replay.
package alloc

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSpaceExhausted is returned when the arena cannot fit a reservation.
var ErrSpaceExhausted = errors.New("address space exhausted")

// defaultAlignment is used when a caller resolves with alignment zero.
const defaultAlignment = 1 << 12

// Simple is a bump allocator over a fixed arena. Every handle gets a
// stable offset on first Resolve and keeps it until Release. Released
// space is not recycled; the cursor only moves forward, which keeps
// every address in a session unique and encodings reproducible.
type Simple struct {
	mu     sync.Mutex
	base   uint64
	limit  uint64
	cursor uint64
	bound  map[uint32]uint64
}

// NewSimple returns an allocator over [base, base+size).
func NewSimple(base, size uint64) *Simple {
	return &Simple{
		base:   base,
		limit:  base + size,
		cursor: base,
		bound:  make(map[uint32]uint64),
	}
}

// Resolve returns the offset bound to handle, reserving one on first use.
// The size and alignment of an existing binding are not re-checked. A zero
// alignment falls back to 4 KiB pages.
func (a *Simple) Resolve(handle uint32, size, alignment uint64, pat uint8) (uint64, error) {
	_ = pat

	a.mu.Lock()
	defer a.mu.Unlock()

	if off, ok := a.bound[handle]; ok {
		return off, nil
	}

	if alignment == 0 {
		alignment = defaultAlignment
	}
	if alignment&(alignment-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", alignment)
	}

	off := (a.cursor + alignment - 1) &^ (alignment - 1)
	if off+size > a.limit || off+size < off {
		return 0, fmt.Errorf("%d bytes for handle %d in [%#x, %#x): %w",
			size, handle, a.base, a.limit, ErrSpaceExhausted)
	}

	a.cursor = off + size
	a.bound[handle] = off
	return off, nil
}

// Release drops the binding for handle. Unknown handles are ignored.
func (a *Simple) Release(handle uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bound, handle)
}

// Bound returns the number of live bindings.
func (a *Simple) Bound() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bound)
}
