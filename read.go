package leftright

import (
	"sync/atomic"

	"github.com/kolkov/leftright/internal/liveness"
)

// ReadHandle reads the published state of a handle pair.
//
// Safe for concurrent use from any number of goroutines, and cheap to Clone
// when per-goroutine handles are preferred. Reads never block: not on other
// readers, not on the writer, not on an in-progress Refresh.
type ReadHandle[T Operand[T, O], O any] struct {
	c      *core[T, O]
	closed atomic.Bool
}

// View is a guarded snapshot taken by Read.
//
// The view pins the slot it was taken from; the writer cannot reuse that
// slot until the view is released. Hold views briefly: the next Refresh
// publishes its batch and then blocks until every older view is released.
//
// A View belongs to the goroutine that took it. It is not safe for
// concurrent use and must not be copied; share the ReadHandle instead.
type View[T any] struct {
	value    T
	slot     uint32
	token    uint64
	live     liveness.Tracker
	released bool
}

// Value returns the viewed state.
//
// The returned value is valid only until Release: for pointer-shaped T it
// refers to slot memory the writer will eventually reclaim. Callers must not
// mutate through it; mutation bypasses the operation log and forks the two
// slots permanently.
func (v *View[T]) Value() T {
	if v.released {
		panic("leftright: Value on released View")
	}
	return v.value
}

// Release unpins the view's slot. Idempotent.
func (v *View[T]) Release() {
	if v.released {
		return
	}
	v.released = true
	v.live.Exit(v.slot, v.token)
}

// Read returns a guarded view of the most recently published state.
//
// Algorithm:
//  1. Pin the slot the selector names (liveness entry protocol confirms the
//     selector did not move mid-entry)
//  2. Snapshot the slot value into the view
//
// The view always reflects a completed publish: the selector only ever flips
// after the standby slot is fully written, so a reader can observe each
// Refresh batch entirely or not at all, never a prefix of one.
//
// Two Reads on the same handle may return different states if a Refresh
// completed in between; one View is internally consistent for its lifetime.
func (r *ReadHandle[T, O]) Read() *View[T] {
	if r.closed.Load() {
		panic("leftright: Read on closed ReadHandle")
	}
	slot, token := r.c.live.Enter(&r.c.active)
	return &View[T]{
		value: r.c.slots[slot],
		slot:  slot,
		token: token,
		live:  r.c.live,
	}
}

// Do runs fn against the published state under a pin, releasing it when fn
// returns. Equivalent to Read/Release without allocating a View; fn must not
// retain its argument.
func (r *ReadHandle[T, O]) Do(fn func(T)) {
	if r.closed.Load() {
		panic("leftright: Do on closed ReadHandle")
	}
	slot, token := r.c.live.Enter(&r.c.active)
	defer r.c.live.Exit(slot, token)
	fn(r.c.slots[slot])
}

// Clone returns a new independent handle reading the same pair.
//
// Clones are unlimited and may read concurrently with each other and with
// the original. Closing one handle does not affect the others.
func (r *ReadHandle[T, O]) Clone() *ReadHandle[T, O] {
	if r.closed.Load() {
		panic("leftright: Clone on closed ReadHandle")
	}
	return &ReadHandle[T, O]{c: r.c}
}

// Close retires the handle. Views already taken remain valid until released;
// further Read, Do, or Clone calls panic. Idempotent.
func (r *ReadHandle[T, O]) Close() {
	r.closed.Store(true)
}
