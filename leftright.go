// Package leftright provides eventually consistent single-writer,
// multi-reader values.
//
// See doc.go for detailed documentation and examples.
package leftright

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/leftright/internal/liveness"
)

// Operand is the capability contract a value type must satisfy to be managed
// by this package. The engine never inspects the value or its operations; it
// only duplicates the value at construction and replays operations onto it.
//
// Duplicate returns an independent deep copy: no mutation of the original may
// be observable through the copy, and vice versa. It is called exactly twice,
// both at construction time.
//
// Apply mutates the value in place. It must be deterministic with respect to
// value state: two copies in equal states that apply the same operations in
// the same order end in equal states. Every operation is applied exactly
// twice over a pair's lifetime, once per slot, and the equivalence of the two
// slots depends on nothing else. Apply must not depend on external state
// (time, randomness, I/O) and must not retain the operation after returning.
//
// Apply has no error return on purpose: a failed mutation cannot be rolled
// back, and an operation that fails on one slot but not the other would fork
// the slots permanently. Validate operations before Write; a panic out of
// Apply escapes Refresh and leaves the pair unusable.
//
// T is normally a pointer type (or contains reference types) so that Apply
// can mutate through the receiver.
type Operand[T, O any] interface {
	Duplicate() T
	Apply(op O)
}

// TrackerKind selects the reader-liveness mechanism guarding slot reuse.
type TrackerKind uint8

const (
	// TrackerCounter tracks readers with one ingress counter per slot.
	// Simplest and the default; all readers of a slot share a cache line.
	TrackerCounter TrackerKind = iota

	// TrackerHazard tracks each view in its own CAS-claimed cell so
	// concurrent readers touch disjoint cache lines. Better behavior at
	// high reader counts, at the cost of a table scan per publish.
	TrackerHazard
)

// String returns the flag-style name of the tracker kind.
func (k TrackerKind) String() string {
	switch k {
	case TrackerCounter:
		return "counter"
	case TrackerHazard:
		return "hazard"
	default:
		return fmt.Sprintf("TrackerKind(%d)", uint8(k))
	}
}

// ParseTrackerKind converts a flag-style name ("counter", "hazard") into a
// TrackerKind.
func ParseTrackerKind(s string) (TrackerKind, error) {
	switch s {
	case "counter":
		return TrackerCounter, nil
	case "hazard":
		return TrackerHazard, nil
	default:
		return 0, fmt.Errorf("unknown tracker kind %q (want counter or hazard)", s)
	}
}

// Options configures a handle pair beyond the defaults.
//
// Usage:
//
//	// Default: counter-based liveness tracking
//	w, r := leftright.New[*S, Op](initial)
//
//	// Hazard-cell tracking sized for ~512 simultaneous views
//	w, r := leftright.NewWithOptions[*S, Op](initial, leftright.Options{
//	    Tracker:     leftright.TrackerHazard,
//	    HazardCells: 512,
//	})
type Options struct {
	// Tracker selects the liveness mechanism. Default: TrackerCounter.
	Tracker TrackerKind

	// HazardCells sizes the hazard-cell table (TrackerHazard only).
	// Rounded up to a power of two; zero means the package default.
	HazardCells int
}

// core is the state shared by one WriteHandle and all ReadHandle clones.
type core[T Operand[T, O], O any] struct {
	// slots are the two independent copies of the value. The selector
	// names the active (read) slot; the other is the standby the writer
	// replays logs onto. A slot is only ever mutated while no reader can
	// hold a view of it.
	slots [2]T

	// active is the slot selector. The atomic store that flips it is the
	// publish point; the load in the reader entry path pairs with it.
	active atomic.Uint32

	// settled is the previous generation's batch: already visible to
	// readers, not yet replayed onto the current standby. pending buffers
	// operations written since the last publish. Both are owned by the
	// writer; readers never touch them.
	settled []O
	pending []O

	// live guards slot reuse: the writer's publish path blocks on it
	// until no reader of the retired slot remains.
	live liveness.Tracker
}

// New creates a handle pair managing copies of the given initial value.
//
// Both slots are cloned from initial via Duplicate, so the caller keeps
// ownership of the value it passed in; later mutations of it are invisible
// to the pair.
//
// Type parameters are explicit at call sites because O appears only in the
// constraint:
//
//	w, r := leftright.New[*Counter, CounterOp](NewCounter())
//
// The returned WriteHandle is the single writer; it must not be shared
// across goroutines without external serialization. The ReadHandle may be
// used from any number of goroutines and cloned freely.
func New[T Operand[T, O], O any](initial T) (*WriteHandle[T, O], *ReadHandle[T, O]) {
	return NewWithOptions[T, O](initial, Options{})
}

// NewWithOptions is New with explicit configuration.
func NewWithOptions[T Operand[T, O], O any](initial T, opts Options) (*WriteHandle[T, O], *ReadHandle[T, O]) {
	var live liveness.Tracker
	switch opts.Tracker {
	case TrackerHazard:
		live = liveness.NewHazardTracker(opts.HazardCells)
	default:
		live = liveness.NewCounterTracker()
	}

	c := &core[T, O]{live: live}
	c.slots[0] = initial.Duplicate()
	c.slots[1] = initial.Duplicate()
	// Selector starts at slot 0; both slots are equal until the first
	// publish, so the choice is arbitrary.

	return &WriteHandle[T, O]{c: c}, &ReadHandle[T, O]{c: c}
}
