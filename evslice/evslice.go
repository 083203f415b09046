// Package evslice provides an eventually consistent slice: one writer
// appends and removes, any number of readers take lock-free snapshots, and
// changes become visible in batches on Refresh.
//
// The package wraps the leftright engine with a ready-made operation
// alphabet (push, remove-at, clear), so callers never spell out the engine's
// type parameters:
//
//	w, r := evslice.New[string]()
//	w.Push("a")
//	w.Push("b")
//	w.Refresh()
//	fmt.Println(r.Snapshot()) // [a b]
package evslice

import "github.com/kolkov/leftright"

// Slice is the managed value: an ordered list of E.
//
// Slice implements the engine's Operand contract; use the Writer/Reader pair
// from New rather than constructing handles by hand.
type Slice[E any] struct {
	elems []E
}

type opKind uint8

const (
	opPush opKind = iota
	opRemoveAt
	opClear
)

// Op is one slice mutation. Values are created by Writer methods.
type Op[E any] struct {
	kind  opKind
	elem  E
	index int
}

// From builds a Slice holding copies of the given elements.
func From[E any](elems ...E) *Slice[E] {
	s := &Slice[E]{elems: make([]E, len(elems))}
	copy(s.elems, elems)
	return s
}

// Duplicate returns an independent copy.
func (s *Slice[E]) Duplicate() *Slice[E] {
	return From(s.elems...)
}

// Apply mutates the slice in place. Remove of an out-of-range index is a
// no-op so that replaying a log never depends on when bounds were checked.
func (s *Slice[E]) Apply(op Op[E]) {
	switch op.kind {
	case opPush:
		s.elems = append(s.elems, op.elem)
	case opRemoveAt:
		if op.index >= 0 && op.index < len(s.elems) {
			s.elems = append(s.elems[:op.index], s.elems[op.index+1:]...)
		}
	case opClear:
		s.elems = s.elems[:0]
	}
}

// Len returns the number of elements.
func (s *Slice[E]) Len() int {
	return len(s.elems)
}

// At returns the element at index i, or ok=false when out of range.
func (s *Slice[E]) At(i int) (E, bool) {
	if i < 0 || i >= len(s.elems) {
		var zero E
		return zero, false
	}
	return s.elems[i], true
}

// Snapshot returns a copy of the elements.
func (s *Slice[E]) Snapshot() []E {
	out := make([]E, len(s.elems))
	copy(out, s.elems)
	return out
}

// New creates a writer/reader pair over a slice seeded with the given
// elements.
func New[E any](initial ...E) (*Writer[E], *Reader[E]) {
	return NewWithOptions[E](leftright.Options{}, initial...)
}

// NewWithOptions is New with engine configuration (liveness tracker choice).
func NewWithOptions[E any](opts leftright.Options, initial ...E) (*Writer[E], *Reader[E]) {
	w, r := leftright.NewWithOptions[*Slice[E], Op[E]](From(initial...), opts)
	return &Writer[E]{h: w}, &Reader[E]{h: r}
}

// Writer is the single writer of an eventually consistent slice.
//
// All mutations buffer until Refresh. Not safe for concurrent use.
type Writer[E any] struct {
	h *leftright.WriteHandle[*Slice[E], Op[E]]
}

// Push buffers an append of elem.
func (w *Writer[E]) Push(elem E) {
	w.h.Write(Op[E]{kind: opPush, elem: elem})
}

// RemoveAt buffers removal of the element at index i, evaluated against the
// state at publish time. An index out of range at that point is a no-op.
func (w *Writer[E]) RemoveAt(i int) {
	w.h.Write(Op[E]{kind: opRemoveAt, index: i})
}

// Clear buffers removal of all elements.
func (w *Writer[E]) Clear() {
	w.h.Write(Op[E]{kind: opClear})
}

// Refresh publishes all buffered mutations as one batch.
func (w *Writer[E]) Refresh() {
	w.h.Refresh()
}

// Pending returns the number of buffered, unpublished mutations.
func (w *Writer[E]) Pending() int {
	return w.h.Pending()
}

// Stats returns the writer-side counters.
func (w *Writer[E]) Stats() leftright.WriteStats {
	return w.h.GetStats()
}

// Close publishes any buffered mutations and retires the writer.
func (w *Writer[E]) Close() {
	w.h.Close()
}

// IntoInner retires the writer and extracts the fully caught-up elements.
// The returned backing slice is owned exclusively by the caller.
func (w *Writer[E]) IntoInner() ([]E, bool) {
	s, ok := w.h.IntoInner()
	if !ok {
		return nil, false
	}
	return s.elems, true
}

// Reader reads the published state. Safe for concurrent use; Clone for
// per-goroutine handles.
type Reader[E any] struct {
	h *leftright.ReadHandle[*Slice[E], Op[E]]
}

// Len returns the published length.
func (r *Reader[E]) Len() int {
	var n int
	r.h.Do(func(s *Slice[E]) { n = s.Len() })
	return n
}

// At returns the published element at index i, or ok=false when out of
// range.
func (r *Reader[E]) At(i int) (E, bool) {
	var (
		e  E
		ok bool
	)
	r.h.Do(func(s *Slice[E]) { e, ok = s.At(i) })
	return e, ok
}

// Snapshot returns a copy of the published elements.
func (r *Reader[E]) Snapshot() []E {
	var out []E
	r.h.Do(func(s *Slice[E]) { out = s.Snapshot() })
	return out
}

// Do runs fn against the published slice under a read pin. fn must not
// mutate the slice or retain it.
func (r *Reader[E]) Do(fn func(*Slice[E])) {
	r.h.Do(fn)
}

// Read returns a guarded view for multi-step access; release it promptly.
func (r *Reader[E]) Read() *leftright.View[*Slice[E]] {
	return r.h.Read()
}

// Clone returns an independent reader over the same slice.
func (r *Reader[E]) Clone() *Reader[E] {
	return &Reader[E]{h: r.h.Clone()}
}

// Close retires the reader. Other clones are unaffected.
func (r *Reader[E]) Close() {
	r.h.Close()
}
