// Package evmap provides an eventually consistent map: one writer sets and
// deletes keys, any number of readers take lock-free snapshots, and changes
// become visible in batches on Refresh.
//
// This is the classic shape for read-mostly lookup tables (feature flags,
// routing tables, symbol interning): readers pay no lock on the hot path and
// tolerate the staleness window between refreshes.
//
//	w, r := evmap.New[string, int]()
//	w.Set("a", 1)
//	w.Refresh()
//	v, ok := r.Get("a") // 1, true
package evmap

import "github.com/kolkov/leftright"

// Map is the managed value.
//
// Map implements the engine's Operand contract; use the Writer/Reader pair
// from New rather than constructing handles by hand.
type Map[K comparable, V any] struct {
	entries map[K]V
}

type opKind uint8

const (
	opSet opKind = iota
	opDelete
	opClear
)

// Op is one map mutation. Values are created by Writer methods.
type Op[K comparable, V any] struct {
	kind opKind
	key  K
	val  V
}

// From builds a Map holding copies of the given entries. A nil src yields an
// empty map.
func From[K comparable, V any](src map[K]V) *Map[K, V] {
	m := &Map[K, V]{entries: make(map[K]V, len(src))}
	for k, v := range src {
		m.entries[k] = v
	}
	return m
}

// Duplicate returns an independent copy.
func (m *Map[K, V]) Duplicate() *Map[K, V] {
	return From(m.entries)
}

// Apply mutates the map in place.
func (m *Map[K, V]) Apply(op Op[K, V]) {
	switch op.kind {
	case opSet:
		m.entries[op.key] = op.val
	case opDelete:
		delete(m.entries, op.key)
	case opClear:
		// Reallocate rather than range-delete; published snapshots often
		// follow a clear with a full reload at a different size.
		m.entries = make(map[K]V)
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a copy of the entries.
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// New creates a writer/reader pair over an empty map.
func New[K comparable, V any]() (*Writer[K, V], *Reader[K, V]) {
	return NewWithOptions[K, V](leftright.Options{})
}

// NewWithOptions is New with engine configuration (liveness tracker choice).
func NewWithOptions[K comparable, V any](opts leftright.Options) (*Writer[K, V], *Reader[K, V]) {
	w, r := leftright.NewWithOptions[*Map[K, V], Op[K, V]](From[K, V](nil), opts)
	return &Writer[K, V]{h: w}, &Reader[K, V]{h: r}
}

// Writer is the single writer of an eventually consistent map.
//
// All mutations buffer until Refresh. Not safe for concurrent use.
type Writer[K comparable, V any] struct {
	h *leftright.WriteHandle[*Map[K, V], Op[K, V]]
}

// Set buffers an upsert of key to val.
func (w *Writer[K, V]) Set(key K, val V) {
	w.h.Write(Op[K, V]{kind: opSet, key: key, val: val})
}

// Delete buffers removal of key. Deleting an absent key is a no-op.
func (w *Writer[K, V]) Delete(key K) {
	w.h.Write(Op[K, V]{kind: opDelete, key: key})
}

// Clear buffers removal of all entries.
func (w *Writer[K, V]) Clear() {
	w.h.Write(Op[K, V]{kind: opClear})
}

// Refresh publishes all buffered mutations as one batch.
func (w *Writer[K, V]) Refresh() {
	w.h.Refresh()
}

// Pending returns the number of buffered, unpublished mutations.
func (w *Writer[K, V]) Pending() int {
	return w.h.Pending()
}

// Stats returns the writer-side counters.
func (w *Writer[K, V]) Stats() leftright.WriteStats {
	return w.h.GetStats()
}

// Close publishes any buffered mutations and retires the writer.
func (w *Writer[K, V]) Close() {
	w.h.Close()
}

// IntoInner retires the writer and extracts the fully caught-up entries.
// The returned map is owned exclusively by the caller.
func (w *Writer[K, V]) IntoInner() (map[K]V, bool) {
	m, ok := w.h.IntoInner()
	if !ok {
		return nil, false
	}
	return m.entries, true
}

// Reader reads the published state. Safe for concurrent use; Clone for
// per-goroutine handles.
type Reader[K comparable, V any] struct {
	h *leftright.ReadHandle[*Map[K, V], Op[K, V]]
}

// Get returns the published value stored under key.
func (r *Reader[K, V]) Get(key K) (V, bool) {
	var (
		v  V
		ok bool
	)
	r.h.Do(func(m *Map[K, V]) { v, ok = m.Get(key) })
	return v, ok
}

// Len returns the published entry count.
func (r *Reader[K, V]) Len() int {
	var n int
	r.h.Do(func(m *Map[K, V]) { n = m.Len() })
	return n
}

// Keys returns the published keys in unspecified order.
func (r *Reader[K, V]) Keys() []K {
	var out []K
	r.h.Do(func(m *Map[K, V]) { out = m.Keys() })
	return out
}

// Snapshot returns a copy of the published entries.
func (r *Reader[K, V]) Snapshot() map[K]V {
	var out map[K]V
	r.h.Do(func(m *Map[K, V]) { out = m.Snapshot() })
	return out
}

// Do runs fn against the published map under a read pin. fn must not mutate
// the map or retain it.
func (r *Reader[K, V]) Do(fn func(*Map[K, V])) {
	r.h.Do(fn)
}

// Read returns a guarded view for multi-step access; release it promptly.
func (r *Reader[K, V]) Read() *leftright.View[*Map[K, V]] {
	return r.h.Read()
}

// Clone returns an independent reader over the same map.
func (r *Reader[K, V]) Clone() *Reader[K, V] {
	return &Reader[K, V]{h: r.h.Clone()}
}

// Close retires the reader. Other clones are unaffected.
func (r *Reader[K, V]) Close() {
	r.h.Close()
}
