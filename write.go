package leftright

// WriteHandle is the single writer of a handle pair.
//
// Writes buffer; nothing becomes visible to readers until Refresh. The
// handle is NOT safe for concurrent use: exactly one goroutine may call its
// methods at a time, and there is deliberately no way to obtain a second
// WriteHandle for the same pair.
//
// A panic escaping an Operand.Apply call during Refresh leaves the standby
// slot partially mutated with no way to resynchronize the pair; treat the
// pair as poisoned and discard both handles. The engine does not detect
// this. Validate operations before writing them.
type WriteHandle[T Operand[T, O], O any] struct {
	c *core[T, O]

	// stats are plain counters: only the writer goroutine touches them.
	stats WriteStats

	closed bool
	taken  bool
}

// WriteStats reports writer-side counters.
//
// Counters are maintained by the writer goroutine without synchronization,
// so GetStats is writer-goroutine-only like every other method.
type WriteStats struct {
	// Writes counts operations buffered via Write.
	Writes uint64

	// Refreshes counts completed publish cycles, including empty ones.
	Refreshes uint64

	// Published counts operations made visible across all refreshes.
	Published uint64
}

// Write buffers one operation.
//
// O(1) amortized append to the pending log; never blocks, never touches the
// slots, and is invisible to readers (including readers in this goroutine)
// until the next Refresh. There is no read-your-writes: a caller that needs
// to observe its own writes refreshes first.
func (w *WriteHandle[T, O]) Write(op O) {
	if w.closed {
		panic("leftright: Write on closed WriteHandle")
	}
	w.c.pending = append(w.c.pending, op)
	w.stats.Writes++
}

// Refresh publishes every operation written since the previous Refresh.
//
// This is the only point at which writes become visible. After it returns,
// all buffered operations are observable by every subsequent Read, atomically
// as one batch: no reader ever observes a proper subset.
//
// Refresh is the only blocking operation in the package (step 4 below), and
// it blocks only the writer. The wait is unbounded if some reader holds a
// view forever; bound view lifetimes to bound publish latency.
func (w *WriteHandle[T, O]) Refresh() {
	if w.closed {
		panic("leftright: Refresh on closed WriteHandle")
	}
	w.refresh()
}

func (w *WriteHandle[T, O]) refresh() {
	w.stats.Published += uint64(len(w.c.pending))
	w.stats.Refreshes++
	w.c.refresh()
}

// refresh runs the publish protocol. The exact ordering is what keeps reads
// lock-free and slot reuse safe:
//
//  1. Replay the settled log onto the standby slot. The standby lags the
//     active slot by exactly the previous batch; after this step both slots
//     hold the same state.
//  2. Replay the pending log onto the same slot. The standby now holds the
//     new state, while readers still see the active slot untouched.
//  3. Flip the selector. This atomic store is the publish point: readers
//     entering after it land on the freshly written slot.
//  4. Block until every view acquired under the old selector value has been
//     released. Only after this drain may the retired slot be written again,
//     which is exactly what step 1 of the NEXT refresh does.
//  5. Rotate the logs: pending becomes the new settled generation and the
//     pending log starts empty.
//
// One settled log is not optional bookkeeping. Replaying only the fresh
// batch (step 2) would leave the standby missing the previous batch; merging
// both generations into a single log would replay earlier operations twice
// on the same slot. Exactly two generations, each applied exactly once per
// slot, keep the slots equivalent.
func (c *core[T, O]) refresh() {
	active := c.active.Load()
	standby := 1 - active

	// Step 1: catch the standby up to the last published state.
	for _, op := range c.settled {
		c.slots[standby].Apply(op)
	}

	// Step 2: apply the new batch.
	for _, op := range c.pending {
		c.slots[standby].Apply(op)
	}

	// Step 3: publish. Readers entering from here on see the new state.
	c.active.Store(standby)

	// Step 4: drain readers of the retired slot.
	c.live.Sync(active)

	// Step 5: rotate generations. settled now aliases pending's backing
	// array, so pending must start from a nil slice rather than a
	// truncation of the same array; appends would clobber settled.
	c.settled = c.pending
	c.pending = nil
}

// Pending returns the number of buffered operations not yet published.
func (w *WriteHandle[T, O]) Pending() int {
	return len(w.c.pending)
}

// GetStats returns a copy of the writer-side counters.
func (w *WriteHandle[T, O]) GetStats() WriteStats {
	return w.stats
}

// Close publishes any buffered operations and retires the handle.
//
// After Close, Write and Refresh panic. Readers are unaffected: they keep
// reading the last published state for as long as they hold their handles.
// Close is idempotent.
func (w *WriteHandle[T, O]) Close() {
	if w.closed {
		return
	}
	if len(w.c.pending) > 0 {
		w.refresh()
	}
	w.closed = true
}

// IntoInner retires the handle and extracts a fully caught-up value.
//
// The returned value is the standby slot after two publish cycles: the
// first flushes any buffered operations, the second replays the settled
// generation so the standby matches the published state. After the second
// cycle's drain, no reader can pin that slot again (the selector points
// away and no further flip will occur), so the caller owns the returned
// value exclusively even while readers continue reading the active slot.
//
// Returns ok=false if the value was already extracted. Implies Close.
func (w *WriteHandle[T, O]) IntoInner() (T, bool) {
	if w.taken {
		var zero T
		return zero, false
	}
	w.refresh()
	w.refresh()
	w.closed = true
	w.taken = true
	return w.c.slots[1-w.c.active.Load()], true
}
