// Copyright 2025 The leftright Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package liveness

import (
	"runtime"
	"sync/atomic"
)

// CounterTracker tracks reader liveness with one ingress counter per slot.
//
// This is the simplest tracker that satisfies the contract: Enter increments
// the counter of the slot the selector names, Exit decrements it, and Sync
// waits for the retired slot's counter to drain to zero.
//
// Architecture:
//   - Two atomic counters, one per slot, each padded to its own cache line
//   - Entry protocol: load selector, increment, confirm selector unchanged,
//     otherwise undo and retry
//   - Sync: poll the counter; busy-spin briefly, then yield between polls
//
// Performance characteristics:
//   - Enter/Exit: one atomic add each (~5-10ns uncontended)
//   - All readers of a slot contend on a single cache line, so throughput
//     flattens past ~8 hot readers; HazardTracker spreads that traffic
//
// Thread Safety: Enter and Exit are safe for concurrent use. Sync must only
// be called by the single writer.
type CounterTracker struct {
	// refs holds the per-slot ingress counts. The padding keeps the two
	// counters on separate cache lines.
	refs [2]struct {
		n atomic.Int64
		_ [cellPad]byte
	}
}

// NewCounterTracker creates a counter-based liveness tracker.
//
// The zero value is also ready to use; the constructor exists for symmetry
// with NewHazardTracker.
func NewCounterTracker() *CounterTracker {
	return &CounterTracker{}
}

// Enter pins the slot currently named by sel.
//
// Algorithm (entry-confirm-retry):
//  1. Load the selector → candidate slot
//  2. Increment that slot's counter (the pin)
//  3. Load the selector again; if unchanged, the pin stands
//  4. Otherwise undo the increment and retry from step 1
//
// The confirming load in step 3 is what makes the pin safe: if it still
// observes the old value, the increment is ordered before the writer's flip,
// and the writer's post-flip Sync will see a nonzero count. If the flip won,
// the reader retries and lands on the new slot.
//
// The returned token is always zero; this tracker needs no per-pin state.
//
//go:nosplit
func (t *CounterTracker) Enter(sel *atomic.Uint32) (uint32, uint64) {
	for {
		slot := sel.Load()
		t.refs[slot].n.Add(1)
		if sel.Load() == slot {
			return slot, 0
		}
		// Lost the race with a flip: undo and land on the new slot.
		t.refs[slot].n.Add(-1)
	}
}

// Exit retires a pin taken by Enter.
//
//go:nosplit
func (t *CounterTracker) Exit(slot uint32, _ uint64) {
	t.refs[slot].n.Add(-1)
}

// Sync blocks until no pin on the given slot remains.
//
// Called by the writer after flipping the selector away from slot. New
// readers cannot pin the slot anymore (their confirming load sees the new
// selector), so the count is strictly draining and the wait terminates as
// soon as current readers release.
//
// Waits busy-spin for syncSpinTries polls, then yield between polls so a
// descheduled reader can run.
func (t *CounterTracker) Sync(slot uint32) {
	for tries := 0; t.refs[slot].n.Load() != 0; tries++ {
		if tries >= syncSpinTries {
			runtime.Gosched()
		}
	}
}

// Pinned returns the current pin count for a slot.
//
// Diagnostics only; the value is stale the moment it is returned.
func (t *CounterTracker) Pinned(slot uint32) int64 {
	return t.refs[slot].n.Load()
}

// Reset clears both counters.
//
// Testing and reinitialization only. NOT safe while readers are active.
func (t *CounterTracker) Reset() {
	t.refs[0].n.Store(0)
	t.refs[1].n.Store(0)
}
