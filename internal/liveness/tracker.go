// Copyright 2025 The leftright Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package liveness implements reader-liveness tracking for dual-slot values.
//
// The writer republishes by flipping an atomic slot selector and then waiting
// until every reader that entered under the old selector value has left. Only
// after that wait may the old slot be mutated again. This package provides
// that wait: readers pin the slot they are about to read, and the writer
// blocks on Sync until no pin on the retired slot remains.
//
// Two interchangeable trackers implement the same contract:
//   - CounterTracker: one ingress counter per slot (simplest, default)
//   - HazardTracker: a fixed table of CAS-claimed cells (lower contention)
//
// Both rely on the same entry protocol: load the selector, pin the named
// slot, then confirm the selector has not moved. A pin that survives the
// confirming load is ordered before any selector flip the writer performs
// afterwards, so the writer's post-flip scan cannot miss it.
package liveness

import "sync/atomic"

// Tracker is the contract between the reader entry path and the writer's
// publish barrier.
//
// Enter pins the slot currently named by sel and returns its index together
// with an implementation token that must be handed back to Exit unchanged.
// Exit retires the pin. Sync blocks until no pin taken on the given slot
// before the call remains.
//
// Correctness obligation: if a reader's Enter returned slot S before the
// writer flipped the selector away from S, then a Sync(S) started after the
// flip must not return until that reader calls Exit.
//
// Thread Safety: Enter and Exit are safe for concurrent calls from any
// number of goroutines. Sync is called by the single writer only.
type Tracker interface {
	Enter(sel *atomic.Uint32) (slot uint32, token uint64)
	Exit(slot uint32, token uint64)
	Sync(slot uint32)
}

const (
	// syncSpinTries is the number of busy iterations Sync performs before
	// it starts yielding the processor between polls. Readers hold views
	// for nanoseconds in the common case, so a short spin usually wins;
	// past that the writer is waiting on a descheduled reader and spinning
	// only burns the core.
	syncSpinTries = 32

	// cellPad pads each per-slot counter or hazard cell to a full cache
	// line (64 bytes) so reader traffic on one slot does not false-share
	// with the other.
	cellPad = 56
)
