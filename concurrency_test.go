// Copyright 2025 The leftright Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package leftright

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// churnBox is a self-checking value for concurrency tests: every published
// state derives its payload and checksum from seq alone, so any torn or
// half-applied state fails consistent().
type churnBox struct {
	seq     uint64
	payload [32]uint64
	sum     uint64
}

type churnOp struct{}

func (b *churnBox) Duplicate() *churnBox {
	d := *b
	return &d
}

func (b *churnBox) Apply(churnOp) {
	b.seq++
	var sum uint64
	for i := range b.payload {
		b.payload[i] = b.seq * uint64(i+3)
		sum += b.payload[i]
	}
	b.sum = sum
}

func (b *churnBox) consistent() bool {
	var sum uint64
	for i := range b.payload {
		if b.payload[i] != b.seq*uint64(i+3) {
			return false
		}
		sum += b.payload[i]
	}
	return sum == b.sum
}

// TestNoTornReads publishes a few hundred self-checking states under
// constant reader traffic. Every observed state must be internally
// consistent: readers may lag, but they never see half a batch.
func TestNoTornReads(t *testing.T) {
	for _, kind := range []TrackerKind{TrackerCounter, TrackerHazard} {
		t.Run(kind.String(), func(t *testing.T) {
			w, r := NewWithOptions[*churnBox, churnOp](&churnBox{}, Options{Tracker: kind})

			const readers = 4
			rounds := uint64(400)
			if testing.Short() {
				rounds = 40
			}

			var (
				stop atomic.Bool
				torn atomic.Uint64
				wg   sync.WaitGroup
			)

			for i := 0; i < readers; i++ {
				wg.Add(1)
				go func(h *ReadHandle[*churnBox, churnOp]) {
					defer wg.Done()
					for !stop.Load() {
						h.Do(func(b *churnBox) {
							if !b.consistent() {
								torn.Add(1)
							}
						})
					}
				}(r.Clone())
			}

			for i := uint64(0); i < rounds; i++ {
				w.Write(churnOp{})
				w.Refresh()
			}
			stop.Store(true)
			wg.Wait()

			if n := torn.Load(); n != 0 {
				t.Fatalf("observed %d torn reads", n)
			}

			v := r.Read()
			defer v.Release()
			if got := v.Value().seq; got != rounds {
				t.Fatalf("final seq = %d, want %d", got, rounds)
			}
		})
	}
}

// TestMonotonicVisibility tests that each reader observes published batches
// as a non-decreasing prefix: seq values never go backwards on one handle.
func TestMonotonicVisibility(t *testing.T) {
	w, r := New[*churnBox, churnOp](&churnBox{})

	const readers = 4
	rounds := uint64(300)
	if testing.Short() {
		rounds = 30
	}

	var (
		stop       atomic.Bool
		regression atomic.Uint64
		wg         sync.WaitGroup
	)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(h *ReadHandle[*churnBox, churnOp]) {
			defer wg.Done()
			var last uint64
			for !stop.Load() {
				h.Do(func(b *churnBox) {
					if b.seq < last {
						regression.Add(1)
					}
					last = b.seq
				})
			}
		}(r.Clone())
	}

	for i := uint64(0); i < rounds; i++ {
		w.Write(churnOp{})
		w.Refresh()
	}
	stop.Store(true)
	wg.Wait()

	if n := regression.Load(); n != 0 {
		t.Fatalf("observed %d backwards reads", n)
	}
}

// TestViewHeldAcrossRefresh pins the published slot, then refreshes from
// another goroutine. The refresh must publish its batch (fresh reads see the
// new state) and then block; the held view must keep reading the old state
// until released.
func TestViewHeldAcrossRefresh(t *testing.T) {
	w, r := New[*intsBox, intsOp](newIntsBox(1))
	fresh := r.Clone()

	held := r.Read()

	done := make(chan struct{})
	go func() {
		w.Write(push(2))
		w.Refresh()
		close(done)
	}()

	// The flip lands before the drain, so fresh reads converge on the new
	// state while the refresh is still blocked on the held view.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := snapshot(fresh); equalInts(got, []int{1, 2}) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new state never became visible to fresh reads")
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
		t.Fatal("Refresh returned while a view of the retired slot was held")
	case <-time.After(20 * time.Millisecond):
	}

	if got, want := held.Value().vals, []int{1}; !equalInts(got, want) {
		t.Errorf("held view reads %v, want the pre-refresh state %v", got, want)
	}

	held.Release()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh did not return after the view was released")
	}
}

// TestManyClones runs a clone per goroutine against one writer, with a
// reader count well past the hazard table size to force the overflow path.
func TestManyClones(t *testing.T) {
	w, r := NewWithOptions[*churnBox, churnOp](&churnBox{}, Options{
		Tracker:     TrackerHazard,
		HazardCells: 4,
	})

	const readers = 16
	rounds := uint64(100)
	if testing.Short() {
		rounds = 10
	}

	var (
		stop atomic.Bool
		torn atomic.Uint64
		wg   sync.WaitGroup
	)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(h *ReadHandle[*churnBox, churnOp]) {
			defer wg.Done()
			for !stop.Load() {
				v := h.Read()
				if !v.Value().consistent() {
					torn.Add(1)
				}
				v.Release()
			}
			h.Close()
		}(r.Clone())
	}

	for i := uint64(0); i < rounds; i++ {
		w.Write(churnOp{})
		w.Refresh()
	}
	stop.Store(true)
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Fatalf("observed %d torn reads", n)
	}
}
