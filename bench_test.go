// Copyright 2025 The leftright Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package leftright

import (
	"sync"
	"sync/atomic"
	"testing"
)

// Benchmarks compare the two read paths, the publish cycle, and the obvious
// alternative (RWMutex around a shared value). Run the parallel pairs with
// increasing -cpu to see where the mutex baseline falls behind:
//
//	go test -bench 'Parallel' -cpu 1,4,8,16 .

func benchPair(kind TrackerKind) (*WriteHandle[*intsBox, intsOp], *ReadHandle[*intsBox, intsOp]) {
	w, r := NewWithOptions[*intsBox, intsOp](newIntsBox(1, 2, 3, 4), Options{Tracker: kind})
	w.Write(push(5))
	w.Refresh()
	return w, r
}

// BenchmarkRead measures the guarded snapshot path: pin, view allocation,
// release.
func BenchmarkRead(b *testing.B) {
	_, r := benchPair(TrackerCounter)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := r.Read()
		_ = v.Value()
		v.Release()
	}
}

// BenchmarkDo measures the callback read path: pin, callback, unpin, no
// view allocation.
func BenchmarkDo(b *testing.B) {
	_, r := benchPair(TrackerCounter)

	var sink int
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Do(func(box *intsBox) { sink = box.vals[0] })
	}
	_ = sink
}

// BenchmarkWrite measures the buffered append. The log is reset each
// refresh, so the steady-state cost is the amortized append.
func BenchmarkWrite(b *testing.B) {
	w, _ := benchPair(TrackerCounter)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Write(push(i))
		if w.Pending() >= 1024 {
			b.StopTimer()
			w.Refresh()
			b.StartTimer()
		}
	}
}

// BenchmarkRefresh measures the full publish cycle with a one-operation
// batch: two replays, the flip, an uncontended drain, and log rotation.
func BenchmarkRefresh(b *testing.B) {
	w, _ := benchPair(TrackerCounter)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Write(removeAt(100)) // deterministic no-op keeps state small
		w.Refresh()
	}
}

// BenchmarkDoParallelCounter measures concurrent reads through the counter
// tracker; every reader bumps the same per-slot cache line.
func BenchmarkDoParallelCounter(b *testing.B) {
	_, r := benchPair(TrackerCounter)
	benchDoParallel(b, r)
}

// BenchmarkDoParallelHazard measures concurrent reads through the hazard
// tracker; readers claim disjoint cells.
func BenchmarkDoParallelHazard(b *testing.B) {
	_, r := benchPair(TrackerHazard)
	benchDoParallel(b, r)
}

func benchDoParallel(b *testing.B, r *ReadHandle[*intsBox, intsOp]) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		h := r.Clone()
		var sink int
		for pb.Next() {
			h.Do(func(box *intsBox) { sink = box.vals[0] })
		}
		_ = sink
	})
}

// BenchmarkRWMutexReadParallel is the baseline: the same read workload
// against a plain RWMutex-guarded value.
func BenchmarkRWMutexReadParallel(b *testing.B) {
	var mu sync.RWMutex
	vals := []int{1, 2, 3, 4, 5}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		var sink int
		for pb.Next() {
			mu.RLock()
			sink = vals[0]
			mu.RUnlock()
		}
		_ = sink
	})
}

// BenchmarkReadDuringChurn measures reads while a background writer
// publishes continuously, the workload this package exists for.
func BenchmarkReadDuringChurn(b *testing.B) {
	w, r := benchPair(TrackerCounter)

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			w.Write(removeAt(100))
			w.Refresh()
		}
	}()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		h := r.Clone()
		var sink int
		for pb.Next() {
			h.Do(func(box *intsBox) { sink = box.vals[0] })
		}
		_ = sink
	})
	stop.Store(true)
	wg.Wait()
}
