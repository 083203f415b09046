// Package leftright provides eventually consistent values for single-writer,
// multi-reader workloads.
//
// A handle pair manages two copies of one value behind an atomic slot
// selector. Readers take lock-free snapshots of the slot the selector names;
// the writer buffers operations and publishes them by replaying the buffer
// onto the idle slot and flipping the selector. Readers never wait for the
// writer and never wait for each other; the writer pays the entire
// coordination cost at publish time.
//
// # Quick Start
//
// Declare the operation alphabet and the Duplicate/Apply pair for your type,
// then split it into a writer and a reader:
//
//	type Counter struct{ hits map[string]int }
//
//	type Hit struct{ Key string }
//
//	func (c *Counter) Duplicate() *Counter {
//		d := &Counter{hits: make(map[string]int, len(c.hits))}
//		for k, v := range c.hits {
//			d.hits[k] = v
//		}
//		return d
//	}
//
//	func (c *Counter) Apply(op Hit) { c.hits[op.Key]++ }
//
//	w, r := leftright.New[*Counter, Hit](&Counter{hits: map[string]int{}})
//
//	w.Write(Hit{Key: "a"})   // buffered, invisible
//	w.Refresh()              // published
//
//	v := r.Read()
//	total := v.Value().hits["a"]
//	v.Release()
//
// The evslice and evmap packages in this module wrap the engine with ready
// alphabets for slices and maps.
//
// # How It Works
//
// The pair keeps two full copies of the value. At any moment one copy is
// active (readers snapshot it) and one is standby (the writer owns it).
// Write appends to a pending log and returns; nothing touches either copy.
// Refresh replays the logs onto the standby, flips the selector, waits for
// readers of the retired copy to leave, and rotates the logs.
//
// Operations are therefore applied twice, once per copy, exactly one
// generation apart. The settled log carries the batch the previous Refresh
// published so the standby can catch up before the new batch lands on it.
// This is why Apply must be deterministic: the two copies only stay
// equivalent if replaying the same operations produces the same state.
//
// Readers synchronize with the writer only through the selector and the
// liveness tracker. Taking a view is a selector load plus a pin; no mutex,
// no channel, no allocation on the Do path.
//
// # Consistency Model
//
// Reads are eventually consistent with bounded, caller-controlled staleness:
// a view reflects every batch published before the view was taken and
// nothing newer. A batch becomes visible atomically; no reader ever observes
// part of one. There is no read-your-writes: the writing goroutine reads the
// same published state as everyone else until it refreshes.
//
// # Choosing A Tracker
//
// The liveness tracker is how the writer learns the retired slot is free.
// TrackerCounter (default) keeps one counter per slot: lowest publish cost,
// but every reader of a slot bumps the same cache line. TrackerHazard gives
// each view its own cell in a fixed table: reader entry scales further, and
// the writer scans the table at publish time. Switch with Options; measure
// with this module's benchmarks before assuming either way.
//
// # Writer Blocking
//
// Refresh is the only blocking call in the package. It waits, after flipping
// the selector, for views of the previous slot to be released. A view held
// indefinitely therefore stalls the writer indefinitely; this is the
// documented cost of reads that never wait. Keep views short-lived, or use
// Do, which scopes the pin to a callback.
//
// # Links
//
// Left-Right technique (Ramalhete & Correia, 2015):
// https://hal.archives-ouvertes.fr/hal-01207881
//
// Project repository:
// https://github.com/kolkov/leftright
//
// Documentation:
// https://pkg.go.dev/github.com/kolkov/leftright
package leftright
