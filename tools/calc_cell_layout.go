//go:build ignore
// +build ignore

// This tool verifies the cache-line layout of the liveness tracker cells.
// Run with: go run tools/calc_cell_layout.go
//
// Both trackers pad their per-slot state so that concurrent readers touch
// disjoint cache lines. The padding constants live in internal/liveness and
// assume a 64-byte line; this tool replicates the structs and prints their
// actual size and alignment so a change to the counters' field layout that
// silently breaks the padding shows up as a number, not a benchmark
// regression.
package main

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// cellPad mirrors internal/liveness.cellPad.
const cellPad = 56

// counterCell mirrors the per-slot element of CounterTracker.refs.
type counterCell struct {
	n atomic.Int64
	_ [cellPad]byte
}

// hazardCell mirrors internal/liveness.hazardCell.
type hazardCell struct {
	claim atomic.Uint64
	_     [cellPad]byte
}

const cacheLine = 64

func main() {
	fmt.Println("Liveness cell layout check")
	fmt.Println("==========================")
	fmt.Println()

	checkCell("counterCell", unsafe.Sizeof(counterCell{}), unsafe.Alignof(counterCell{}))
	checkCell("hazardCell", unsafe.Sizeof(hazardCell{}), unsafe.Alignof(hazardCell{}))

	fmt.Println()
	fmt.Printf("Target line size: %d bytes\n", cacheLine)

	var pair [2]counterCell
	spacing := uintptr(unsafe.Pointer(&pair[1].n)) - uintptr(unsafe.Pointer(&pair[0].n))
	fmt.Printf("Slot counter spacing: %d bytes apart\n", spacing)
}

func checkCell(name string, size, align uintptr) {
	status := "OK"
	if size%cacheLine != 0 {
		status = fmt.Sprintf("BAD: not a multiple of %d, adjacent cells share a line", cacheLine)
	}
	fmt.Printf("%-12s size=%-3d align=%-2d %s\n", name, size, align, status)
}
