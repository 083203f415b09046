package leftright_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kolkov/leftright"
)

// Inventory is the example value type: item counts mutated by Add
// operations.
type Inventory struct {
	counts map[string]int
}

// Add is the only operation in the example alphabet.
type Add struct {
	Item string
	N    int
}

func NewInventory() *Inventory {
	return &Inventory{counts: make(map[string]int)}
}

// Duplicate returns an independent copy.
func (inv *Inventory) Duplicate() *Inventory {
	d := NewInventory()
	for k, v := range inv.counts {
		d.counts[k] = v
	}
	return d
}

// Apply mutates the inventory in place.
func (inv *Inventory) Apply(op Add) {
	inv.counts[op.Item] += op.N
}

// Example demonstrates buffered writes: nothing is visible until Refresh
// publishes the batch.
func Example() {
	w, r := leftright.New[*Inventory, Add](NewInventory())
	defer w.Close()

	w.Write(Add{Item: "bolt", N: 3})

	r.Do(func(inv *Inventory) {
		fmt.Println("before refresh:", inv.counts["bolt"])
	})

	w.Refresh()

	r.Do(func(inv *Inventory) {
		fmt.Println("after refresh:", inv.counts["bolt"])
	})

	// Output:
	// before refresh: 0
	// after refresh: 3
}

// ExampleReadHandle_Read demonstrates the guarded view: the snapshot stays
// stable for the view's lifetime even while new writes are buffered.
func ExampleReadHandle_Read() {
	w, r := leftright.New[*Inventory, Add](NewInventory())
	defer w.Close()

	w.Write(Add{Item: "nut", N: 5})
	w.Refresh()

	v := r.Read()
	w.Write(Add{Item: "nut", N: 100}) // buffered, not visible to v
	fmt.Println(v.Value().counts["nut"])
	v.Release()

	// Output:
	// 5
}

// ExampleReadHandle_Clone demonstrates one handle per goroutine, all
// observing the same published state.
func ExampleReadHandle_Clone() {
	w, r := leftright.New[*Inventory, Add](NewInventory())
	defer w.Close()

	w.Write(Add{Item: "bolt", N: 2})
	w.Write(Add{Item: "nut", N: 5})
	w.Refresh()

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(h *leftright.ReadHandle[*Inventory, Add]) {
			defer wg.Done()
			h.Do(func(inv *Inventory) {
				total.Add(int64(inv.counts["bolt"] + inv.counts["nut"]))
			})
		}(r.Clone())
	}
	wg.Wait()

	fmt.Println("sum over 4 readers:", total.Load())

	// Output:
	// sum over 4 readers: 28
}

// ExampleWriteHandle_IntoInner demonstrates final value extraction: buffered
// operations are flushed and the caught-up value is handed over.
func ExampleWriteHandle_IntoInner() {
	w, _ := leftright.New[*Inventory, Add](NewInventory())

	w.Write(Add{Item: "bolt", N: 1})

	inv, ok := w.IntoInner()
	fmt.Println(ok, inv.counts["bolt"])

	_, ok = w.IntoInner()
	fmt.Println(ok)

	// Output:
	// true 1
	// false
}

// ExampleNewWithOptions demonstrates selecting the hazard-cell liveness
// tracker for read-heavy deployments.
func ExampleNewWithOptions() {
	w, r := leftright.NewWithOptions[*Inventory, Add](NewInventory(), leftright.Options{
		Tracker:     leftright.TrackerHazard,
		HazardCells: 256,
	})
	defer w.Close()

	w.Write(Add{Item: "washer", N: 7})
	w.Refresh()

	v := r.Read()
	fmt.Println(v.Value().counts["washer"])
	v.Release()

	// Output:
	// 7
}
