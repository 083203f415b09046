package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kolkov/leftright"
	"github.com/kolkov/leftright/evslice"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	// Seq numbers steps from 1 in script order.
	Seq int `json:"seq"`

	// Kind is "write", "refresh", or "read".
	Kind string `json:"kind"`

	// Op qualifies writes: "push", "remove_at", or "clear".
	Op string `json:"op,omitempty"`

	// Value is the pushed value (push writes only).
	Value *int64 `json:"value,omitempty"`

	// Index is the removal index (remove_at writes only).
	Index *int `json:"index,omitempty"`

	// State is the snapshot a read observed.
	State *[]int64 `json:"state,omitempty"`

	// Pending is the buffered operation count after the step.
	Pending int `json:"pending"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// ScenarioName echoes the scenario.
	ScenarioName string

	// Pass is true when every read observed its expected snapshot.
	Pass bool

	// Errors lists read mismatches, one line per failed step.
	Errors []string

	// Trace records every executed step in order.
	Trace []TraceEvent

	// Stats are the writer-side counters after the last step.
	Stats leftright.WriteStats
}

// Summary renders a one-line outcome plus any mismatch lines.
func (r *Result) Summary() string {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s (%d steps, %d refreshes, %d ops published)",
		status, r.ScenarioName, len(r.Trace), r.Stats.Refreshes, r.Stats.Published)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e)
	}
	return b.String()
}

// Run executes a scenario silently. See RunWithLogger.
func Run(sc *Scenario) (*Result, error) {
	return RunWithLogger(sc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario step by step against an evslice pair.
//
// Execution is deterministic: one goroutine, script order, no timing
// dependence. A read whose snapshot differs from its expectation marks the
// result failed and keeps going, so one run reports every divergence.
//
// Returns an error only for malformed scenarios (which LoadScenario already
// rejects); expectation mismatches are reported through Result.
func RunWithLogger(sc *Scenario, log *slog.Logger) (*Result, error) {
	kind := leftright.TrackerCounter
	if sc.Tracker != "" {
		var err error
		kind, err = leftright.ParseTrackerKind(sc.Tracker)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	w, r := evslice.NewWithOptions[int64](leftright.Options{Tracker: kind}, sc.Initial...)
	defer w.Close()

	res := &Result{ScenarioName: sc.Name, Pass: true}
	log.Info("scenario start", "name", sc.Name, "steps", len(sc.Steps), "tracker", kind.String())

	for i := range sc.Steps {
		step := &sc.Steps[i]
		ev := TraceEvent{Seq: i + 1}

		switch {
		case step.Push != nil:
			w.Push(*step.Push)
			ev.Kind, ev.Op, ev.Value = "write", "push", step.Push
		case step.RemoveAt != nil:
			w.RemoveAt(*step.RemoveAt)
			ev.Kind, ev.Op, ev.Index = "write", "remove_at", step.RemoveAt
		case step.Clear:
			w.Clear()
			ev.Kind, ev.Op = "write", "clear"
		case step.Refresh:
			w.Refresh()
			ev.Kind = "refresh"
		case step.Read != nil:
			got := r.Snapshot()
			ev.Kind, ev.State = "read", &got
			if !int64sEqual(got, step.Read.Expect) {
				res.Pass = false
				res.Errors = append(res.Errors,
					fmt.Sprintf("step %d: read %v, want %v", i+1, got, step.Read.Expect))
			}
		}

		ev.Pending = w.Pending()
		res.Trace = append(res.Trace, ev)
		log.Debug("step", "seq", ev.Seq, "kind", ev.Kind, "op", ev.Op, "pending", ev.Pending)
	}

	res.Stats = w.Stats()
	log.Info("scenario done", "name", sc.Name, "pass", res.Pass, "errors", len(res.Errors))
	return res, nil
}

func int64sEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
