package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/leftright"
	"github.com/kolkov/leftright/evmap"
)

// StressConfig parameterizes a stress run. Fields parse from the
// environment (LEFTRIGHT_STRESS_*) so CI jobs can tune runs without flag
// plumbing; the CLI layers flags on top.
type StressConfig struct {
	// Readers is the number of concurrent reader goroutines.
	Readers int `env:"LEFTRIGHT_STRESS_READERS" envDefault:"4"`

	// Duration bounds the run.
	Duration time.Duration `env:"LEFTRIGHT_STRESS_DURATION" envDefault:"2s"`

	// BatchSize is the number of bulk keys rewritten per publish, on top
	// of the seq/check pair. Larger batches stress replay cost.
	BatchSize int `env:"LEFTRIGHT_STRESS_BATCH" envDefault:"8"`

	// Tracker selects the liveness tracker ("counter" or "hazard").
	Tracker string `env:"LEFTRIGHT_STRESS_TRACKER" envDefault:"counter"`

	// HazardCells sizes the hazard table when Tracker is "hazard".
	HazardCells int `env:"LEFTRIGHT_STRESS_HAZARD_CELLS" envDefault:"128"`
}

// ConfigFromEnv builds a StressConfig from the environment.
func ConfigFromEnv() (StressConfig, error) {
	var cfg StressConfig
	if err := env.Parse(&cfg); err != nil {
		return StressConfig{}, fmt.Errorf("parse stress env: %w", err)
	}
	return cfg, nil
}

func (c StressConfig) validate() error {
	if c.Readers < 1 {
		return fmt.Errorf("readers must be at least 1, got %d", c.Readers)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be non-negative, got %d", c.BatchSize)
	}
	if _, err := leftright.ParseTrackerKind(c.Tracker); err != nil {
		return err
	}
	return nil
}

// StressReport is the outcome of a stress run.
//
// TornReads counts observations where a snapshot's checksum or bulk keys
// disagreed with its seq; Regressions counts observations where a reader saw
// seq move backwards. Both must be zero on a correct engine; the stress
// command exits nonzero otherwise.
type StressReport struct {
	RunID          string        `json:"run_id"`
	Tracker        string        `json:"tracker"`
	Readers        int           `json:"readers"`
	BatchSize      int           `json:"batch_size"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Reads          uint64        `json:"reads"`
	Writes         uint64        `json:"writes"`
	Refreshes      uint64        `json:"refreshes"`
	TornReads      uint64        `json:"torn_reads"`
	Regressions    uint64        `json:"regressions"`
	MaxRefreshWait time.Duration `json:"max_refresh_wait_ns"`
	ReadsPerSec    float64       `json:"reads_per_sec"`
}

// Healthy reports whether the run observed no consistency violations.
func (r *StressReport) Healthy() bool {
	return r.TornReads == 0 && r.Regressions == 0
}

// Text renders the report for terminals.
func (r *StressReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stress run %s\n", r.RunID)
	fmt.Fprintf(&b, "  tracker:          %s\n", r.Tracker)
	fmt.Fprintf(&b, "  readers:          %d\n", r.Readers)
	fmt.Fprintf(&b, "  batch size:       %d\n", r.BatchSize)
	fmt.Fprintf(&b, "  elapsed:          %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "  reads:            %d (%.0f/s)\n", r.Reads, r.ReadsPerSec)
	fmt.Fprintf(&b, "  writes:           %d\n", r.Writes)
	fmt.Fprintf(&b, "  refreshes:        %d\n", r.Refreshes)
	fmt.Fprintf(&b, "  max refresh wait: %s\n", r.MaxRefreshWait)
	fmt.Fprintf(&b, "  torn reads:       %d\n", r.TornReads)
	fmt.Fprintf(&b, "  regressions:      %d", r.Regressions)
	return b.String()
}

// JSON renders the report as indented JSON.
func (r *StressReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// checksum derives the check value published alongside seq. Multiplicative
// mix; any reader observing a seq/check pair that disagrees saw a state no
// refresh ever published.
func checksum(seq uint64) uint64 {
	const goldenRatio = 0x9E3779B97F4A7C15
	return seq*goldenRatio ^ 0xD6E8FEB8
}

// RunStress drives one writer and cfg.Readers readers over an evmap pair
// for cfg.Duration and reports what the readers observed.
//
// Every publish writes seq, its checksum, and BatchSize bulk keys carrying
// seq, all in one batch. Readers verify each snapshot internally (checksum
// and bulk keys match seq) and across time (seq never decreases per
// reader). Violations are counted, not fatal, so a broken engine yields a
// full report instead of a crash.
func RunStress(ctx context.Context, cfg StressConfig, log *slog.Logger) (*StressReport, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("stress config: %w", err)
	}
	kind, err := leftright.ParseTrackerKind(cfg.Tracker)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log.Info("stress start", "run_id", runID, "tracker", cfg.Tracker,
		"readers", cfg.Readers, "duration", cfg.Duration, "batch", cfg.BatchSize)

	w, r := evmap.NewWithOptions[string, uint64](leftright.Options{
		Tracker:     kind,
		HazardCells: cfg.HazardCells,
	})

	bulkKeys := make([]string, cfg.BatchSize)
	for i := range bulkKeys {
		bulkKeys[i] = "bulk-" + strconv.Itoa(i)
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		reads       atomic.Uint64
		torn        atomic.Uint64
		regressions atomic.Uint64
	)

	// Writer-local counters; published to the report after Wait.
	var (
		writes    uint64
		refreshes uint64
		maxWait   time.Duration
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		var seq uint64
		for gctx.Err() == nil {
			seq++
			w.Set("seq", seq)
			w.Set("check", checksum(seq))
			for _, k := range bulkKeys {
				w.Set(k, seq)
			}
			writes += 2 + uint64(cfg.BatchSize)

			before := time.Now()
			w.Refresh()
			if d := time.Since(before); d > maxWait {
				maxWait = d
			}
			refreshes++
		}
		w.Close()
		return nil
	})

	for i := 0; i < cfg.Readers; i++ {
		h := r.Clone()
		g.Go(func() error {
			defer h.Close()
			var last uint64
			for gctx.Err() == nil {
				h.Do(func(m *evmap.Map[string, uint64]) {
					seq, ok := m.Get("seq")
					if !ok {
						// Initial empty state, before the first publish.
						return
					}
					if check, _ := m.Get("check"); check != checksum(seq) {
						torn.Add(1)
						return
					}
					for _, k := range bulkKeys {
						if v, present := m.Get(k); !present || v != seq {
							torn.Add(1)
							return
						}
					}
					if seq < last {
						regressions.Add(1)
					}
					last = seq
				})
				reads.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stress run %s: %w", runID, err)
	}
	elapsed := time.Since(start)

	rep := &StressReport{
		RunID:          runID,
		Tracker:        cfg.Tracker,
		Readers:        cfg.Readers,
		BatchSize:      cfg.BatchSize,
		Elapsed:        elapsed,
		Reads:          reads.Load(),
		Writes:         writes,
		Refreshes:      refreshes,
		TornReads:      torn.Load(),
		Regressions:    regressions.Load(),
		MaxRefreshWait: maxWait,
		ReadsPerSec:    float64(reads.Load()) / elapsed.Seconds(),
	}
	log.Info("stress done", "run_id", runID, "reads", rep.Reads,
		"refreshes", rep.Refreshes, "torn", rep.TornReads, "regressions", rep.Regressions)
	return rep, nil
}
