package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/leftright/internal/harness"
)

// VerifyOutcome is the per-scenario JSON record of a verify run.
type VerifyOutcome struct {
	Scenario  string   `json:"scenario"`
	File      string   `json:"file"`
	Pass      bool     `json:"pass"`
	Errors    []string `json:"errors,omitempty"`
	Steps     int      `json:"steps"`
	Refreshes uint64   `json:"refreshes"`
	Published uint64   `json:"published"`
}

// VerifyResult aggregates outcomes across all scenario files.
type VerifyResult struct {
	Pass      bool            `json:"pass"`
	Scenarios []VerifyOutcome `json:"scenarios"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <scenario.yaml>...",
		Short: "Run scenario files against the engine",
		Long: `Run declarative YAML scenarios against the engine.

Each scenario scripts writes, refreshes, and reads with expected snapshots;
every read is checked against what the engine actually published. All files
run even when one fails, so a single invocation reports every divergence.

Example:
  leftright verify scenarios/publish-batches.yaml
  leftright verify scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	log := newLogger(opts, cmd)
	out := cmd.OutOrStdout()

	result := VerifyResult{Pass: true}
	failed := 0

	for _, path := range paths {
		sc, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", path), err)
		}

		res, err := harness.RunWithLogger(sc, log)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", path), err)
		}

		if !res.Pass {
			result.Pass = false
			failed++
		}
		result.Scenarios = append(result.Scenarios, VerifyOutcome{
			Scenario:  res.ScenarioName,
			File:      path,
			Pass:      res.Pass,
			Errors:    res.Errors,
			Steps:     len(res.Trace),
			Refreshes: res.Stats.Refreshes,
			Published: res.Stats.Published,
		})

		if opts.Format == "text" {
			fmt.Fprintln(out, res.Summary())
		}
	}

	if opts.Format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "encode result", err)
		}
		fmt.Fprintln(out, string(data))
	}

	if failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d scenarios failed", failed, len(paths)))
	}
	return nil
}
