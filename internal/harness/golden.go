package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file shape: scenario identity plus the full
// trace and outcome, serialized as indented JSON for reviewable diffs.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Format       string       `json:"format"`
	Pass         bool         `json:"pass"`
	Errors       []string     `json:"errors,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files after an intentional trace change:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run; trace divergence fails the
// test through goldie.
func RunWithGolden(t *testing.T, sc *Scenario) error {
	t.Helper()

	res, err := Run(sc)
	if err != nil {
		return err
	}

	snap := TraceSnapshot{
		ScenarioName: sc.Name,
		Format:       sc.Format,
		Pass:         res.Pass,
		Errors:       res.Errors,
		Trace:        res.Trace,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, append(data, '\n'))

	return nil
}
