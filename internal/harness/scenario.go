// Package harness executes declarative conformance scenarios and stress
// workloads against the leftright engine through its evslice and evmap
// containers.
//
// Scenarios are YAML scripts of write/refresh/read steps with expected
// snapshots; they pin down the publish semantics (batch visibility, refresh
// boundaries) in files a reviewer can read without knowing Go. The stress
// runner hammers a pair from many goroutines and reports torn or
// out-of-order observations, which should never occur.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FormatMajor is the scenario file format line this harness understands.
// The format field must be a valid semantic version with this major.
const FormatMajor = "v1"

// Scenario is a declarative conformance script for one writer/reader pair.
type Scenario struct {
	// Format versions the scenario file layout, e.g. "v1" or "v1.2.0".
	Format string `yaml:"format"`

	// Name uniquely identifies this scenario; golden traces are stored
	// under it.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// Tracker selects the liveness tracker ("counter" or "hazard").
	// Empty means counter.
	Tracker string `yaml:"tracker,omitempty"`

	// Initial seeds the slice before any step runs.
	Initial []int64 `yaml:"initial"`

	// Steps is the script. Each step carries exactly one directive.
	Steps []Step `yaml:"steps"`
}

// Step is one scripted action. Exactly one of the directive fields must be
// set; LoadScenario rejects anything else.
type Step struct {
	// Push buffers an append of the given value.
	Push *int64 `yaml:"push,omitempty"`

	// RemoveAt buffers removal at the given index (no-op out of range).
	RemoveAt *int `yaml:"remove_at,omitempty"`

	// Clear buffers removal of all elements.
	Clear bool `yaml:"clear,omitempty"`

	// Refresh publishes everything buffered so far.
	Refresh bool `yaml:"refresh,omitempty"`

	// Read snapshots the published state and compares it to Expect.
	Read *ReadStep `yaml:"read,omitempty"`
}

// ReadStep is the read directive payload.
type ReadStep struct {
	// Expect is the snapshot the read must observe. An empty (or absent)
	// list expects an empty slice.
	Expect []int64 `yaml:"expect"`
}

// directives returns how many directive fields the step sets and the name
// of the last one seen, for validation messages.
func (s *Step) directives() (int, string) {
	n, name := 0, ""
	if s.Push != nil {
		n, name = n+1, "push"
	}
	if s.RemoveAt != nil {
		n, name = n+1, "remove_at"
	}
	if s.Clear {
		n, name = n+1, "clear"
	}
	if s.Refresh {
		n, name = n+1, "refresh"
	}
	if s.Read != nil {
		n, name = n+1, "read"
	}
	return n, name
}

// LoadScenario reads and parses a scenario YAML file.
//
// Parsing is strict: unknown fields (typos like "remove_att") are rejected,
// and the format line is gated on FormatMajor so old binaries fail loudly on
// newer scenario layouts instead of misreading them.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes. See LoadScenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario checks required fields and the one-directive-per-step
// rule.
func validateScenario(sc *Scenario) error {
	if sc.Format == "" {
		return fmt.Errorf("format is required (e.g. %q)", FormatMajor)
	}
	if !semver.IsValid(sc.Format) {
		return fmt.Errorf("format %q is not a valid version", sc.Format)
	}
	if got := semver.Major(sc.Format); got != FormatMajor {
		return fmt.Errorf("format %s not supported (this harness reads %s)", sc.Format, FormatMajor)
	}
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}
	if sc.Tracker != "" && sc.Tracker != "counter" && sc.Tracker != "hazard" {
		return fmt.Errorf("tracker %q unknown (want counter or hazard)", sc.Tracker)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i := range sc.Steps {
		n, _ := sc.Steps[i].directives()
		switch n {
		case 1:
		case 0:
			return fmt.Errorf("steps[%d]: no directive (want push, remove_at, clear, refresh, or read)", i)
		default:
			return fmt.Errorf("steps[%d]: %d directives in one step, want exactly one", i, n)
		}
	}
	return nil
}
