package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGoldenTraces runs every scenario under testdata/scenarios and compares
// its full trace against the committed golden file. Regenerate after an
// intentional trace change with:
//
//	go test ./internal/harness -run TestGoldenTraces -update
func TestGoldenTraces(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, sc.Name, "scenario name must match its file name")
			require.NoError(t, RunWithGolden(t, sc))
		})
	}
}
