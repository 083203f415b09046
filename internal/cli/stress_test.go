package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/leftright/internal/harness"
)

// clearStressEnv keeps ambient LEFTRIGHT_STRESS_* variables from leaking
// into flag-driven test runs.
func clearStressEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LEFTRIGHT_STRESS_READERS",
		"LEFTRIGHT_STRESS_DURATION",
		"LEFTRIGHT_STRESS_BATCH",
		"LEFTRIGHT_STRESS_TRACKER",
		"LEFTRIGHT_STRESS_HAZARD_CELLS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestStressCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	stressCmd, _, err := cmd.Find([]string{"stress"})
	require.NoError(t, err)

	for flag, def := range map[string]string{
		"readers":      "4",
		"duration":     "2s",
		"batch":        "8",
		"tracker":      "counter",
		"hazard-cells": "128",
	} {
		f := stressCmd.Flags().Lookup(flag)
		require.NotNil(t, f, "flag %s should exist", flag)
		assert.Equal(t, def, f.DefValue, "flag %s default", flag)
	}
}

func TestStressCommand_ShortRun(t *testing.T) {
	clearStressEnv(t)

	stdout, _, err := execute(t, "stress",
		"--duration", "100ms", "--readers", "2", "--batch", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stress run")
	assert.Contains(t, stdout, "torn reads:       0")
}

func TestStressCommand_JSONRun(t *testing.T) {
	clearStressEnv(t)

	stdout, _, err := execute(t, "stress", "--format", "json",
		"--duration", "100ms", "--readers", "2", "--batch", "2",
		"--tracker", "hazard", "--hazard-cells", "8")
	require.NoError(t, err)

	var rep harness.StressReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.True(t, rep.Healthy())
	assert.Equal(t, "hazard", rep.Tracker)
	assert.Greater(t, rep.Reads, uint64(0))
}

func TestStressCommand_EnvDefaultsApply(t *testing.T) {
	clearStressEnv(t)
	t.Setenv("LEFTRIGHT_STRESS_DURATION", "100ms")
	t.Setenv("LEFTRIGHT_STRESS_READERS", "2")

	stdout, _, err := execute(t, "stress", "--batch", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "readers:          2")
}

func TestStressCommand_BadTracker(t *testing.T) {
	clearStressEnv(t)

	_, _, err := execute(t, "stress", "--tracker", "epoch", "--duration", "50ms")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
