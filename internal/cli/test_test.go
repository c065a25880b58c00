package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: phone_exact
description: "exact phone match submits"
backend:
  lookups:
    "9876543210": '{"ok":true,"record":{"name":"Lebron","phone":"9876543210"}}'
flow:
  - lookup: "9876543210"
    expect: { outcome: exact, state: identified }
  - upper_size: L
  - shorts_size: M
  - paid: true
  - submit: true
    expect: { outcome: persisted }
assertions:
  - type: final_state
    state: submitted
  - type: local_log_count
    count: 1
`

const failingScenario = `name: wrong_state
description: "expects a match that never comes"
flow:
  - lookup: Nobody
assertions:
  - type: final_state
    state: identified
`

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", "/nonexistent/scenarios")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, _, err = execute(NewTestCommand(&RootOptions{Format: "json"}), "", dir)
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 0, resp.Data.Total)
	assert.NotNil(t, resp.Data.Scenarios)
}

func TestTestCommandPassAndFail(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "phone_exact.yaml", passingScenario)
	writeScenario(t, dir, "wrong_state.yaml", failingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ phone_exact")
	assert.Contains(t, out, "✗ wrong_state")
	assert.Contains(t, out, "Assertion failed: final_state")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "phone_exact.yaml", passingScenario)
	writeScenario(t, dir, "wrong_state.yaml", failingScenario)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), "", dir, "--filter", "phone_*")

	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, "phone_exact", resp.Data.Scenarios[0].Name)
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "phone_exact.yaml", passingScenario)
	goldenPath := filepath.Join(dir, "golden", "phone_exact.golden")

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir, "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "phone_exact"`)
	assert.Contains(t, string(golden), `"outcome": "persisted"`)

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0644))
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nflw: []\n")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "", dir)

	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
