package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingScenario = `
name: ramp-failing
patch_file: ramp.cue
outputs:
  - out
frames:
  - inputs: {x: 0.5}
assertions:
  - type: output_near
    output: out
    frame: 0
    value: 99
`

func TestTest_AllPass(t *testing.T) {
	dir := writeScenarioDir(t)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS ramp-scenario")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_FailureSetsExitCode(t *testing.T) {
	dir := writeScenarioDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingScenario), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL ramp-failing")
	assert.Contains(t, out, "PASS ramp-scenario")
}

func TestTest_FilterByName(t *testing.T) {
	dir := writeScenarioDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingScenario), 0o644))

	out, err := execute(t, "test", dir, "--filter", "ramp-scenario")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_ReplayFlag(t *testing.T) {
	dir := writeScenarioDir(t)

	out, err := execute(t, "test", dir, "--replay")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed")
}

func TestTest_JSONOutput(t *testing.T) {
	dir := writeScenarioDir(t)

	out, err := execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["passed"])
	assert.Equal(t, 1.0, data["total"])
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTest_MissingDirectoryFails(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
