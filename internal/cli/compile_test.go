package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/ir"
)

func TestCompile_TextOutput(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "compile", patch)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled:")
	assert.Contains(t, out, "Outputs: level, out")
	assert.Contains(t, out, "Program hash:")
}

func TestCompile_JSONOutput(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "--format", "json", "compile", patch)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"level", "out"}, data["outputs"])
	assert.NotEmpty(t, data["program_hash"])
}

func TestCompile_WritesProgramFile(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)
	outPath := filepath.Join(t.TempDir(), "prog.json")

	_, err := execute(t, "compile", patch, "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var prog ir.Program
	require.NoError(t, json.Unmarshal(data, &prog))
	assert.NotEmpty(t, prog.Nodes)
	assert.Contains(t, prog.Outputs, "out")
}

func TestCompile_InvalidPatchFails(t *testing.T) {
	patch := writeTestFile(t, "bad.cue", `patch: {name: "bad", nodes: [{id: "n", kind: "warp"}]}`)

	out, err := execute(t, "compile", patch)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "warp")
}

func TestCompile_MissingFileFails(t *testing.T) {
	_, err := execute(t, "compile", filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
}
