package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_TextOutput(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "eval", patch, "--frames", "2", "--input", "x=0.5", "--output", "out")
	require.NoError(t, err)
	assert.Contains(t, out, "frame 0: out=2")
	assert.Contains(t, out, "frame 1: out=2")
}

func TestEval_JSONOutput(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "--format", "json", "eval", patch, "--input", "x=1", "--output", "out")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	frames := resp.Data.([]interface{})
	require.Len(t, frames, 1)
	values := frames[0].(map[string]interface{})["values"].(map[string]interface{})
	assert.Equal(t, 3.0, values["out"])
}

func TestEval_DefaultsToAllOutputs(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "eval", patch, "--input", "x=0")
	require.NoError(t, err)
	assert.Contains(t, out, "level=")
	assert.Contains(t, out, "out=")
}

func TestEval_UnknownInputFails(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	_, err := execute(t, "eval", patch, "--input", "y=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEval_MalformedInputFails(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	_, err := execute(t, "eval", patch, "--input", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name=value")
}
