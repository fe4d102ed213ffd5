package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDocument(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "validate", patch)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	patch := writeTestFile(t, "bad.cue", `
patch: {
	name: "bad"
	nodes: [
		{id: "a", kind: "unary", op: "neg", a: "missing"},
	]
}
`)

	out, err := execute(t, "validate", patch)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "missing")
}

func TestValidate_JSONReport(t *testing.T) {
	patch := writeTestFile(t, "ramp.cue", testPatch)

	out, err := execute(t, "--format", "json", "validate", patch)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["valid"])
}
