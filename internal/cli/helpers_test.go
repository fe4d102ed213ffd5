package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPatch = `
patch: {
	name: "ramp"
	inputs: ["x"]
	nodes: [
		{id: "x", kind: "input", slot: "x"},
		{id: "accum", kind: "integrate", input: "x"},
		{id: "shaped", kind: "pipeline", source: "x", steps: [
			{kind: "scale-bias", scale: 2.0, bias: 1.0},
		]},
	]
	outputs: {out: "shaped", level: "accum"}
}
`

const testScenario = `
name: ramp-scenario
patch_file: ramp.cue
outputs:
  - out
frames:
  - inputs: {x: 0.5}
  - inputs: {x: 1}
assertions:
  - type: output_near
    output: out
    frame: 1
    value: 3
`

// execute runs the CLI with the given args, capturing combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeTestFile writes content under a temp dir and returns the path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
