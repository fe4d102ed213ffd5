package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioGolden_ScaleRamp(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scale_ramp.yaml"))
	require.NoError(t, err)

	result := RunWithGolden(t, scenario)
	require.True(t, result.Passed)
}
