package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TraceSnapshot is the golden-file shape for a scenario trace. It carries
// only the frame records: program hashes change whenever the compiler's
// serialized form changes, and pinning them in fixtures would make every
// such change a fixture churn.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Frames       []FrameRecord `json:"frames"`
}

// RunWithGolden runs the scenario and compares its trace against the
// golden fixture named after the scenario. Regenerate fixtures with
// `-update` after an intentional behavior change.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Empty(t, result.Failures, "scenario assertions failed")

	snapshot := TraceSnapshot{
		ScenarioName: result.ScenarioName,
		Frames:       result.Frames,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result
}
