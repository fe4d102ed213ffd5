package harness

import (
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/strobe/internal/compiler"
	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/ir"
	"github.com/roach88/strobe/internal/testutil"
)

// FrameRecord is one frame's recorded output values. Values are formatted
// with strconv.FormatFloat 'g'/-1, which round-trips float64 exactly and
// represents NaN and infinities, so a record is both human-readable and
// bit-faithful.
type FrameRecord struct {
	Frame  int64             `json:"frame"`
	Values map[string]string `json:"values"`
}

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string
	ProgramHash  string
	Passed       bool
	Failures     []string
	Frames       []FrameRecord

	// raw holds the unformatted values, [frame][output index in
	// Scenario.Outputs order], for assertions and replay comparison.
	raw [][]float64
}

// Run compiles the scenario's patch and drives a session through the
// scripted frames, recording every requested output. Assertion failures
// land in Result.Failures; only infrastructure problems (compile errors,
// unknown names, evaluation errors) are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	prog, err := compiler.CompilePatchSource(scenario.Patch)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: compile patch: %w", scenario.Name, err)
	}

	session := engine.NewSession(
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.SessionToken)),
	)
	session.Load(prog)

	roots := make([]ir.NodeIndex, len(scenario.Outputs))
	for i, name := range scenario.Outputs {
		root, ok := prog.Output(name)
		if !ok {
			return nil, fmt.Errorf("scenario %s: patch declares no output %q", scenario.Name, name)
		}
		roots[i] = root
	}

	dt := scenario.DeltaSeconds
	if dt == 0 {
		dt = 0.1
	}
	script := testutil.NewFrameScript(dt)

	result := &Result{
		ScenarioName: scenario.Name,
		ProgramHash:  session.ProgramHash(),
	}

	for stepIdx, step := range scenario.Frames {
		resolver, err := resolveInputs(prog, step.Inputs)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: frames[%d]: %w", scenario.Name, stepIdx, err)
		}

		repeat := step.Repeat
		if repeat == 0 {
			repeat = 1
		}
		for r := 0; r < repeat; r++ {
			ctx := script.Next(resolver)

			record := FrameRecord{Frame: ctx.Frame, Values: make(map[string]string, len(roots))}
			rawRow := make([]float64, len(roots))
			for i, root := range roots {
				v, err := session.Evaluate(root, ctx)
				if err != nil {
					return nil, fmt.Errorf("scenario %s: frame %d output %q: %w",
						scenario.Name, ctx.Frame, scenario.Outputs[i], err)
				}
				rawRow[i] = v
				record.Values[scenario.Outputs[i]] = formatValue(v)
			}
			result.Frames = append(result.Frames, record)
			result.raw = append(result.raw, rawRow)
		}
	}

	result.Failures = evaluateAssertions(scenario, result)
	result.Passed = len(result.Failures) == 0
	return result, nil
}

// VerifyReplay runs the scenario twice from scratch and demands bit-exact
// agreement between the two traces. This is the determinism contract: the
// same graph, frame sequence and inputs always produce the same values.
func VerifyReplay(scenario *Scenario) error {
	first, err := Run(scenario)
	if err != nil {
		return err
	}
	second, err := Run(scenario)
	if err != nil {
		return err
	}

	if len(first.raw) != len(second.raw) {
		return fmt.Errorf("replay of %s: frame counts differ (%d vs %d)",
			scenario.Name, len(first.raw), len(second.raw))
	}
	for f := range first.raw {
		for i := range first.raw[f] {
			a, b := first.raw[f][i], second.raw[f][i]
			if math.Float64bits(a) != math.Float64bits(b) {
				return fmt.Errorf("replay of %s: frame %d output %q diverged (%s vs %s)",
					scenario.Name, f, scenario.Outputs[i], formatValue(a), formatValue(b))
			}
		}
	}
	return nil
}

// resolveInputs maps document-level input names to a slot resolver.
func resolveInputs(prog *ir.Program, inputs map[string]float64) (engine.MapResolver, error) {
	if inputs == nil {
		return nil, nil
	}
	resolver := make(engine.MapResolver, len(inputs))
	for name, value := range inputs {
		key, ok := prog.Slot(name)
		if !ok {
			return nil, fmt.Errorf("patch declares no input %q", name)
		}
		resolver[key] = value
	}
	return resolver, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func evaluateAssertions(scenario *Scenario, result *Result) []string {
	var failures []string

	outputIdx := make(map[string]int, len(scenario.Outputs))
	for i, name := range scenario.Outputs {
		outputIdx[name] = i
	}

	for i, a := range scenario.Assertions {
		idx, ok := outputIdx[a.Output]
		if !ok {
			failures = append(failures, fmt.Sprintf("assertions[%d]: output %q not recorded", i, a.Output))
			continue
		}

		switch a.Type {
		case "output_near":
			if a.Frame < 0 || a.Frame >= len(result.raw) {
				failures = append(failures, fmt.Sprintf("assertions[%d]: frame %d outside trace of %d", i, a.Frame, len(result.raw)))
				continue
			}
			tol := a.Tolerance
			if tol == 0 {
				tol = 1e-9
			}
			got := result.raw[a.Frame][idx]
			if !(math.Abs(got-a.Value) <= tol) {
				failures = append(failures, fmt.Sprintf(
					"assertions[%d]: %s at frame %d = %s, want %s ± %g",
					i, a.Output, a.Frame, formatValue(got), formatValue(a.Value), tol))
			}

		case "output_within":
			for f := range result.raw {
				got := result.raw[f][idx]
				if !(got >= a.Min && got <= a.Max) {
					failures = append(failures, fmt.Sprintf(
						"assertions[%d]: %s at frame %d = %s, outside [%g, %g]",
						i, a.Output, f, formatValue(got), a.Min, a.Max))
					break
				}
			}

		case "output_monotonic":
			direction := a.Direction
			if direction == "" {
				direction = "non-decreasing"
			}
			for f := 1; f < len(result.raw); f++ {
				prev, got := result.raw[f-1][idx], result.raw[f][idx]
				violated := (direction == "non-decreasing" && got < prev) ||
					(direction == "non-increasing" && got > prev)
				if violated {
					failures = append(failures, fmt.Sprintf(
						"assertions[%d]: %s not %s at frame %d (%s -> %s)",
						i, a.Output, direction, f, formatValue(prev), formatValue(got)))
					break
				}
			}

		default:
			failures = append(failures, fmt.Sprintf("assertions[%d]: unknown type %q", i, a.Type))
		}
	}
	return failures
}
