package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a patch, a scripted frame
// sequence, and assertions over the recorded outputs.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// fixture file when the scenario is run through RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Patch is the inline CUE patch document source.
	Patch string `yaml:"patch,omitempty"`

	// PatchFile is a path to a CUE patch document, relative to the
	// scenario file. Exactly one of Patch or PatchFile must be set.
	PatchFile string `yaml:"patch_file,omitempty"`

	// DeltaSeconds is the fixed per-frame delta time. Defaults to 0.1.
	DeltaSeconds float64 `yaml:"delta_seconds,omitempty"`

	// Outputs lists the program outputs to record each frame, in order.
	Outputs []string `yaml:"outputs"`

	// Frames is the scripted frame sequence.
	Frames []FrameStep `yaml:"frames"`

	// Assertions validate the recorded trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// SessionToken fixes the session token for deterministic runs.
	// Defaults to "test-session".
	SessionToken string `yaml:"session_token,omitempty"`
}

// FrameStep scripts one or more consecutive frames sharing the same
// external input values.
type FrameStep struct {
	// Inputs maps document-level input names to values for this frame.
	// Inputs absent from the map read as unconnected (NaN downstream).
	Inputs map[string]float64 `yaml:"inputs,omitempty"`

	// Repeat runs this step for N consecutive frames. Defaults to 1.
	Repeat int `yaml:"repeat,omitempty"`
}

// Assertion validates the recorded output trace.
type Assertion struct {
	// Type selects the check:
	//   - "output_near": output at Frame is within Tolerance of Value
	//   - "output_within": output stays in [Min, Max] across all frames
	//   - "output_monotonic": output moves only in Direction
	Type string `yaml:"type"`

	// Output names the recorded output the assertion applies to.
	Output string `yaml:"output"`

	Frame     int     `yaml:"frame,omitempty"`
	Value     float64 `yaml:"value,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"` // defaults to 1e-9

	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`

	// Direction is "non-decreasing" (default) or "non-increasing".
	Direction string `yaml:"direction,omitempty"`
}

// LoadScenario reads a scenario YAML file. Unknown fields are rejected, a
// PatchFile reference is resolved relative to the scenario file and read
// into Patch.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	scenario := &Scenario{}
	if err := dec.Decode(scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if scenario.PatchFile != "" {
		if scenario.Patch != "" {
			return nil, fmt.Errorf("scenario %s: patch and patch_file are mutually exclusive", path)
		}
		patchPath := filepath.Join(filepath.Dir(path), scenario.PatchFile)
		src, err := os.ReadFile(patchPath)
		if err != nil {
			return nil, fmt.Errorf("read patch file: %w", err)
		}
		scenario.Patch = string(src)
	}

	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return scenario, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Patch == "" {
		return fmt.Errorf("patch or patch_file is required")
	}
	if len(s.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("at least one frame is required")
	}
	for i, step := range s.Frames {
		if step.Repeat < 0 {
			return fmt.Errorf("frames[%d]: negative repeat", i)
		}
	}
	return nil
}
