package ir

import "fmt"

// StepKind discriminates transform chain steps.
type StepKind uint8

const (
	// StepScaleBias computes value*Scale + Bias.
	StepScaleBias StepKind = iota

	// StepNormalize clamps to the range selected by Mode.
	StepNormalize

	// StepQuantize rounds to the nearest multiple of Step.
	StepQuantize

	// StepEase clamps input to [0,1] and applies the curve named by Curve.
	StepEase

	// StepMap applies the pure unary opcode Op.
	StepMap

	// StepSlew exponentially smooths toward the incoming value. The only
	// stateful step: reads and writes one float slot at State.
	StepSlew
)

var stepNames = map[StepKind]string{
	StepScaleBias: "scale-bias",
	StepNormalize: "normalize",
	StepQuantize:  "quantize",
	StepEase:      "ease",
	StepMap:       "map",
	StepSlew:      "slew",
}

// String returns the step kind name for diagnostics and documents.
func (k StepKind) String() string {
	if name, ok := stepNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StepKind(%d)", uint8(k))
}

// ParseStepKind resolves a document-level step kind name.
func ParseStepKind(name string) (StepKind, error) {
	for k, n := range stepNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transform step %q", name)
}

// NormalizeMode selects the clamp range for normalize steps.
type NormalizeMode uint8

const (
	// NormalizeUnipolar clamps to [0,1].
	NormalizeUnipolar NormalizeMode = iota

	// NormalizeBipolar clamps to [-1,1].
	NormalizeBipolar
)

var normalizeNames = map[NormalizeMode]string{
	NormalizeUnipolar: "0..1",
	NormalizeBipolar:  "-1..1",
}

// String returns the mode name for diagnostics and documents.
func (m NormalizeMode) String() string {
	if name, ok := normalizeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("NormalizeMode(%d)", uint8(m))
}

// ParseNormalizeMode resolves a document-level normalize range name.
func ParseNormalizeMode(name string) (NormalizeMode, error) {
	for m, n := range normalizeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown normalize range %q", name)
}

// TransformStep is one shaping step in a transform chain. Kind selects
// which fields are meaningful; all steps are pure except StepSlew.
type TransformStep struct {
	Kind StepKind `json:"kind"`

	Scale float64       `json:"scale,omitempty"` // scale-bias
	Bias  float64       `json:"bias,omitempty"`  // scale-bias
	Mode  NormalizeMode `json:"mode,omitempty"`  // normalize
	Step  float64       `json:"step,omitempty"`  // quantize
	Curve CurveID       `json:"curve,omitempty"` // ease
	Op    UnaryOp       `json:"op,omitempty"`    // map
	Rate  float64       `json:"rate,omitempty"`  // slew
	State FloatOffset   `json:"state,omitempty"` // slew slot
}

// TransformChain is an ordered pipeline of shaping steps applied to one
// source value. An empty chain is a strict identity.
type TransformChain []TransformStep
