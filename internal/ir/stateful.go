package ir

import "fmt"

// StatefulOp discriminates explicit stateful operators.
type StatefulOp uint8

const (
	// OpIntegrate accumulates input*deltaSeconds into one float slot.
	// Absent input is treated as 0.
	OpIntegrate StatefulOp = iota

	// OpSampleHold samples Input on a rising edge of Trigger (was <= 0.5
	// last frame, now > 0.5) and holds otherwise. Two float slots: held
	// value and last trigger reading.
	OpSampleHold

	// OpSlew exponentially smooths toward Input at Rate. One float slot.
	OpSlew

	// OpDelayFrames delays Input by FrameCount whole frames through a ring
	// of FrameCount+1 float slots plus one integer cursor slot.
	OpDelayFrames

	// OpDelayMS delays Input by approximately DelayMS milliseconds. The
	// sample offset is derived from delta time each frame and clamped to
	// BufferSize-1; ring mechanics as OpDelayFrames.
	OpDelayMS
)

var statefulNames = map[StatefulOp]string{
	OpIntegrate:   "integrate",
	OpSampleHold:  "sample-hold",
	OpSlew:        "slew",
	OpDelayFrames: "delay-frames",
	OpDelayMS:     "delay-ms",
}

// String returns the operator name for diagnostics and documents.
func (op StatefulOp) String() string {
	if name, ok := statefulNames[op]; ok {
		return name
	}
	return fmt.Sprintf("StatefulOp(%d)", uint8(op))
}

// ParseStatefulOp resolves a document-level operator name.
func ParseStatefulOp(name string) (StatefulOp, error) {
	for op, n := range statefulNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown stateful operator %q", name)
}

// StatefulSpec describes one stateful operator instance. Op selects which
// fields are meaningful. Slot offsets are compiler-assigned, disjoint per
// instance, and stable for the compiled program's lifetime.
type StatefulSpec struct {
	Op StatefulOp `json:"op"`

	// Input is the operand node, or NoNode when absent (integrate only).
	Input NodeIndex `json:"input"`

	// Trigger is the sample-hold trigger node.
	Trigger NodeIndex `json:"trigger,omitempty"`

	Rate       float64 `json:"rate,omitempty"`        // slew
	FrameCount int     `json:"frame_count,omitempty"` // delay-frames
	DelayMS    float64 `json:"delay_ms,omitempty"`    // delay-ms
	BufferSize int     `json:"buffer_size,omitempty"` // delay-ms ring capacity

	// FloatOff/FloatLen and IntOff/IntLen describe the instance's slots in
	// the state arena. Zero-initialized state is meaningful per operator
	// (integrate starts at 0, a delay ring starts as silence).
	FloatOff FloatOffset `json:"float_off"`
	FloatLen int         `json:"float_len"`
	IntOff   IntOffset   `json:"int_off,omitempty"`
	IntLen   int         `json:"int_len,omitempty"`
}
