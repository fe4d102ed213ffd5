package ir

import "fmt"

// UnaryOp is a pure unary opcode usable by UnaryMap nodes and map transform
// steps. The set is fixed; the engine's opcode table is exhaustive over it.
type UnaryOp uint8

const (
	UnarySin UnaryOp = iota
	UnaryCos
	UnaryTan
	UnaryAbs
	UnaryFloor
	UnaryCeil
	UnarySign
	UnaryFract
	UnaryNeg
	UnarySqrt
	UnaryExp
	UnaryLog
)

// unaryNames maps opcodes to their document-level names.
var unaryNames = map[UnaryOp]string{
	UnarySin:   "sin",
	UnaryCos:   "cos",
	UnaryTan:   "tan",
	UnaryAbs:   "abs",
	UnaryFloor: "floor",
	UnaryCeil:  "ceil",
	UnarySign:  "sign",
	UnaryFract: "fract",
	UnaryNeg:   "neg",
	UnarySqrt:  "sqrt",
	UnaryExp:   "exp",
	UnaryLog:   "log",
}

// String returns the opcode name for diagnostics and documents.
func (op UnaryOp) String() string {
	if name, ok := unaryNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UnaryOp(%d)", uint8(op))
}

// ParseUnaryOp resolves a document-level opcode name.
func ParseUnaryOp(name string) (UnaryOp, error) {
	for op, n := range unaryNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown unary opcode %q", name)
}

// BinaryOp is a pure binary opcode usable by BinaryZip nodes.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMin
	BinaryMax
	BinaryMod
	BinaryPow
	BinaryAtan2
)

var binaryNames = map[BinaryOp]string{
	BinaryAdd:   "add",
	BinarySub:   "sub",
	BinaryMul:   "mul",
	BinaryDiv:   "div",
	BinaryMin:   "min",
	BinaryMax:   "max",
	BinaryMod:   "mod",
	BinaryPow:   "pow",
	BinaryAtan2: "atan2",
}

// String returns the opcode name for diagnostics and documents.
func (op BinaryOp) String() string {
	if name, ok := binaryNames[op]; ok {
		return name
	}
	return fmt.Sprintf("BinaryOp(%d)", uint8(op))
}

// ParseBinaryOp resolves a document-level opcode name.
func ParseBinaryOp(name string) (BinaryOp, error) {
	for op, n := range binaryNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown binary opcode %q", name)
}

// CurveID identifies a registered easing function for ease transform steps.
// Ease steps clamp their input to [0,1] before applying the curve.
type CurveID uint8

const (
	CurveLinear CurveID = iota
	CurveInQuad
	CurveOutQuad
	CurveInOutQuad
	CurveInCubic
	CurveOutCubic
	CurveInOutCubic
	CurveSmoothstep
)

var curveNames = map[CurveID]string{
	CurveLinear:     "linear",
	CurveInQuad:     "in-quad",
	CurveOutQuad:    "out-quad",
	CurveInOutQuad:  "in-out-quad",
	CurveInCubic:    "in-cubic",
	CurveOutCubic:   "out-cubic",
	CurveInOutCubic: "in-out-cubic",
	CurveSmoothstep: "smoothstep",
}

// String returns the curve name for diagnostics and documents.
func (c CurveID) String() string {
	if name, ok := curveNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CurveID(%d)", uint8(c))
}

// ParseCurveID resolves a document-level curve name.
func ParseCurveID(name string) (CurveID, error) {
	for c, n := range curveNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown easing curve %q", name)
}
