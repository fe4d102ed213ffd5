package engine

import (
	"fmt"
	"math"

	"github.com/roach88/strobe/internal/ir"
)

// applyUnary applies a pure unary opcode. Numeric edge cases (NaN,
// infinities) follow standard floating-point semantics; nothing is trapped.
func applyUnary(node ir.NodeIndex, op ir.UnaryOp, v float64) (float64, error) {
	switch op {
	case ir.UnarySin:
		return math.Sin(v), nil
	case ir.UnaryCos:
		return math.Cos(v), nil
	case ir.UnaryTan:
		return math.Tan(v), nil
	case ir.UnaryAbs:
		return math.Abs(v), nil
	case ir.UnaryFloor:
		return math.Floor(v), nil
	case ir.UnaryCeil:
		return math.Ceil(v), nil
	case ir.UnarySign:
		switch {
		case math.IsNaN(v):
			return v, nil
		case v > 0:
			return 1, nil
		case v < 0:
			return -1, nil
		default:
			return 0, nil
		}
	case ir.UnaryFract:
		return v - math.Floor(v), nil
	case ir.UnaryNeg:
		return -v, nil
	case ir.UnarySqrt:
		return math.Sqrt(v), nil
	case ir.UnaryExp:
		return math.Exp(v), nil
	case ir.UnaryLog:
		return math.Log(v), nil
	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownOpcode,
			Message: fmt.Sprintf("unknown unary opcode %s", op),
			Node:    node,
		}
	}
}

// applyBinary applies a pure binary opcode. Division by zero yields the
// standard float result; hosts needing sanitization insert an explicit
// transform step instead.
func applyBinary(node ir.NodeIndex, op ir.BinaryOp, a, b float64) (float64, error) {
	switch op {
	case ir.BinaryAdd:
		return a + b, nil
	case ir.BinarySub:
		return a - b, nil
	case ir.BinaryMul:
		return a * b, nil
	case ir.BinaryDiv:
		return a / b, nil
	case ir.BinaryMin:
		return math.Min(a, b), nil
	case ir.BinaryMax:
		return math.Max(a, b), nil
	case ir.BinaryMod:
		return math.Mod(a, b), nil
	case ir.BinaryPow:
		return math.Pow(a, b), nil
	case ir.BinaryAtan2:
		return math.Atan2(a, b), nil
	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownOpcode,
			Message: fmt.Sprintf("unknown binary opcode %s", op),
			Node:    node,
		}
	}
}

// applyCurve applies a registered easing function. The input is already
// clamped to [0,1] by the ease step.
func applyCurve(curve ir.CurveID, t float64) (float64, error) {
	switch curve {
	case ir.CurveLinear:
		return t, nil
	case ir.CurveInQuad:
		return t * t, nil
	case ir.CurveOutQuad:
		return t * (2 - t), nil
	case ir.CurveInOutQuad:
		if t < 0.5 {
			return 2 * t * t, nil
		}
		return -1 + (4-2*t)*t, nil
	case ir.CurveInCubic:
		return t * t * t, nil
	case ir.CurveOutCubic:
		u := t - 1
		return u*u*u + 1, nil
	case ir.CurveInOutCubic:
		if t < 0.5 {
			return 4 * t * t * t, nil
		}
		u := 2*t - 2
		return 0.5*u*u*u + 1, nil
	case ir.CurveSmoothstep:
		return t * t * (3 - 2*t), nil
	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownCurve,
			Message: fmt.Sprintf("unknown easing curve %s", curve),
			Node:    -1,
		}
	}
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
