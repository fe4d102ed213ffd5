package ir

import "fmt"

// NodeKind discriminates the closed set of node variants.
//
// The set is sealed: adding a kind requires extending the engine's dispatch
// switch, which is deliberately exhaustive. An unknown kind at evaluation
// time is a compiler/runtime contract violation, never silently defaulted.
type NodeKind uint8

const (
	// KindConstant reads a value from the constant pool.
	KindConstant NodeKind = iota

	// KindAbsoluteTime reads the frame's monotonic time in milliseconds.
	KindAbsoluteTime

	// KindUnaryMap applies a pure unary opcode to one operand.
	KindUnaryMap

	// KindBinaryZip applies a pure binary opcode to two operands (A before B).
	KindBinaryZip

	// KindSelect evaluates Cond (A); if > 0.5 evaluates only Then (B),
	// otherwise only Else (C). The untaken branch is never evaluated.
	KindSelect

	// KindExternalInput reads a slot from the frame's external resolver.
	// An unset slot yields NaN.
	KindExternalInput

	// KindBusAggregate combines the bus's ordered contributors.
	KindBusAggregate

	// KindTransformPipeline threads the source (A) through a transform chain.
	KindTransformPipeline

	// KindStatefulOperator evaluates an explicit stateful operator
	// (integrate, sample-hold, slew, delay).
	KindStatefulOperator

	// KindBridge invokes a legacy callable registered on the session by key.
	// Transitional only: lets closure-based predecessors coexist in one
	// graph during migration.
	KindBridge
)

// String returns the kind name for diagnostics.
func (k NodeKind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindAbsoluteTime:
		return "absolute-time"
	case KindUnaryMap:
		return "unary-map"
	case KindBinaryZip:
		return "binary-zip"
	case KindSelect:
		return "select"
	case KindExternalInput:
		return "external-input"
	case KindBusAggregate:
		return "bus-aggregate"
	case KindTransformPipeline:
		return "transform-pipeline"
	case KindStatefulOperator:
		return "stateful-operator"
	case KindBridge:
		return "bridge"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Node is one entry in the dense expression graph.
//
// Node is a flat tagged variant: Kind selects which fields are meaningful.
// This trades a few unused bytes per node for a pointer-free, cache-friendly
// table and one exhaustive dispatch switch in the engine (no virtual calls,
// no open-ended subclassing).
//
// Field usage by kind:
//
//	Constant:          Const
//	AbsoluteTime:      (none)
//	UnaryMap:          Op, A (source)
//	BinaryZip:         BinOp, A, B
//	Select:            A (cond), B (then), C (else)
//	ExternalInput:     Slot
//	BusAggregate:      Bus
//	TransformPipeline: A (source), Chain
//	StatefulOperator:  Operator
//	Bridge:            Bridge
type Node struct {
	Kind NodeKind `json:"kind"`

	A NodeIndex `json:"a,omitempty"`
	B NodeIndex `json:"b,omitempty"`
	C NodeIndex `json:"c,omitempty"`

	Const    ConstIndex    `json:"const,omitempty"`
	Op       UnaryOp       `json:"op,omitempty"`
	BinOp    BinaryOp      `json:"bin_op,omitempty"`
	Slot     SlotKey       `json:"slot,omitempty"`
	Bus      BusIndex      `json:"bus,omitempty"`
	Chain    ChainIndex    `json:"chain,omitempty"`
	Operator OperatorIndex `json:"operator,omitempty"`
	Bridge   BridgeIndex   `json:"bridge,omitempty"`
}
