package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/strobe/internal/ir"
)

// ContractError represents a compiler/runtime contract violation detected
// during evaluation.
//
// Contract violations include:
//   - Node, bus, chain, operator, or constant index out of range
//   - Unknown node kind, opcode, combine mode, step kind, or curve
//   - State slot offset outside the arena
//   - Bridge node whose callable was never registered
//
// These are fatal for the current evaluation and always raised, never
// silently degraded: they mean the compiled program and the engine disagree.
// Missing external inputs are NOT contract violations; they propagate as NaN.
type ContractError struct {
	// Code identifies the violation category.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string

	// Node identifies the node under evaluation when the violation was
	// detected, or -1 if no single node applies.
	Node ir.NodeIndex
}

// ContractErrorCode categorizes contract violations.
type ContractErrorCode string

const (
	// ErrCodeNodeRange indicates a node index outside the node table.
	ErrCodeNodeRange ContractErrorCode = "NODE_OUT_OF_RANGE"

	// ErrCodeIndexRange indicates a constant/bus/chain/operator/bridge
	// index outside its table.
	ErrCodeIndexRange ContractErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeUnknownKind indicates an unrecognized node kind tag.
	ErrCodeUnknownKind ContractErrorCode = "UNKNOWN_NODE_KIND"

	// ErrCodeUnknownOpcode indicates an opcode outside the fixed set.
	ErrCodeUnknownOpcode ContractErrorCode = "UNKNOWN_OPCODE"

	// ErrCodeUnknownCombine indicates an unrecognized bus combine mode.
	ErrCodeUnknownCombine ContractErrorCode = "UNKNOWN_COMBINE_MODE"

	// ErrCodeUnknownStep indicates an unrecognized transform step kind.
	ErrCodeUnknownStep ContractErrorCode = "UNKNOWN_STEP_KIND"

	// ErrCodeUnknownCurve indicates an unregistered easing curve id.
	ErrCodeUnknownCurve ContractErrorCode = "UNKNOWN_CURVE"

	// ErrCodeUnknownOperator indicates an unrecognized stateful operator.
	ErrCodeUnknownOperator ContractErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeStateRange indicates a state slot offset outside the arena.
	ErrCodeStateRange ContractErrorCode = "STATE_OUT_OF_RANGE"

	// ErrCodeBridgeMissing indicates a bridge key with no registered
	// callable on the session.
	ErrCodeBridgeMissing ContractErrorCode = "BRIDGE_MISSING"

	// ErrCodeNoProgram indicates evaluation was requested before any
	// program was loaded.
	ErrCodeNoProgram ContractErrorCode = "NO_PROGRAM"

	// ErrCodeCycle indicates a same-frame dependency cycle reached the
	// dispatcher. Pure cycles are rejected at compile time; feedback is
	// only legal through a delay operator's input edge, which resolves
	// against last frame's output and never re-enters the cycle.
	ErrCodeCycle ContractErrorCode = "EVALUATION_CYCLE"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractError reports whether err is (or wraps) a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

func nodeRangeError(node ir.NodeIndex, tableLen int) *ContractError {
	return &ContractError{
		Code:    ErrCodeNodeRange,
		Message: fmt.Sprintf("node index %d outside table of %d", node, tableLen),
		Node:    -1,
	}
}

func indexRangeError(node ir.NodeIndex, table string, idx, tableLen int) *ContractError {
	return &ContractError{
		Code:    ErrCodeIndexRange,
		Message: fmt.Sprintf("%s index %d outside table of %d", table, idx, tableLen),
		Node:    node,
	}
}

func stateRangeError(lane string, off, slots int) *ContractError {
	return &ContractError{
		Code:    ErrCodeStateRange,
		Message: fmt.Sprintf("%s slot %d outside arena of %d", lane, off, slots),
		Node:    -1,
	}
}
