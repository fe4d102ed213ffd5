package engine

import "github.com/roach88/strobe/internal/ir"

// TraceHooks are optional observational callbacks for bus aggregation,
// transform steps, and stateful operators.
//
// Hooks are purely observational: they see evaluation happen but cannot
// influence it, and a session without hooks pays nothing - every call site
// is behind a nil check, and no trace payloads are assembled unless the
// matching hook is attached.
//
// Hooks run inside the single-threaded evaluation and must not re-enter
// the session.
type TraceHooks struct {
	// Bus is invoked after each multi-contributor aggregation (and after
	// single-contributor passthroughs) with the per-contributor values in
	// compiler order.
	Bus func(BusTrace)

	// Step is invoked after each transform chain step.
	Step func(StepTrace)

	// Operator is invoked after each stateful operator advances.
	Operator func(OperatorTrace)
}

// BusTrace reports one bus aggregation.
type BusTrace struct {
	Bus    ir.BusIndex
	Name   string
	Mode   ir.CombineMode
	Values []float64 // per-contributor values, compiler order
	Result float64
}

// StepTrace reports one transform chain step.
type StepTrace struct {
	Chain ir.ChainIndex
	Index int // step position within the chain
	Kind  ir.StepKind
	In    float64
	Out   float64
}

// OperatorTrace reports one stateful operator advancement.
type OperatorTrace struct {
	Operator ir.OperatorIndex
	Kind     ir.StatefulOp
	Value    float64
}
