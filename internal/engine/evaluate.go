package engine

import (
	"fmt"
	"math"

	"github.com/roach88/strobe/internal/ir"
)

// Evaluate computes the value of one node for the current frame.
//
// This is the engine's sole required entry point and the at-most-once
// guarantee lives here: on a cache hit (stored stamp equals the frame's
// stamp) the memoized value is returned without recomputation; on a miss
// the node is dispatched by kind, and combinators re-enter Evaluate for
// their operands. One node referenced by any number of consumers within a
// frame is computed exactly once - which is also what keeps stateful
// operators from double-advancing.
//
// ctx.Frame must increase monotonically across frames for this session.
func (s *Session) Evaluate(node ir.NodeIndex, ctx *FrameContext) (float64, error) {
	if s.prog == nil {
		return 0, &ContractError{Code: ErrCodeNoProgram, Message: "no program loaded", Node: -1}
	}
	if node < 0 || int(node) >= len(s.prog.Nodes) {
		return 0, nodeRangeError(node, len(s.prog.Nodes))
	}

	// Stamp 0 means "never computed", so stored stamps are frame+1.
	stamp := ctx.Frame + 1
	if s.stamps[node] == stamp {
		return s.values[node], nil
	}
	if s.stamps[node] == -stamp {
		return 0, &ContractError{
			Code:    ErrCodeCycle,
			Message: "same-frame dependency cycle",
			Node:    node,
		}
	}

	// Negative stamp marks the node in-progress for this frame, so a
	// same-frame cycle is reported as a contract violation instead of
	// recursing without bound.
	s.stamps[node] = -stamp

	s.depth++
	v, err := s.evalNode(node, ctx)
	s.depth--
	if err != nil {
		s.stamps[node] = 0
		if s.depth == 0 {
			s.pending = s.pending[:0]
		}
		return 0, err
	}

	s.stamps[node] = stamp
	s.values[node] = v

	// Delay operators defer their input pull (see evalDelayFrames); the
	// deferred writes settle once the outermost call unwinds, when every
	// node a feedback edge can reference has its value for this frame.
	if s.depth == 0 && len(s.pending) > 0 {
		if err := s.flushPending(ctx); err != nil {
			return 0, err
		}
	}
	return v, nil
}

// flushPending evaluates the inputs of delay operators that ran this frame
// and commits the samples into their rings. Inputs are usually cache hits;
// a feedback edge that was not otherwise reachable is computed here, still
// within the frame. Flushing can enqueue further writes (chained delays),
// so the queue is drained, not ranged.
func (s *Session) flushPending(ctx *FrameContext) error {
	if s.flushing {
		return nil
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	for len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]

		v, err := s.Evaluate(p.input, ctx)
		if err != nil {
			s.pending = s.pending[:0]
			return err
		}
		s.state.floats[p.idx] = v
	}
	return nil
}

// evalNode dispatches one uncached node by kind. The switch is exhaustive
// over the closed NodeKind set; an unknown tag is a contract violation.
func (s *Session) evalNode(node ir.NodeIndex, ctx *FrameContext) (float64, error) {
	n := &s.prog.Nodes[node]

	switch n.Kind {
	case ir.KindConstant:
		if n.Const < 0 || int(n.Const) >= len(s.prog.Consts) {
			return 0, indexRangeError(node, "constant", int(n.Const), len(s.prog.Consts))
		}
		return s.prog.Consts[n.Const], nil

	case ir.KindAbsoluteTime:
		return ctx.TimeMS, nil

	case ir.KindUnaryMap:
		v, err := s.Evaluate(n.A, ctx)
		if err != nil {
			return 0, err
		}
		return applyUnary(node, n.Op, v)

	case ir.KindBinaryZip:
		a, err := s.Evaluate(n.A, ctx)
		if err != nil {
			return 0, err
		}
		b, err := s.Evaluate(n.B, ctx)
		if err != nil {
			return 0, err
		}
		return applyBinary(node, n.BinOp, a, b)

	case ir.KindSelect:
		// Short-circuit is load-bearing: the untaken branch must not be
		// evaluated this frame (guarded divisions, expensive alternates).
		cond, err := s.Evaluate(n.A, ctx)
		if err != nil {
			return 0, err
		}
		if cond > selectThreshold {
			return s.Evaluate(n.B, ctx)
		}
		return s.Evaluate(n.C, ctx)

	case ir.KindExternalInput:
		if ctx.Inputs == nil || !ctx.Inputs.HasValue(n.Slot) {
			// Missing connections are detectable downstream, not fatal.
			return math.NaN(), nil
		}
		return ctx.Inputs.ReadNumber(n.Slot), nil

	case ir.KindBusAggregate:
		if n.Bus < 0 || int(n.Bus) >= len(s.prog.Buses) {
			return 0, indexRangeError(node, "bus", int(n.Bus), len(s.prog.Buses))
		}
		return s.aggregate(n.Bus, ctx)

	case ir.KindTransformPipeline:
		v, err := s.Evaluate(n.A, ctx)
		if err != nil {
			return 0, err
		}
		if n.Chain < 0 || int(n.Chain) >= len(s.prog.Chains) {
			return 0, indexRangeError(node, "chain", int(n.Chain), len(s.prog.Chains))
		}
		return s.applyChain(n.Chain, v, ctx)

	case ir.KindStatefulOperator:
		if n.Operator < 0 || int(n.Operator) >= len(s.prog.Operators) {
			return 0, indexRangeError(node, "operator", int(n.Operator), len(s.prog.Operators))
		}
		return s.evalStateful(n.Operator, ctx)

	case ir.KindBridge:
		if n.Bridge < 0 || int(n.Bridge) >= len(s.prog.Bridges) {
			return 0, indexRangeError(node, "bridge", int(n.Bridge), len(s.prog.Bridges))
		}
		key := s.prog.Bridges[n.Bridge]
		fn, ok := s.bridges[key]
		if !ok {
			return 0, &ContractError{
				Code:    ErrCodeBridgeMissing,
				Message: fmt.Sprintf("no callable registered for bridge key %q", key),
				Node:    node,
			}
		}
		return fn(ctx), nil

	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownKind,
			Message: fmt.Sprintf("unknown node kind %s", n.Kind),
			Node:    node,
		}
	}
}

// selectThreshold is the fixed condition threshold for Select nodes.
const selectThreshold = 0.5
