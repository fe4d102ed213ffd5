package engine

import (
	"fmt"
	"math"

	"github.com/roach88/strobe/internal/ir"
)

// evalStateful evaluates one stateful operator instance and advances its
// arena slots. The dispatcher's at-most-once guarantee means this runs
// exactly once per frame per instance regardless of fan-in - without it, a
// delay line read by two consumers would advance twice.
func (s *Session) evalStateful(op ir.OperatorIndex, ctx *FrameContext) (float64, error) {
	spec := &s.prog.Operators[op]

	var result float64
	var err error

	switch spec.Op {
	case ir.OpIntegrate:
		result, err = s.evalIntegrate(spec, ctx)
	case ir.OpSampleHold:
		result, err = s.evalSampleHold(spec, ctx)
	case ir.OpSlew:
		result, err = s.evalSlew(spec, ctx)
	case ir.OpDelayFrames:
		result, err = s.evalDelayFrames(spec, ctx)
	case ir.OpDelayMS:
		result, err = s.evalDelayMS(spec, ctx)
	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownOperator,
			Message: fmt.Sprintf("unknown stateful operator %s", spec.Op),
			Node:    -1,
		}
	}
	if err != nil {
		return 0, err
	}

	if s.trace != nil && s.trace.Operator != nil {
		s.trace.Operator(OperatorTrace{
			Operator: op,
			Kind:     spec.Op,
			Value:    result,
		})
	}
	return result, nil
}

// evalIntegrate accumulates input*deltaSeconds. Absent input integrates 0,
// so the accumulator simply holds.
func (s *Session) evalIntegrate(spec *ir.StatefulSpec, ctx *FrameContext) (float64, error) {
	input := 0.0
	if spec.Input != ir.NoNode {
		v, err := s.Evaluate(spec.Input, ctx)
		if err != nil {
			return 0, err
		}
		input = v
	}

	current, err := s.state.Float(spec.FloatOff)
	if err != nil {
		return 0, err
	}
	next := current + input*ctx.DeltaSeconds
	if err := s.state.SetFloat(spec.FloatOff, next); err != nil {
		return 0, err
	}
	return next, nil
}

// evalSampleHold samples the input on a rising trigger edge (was <= 0.5
// last frame, now > 0.5) and holds otherwise. Slot layout: [held, lastTrig].
func (s *Session) evalSampleHold(spec *ir.StatefulSpec, ctx *FrameContext) (float64, error) {
	input, err := s.Evaluate(spec.Input, ctx)
	if err != nil {
		return 0, err
	}
	trigger, err := s.Evaluate(spec.Trigger, ctx)
	if err != nil {
		return 0, err
	}

	heldOff := spec.FloatOff
	trigOff := spec.FloatOff + 1

	lastTrigger, err := s.state.Float(trigOff)
	if err != nil {
		return 0, err
	}

	if lastTrigger <= selectThreshold && trigger > selectThreshold {
		if err := s.state.SetFloat(heldOff, input); err != nil {
			return 0, err
		}
	}
	if err := s.state.SetFloat(trigOff, trigger); err != nil {
		return 0, err
	}

	return s.state.Float(heldOff)
}

// evalSlew is the standalone form of the slew transform step.
func (s *Session) evalSlew(spec *ir.StatefulSpec, ctx *FrameContext) (float64, error) {
	target, err := s.Evaluate(spec.Input, ctx)
	if err != nil {
		return 0, err
	}
	return s.slewToward(spec.FloatOff, target, spec.Rate, ctx.DeltaSeconds)
}

// pendingWrite is a delay input pull deferred to the end of the outermost
// Evaluate call.
type pendingWrite struct {
	input ir.NodeIndex
	idx   int // absolute float arena index of the slot to write
}

// evalDelayFrames delays input by a whole number of frames through a ring
// of FrameCount+1 float slots and one integer cursor slot. The ring starts
// as silence: the first FrameCount reads return 0.
//
// The input is NOT pulled here. The oldest sample is returned immediately
// and the write of this frame's input is deferred to flushPending, so the
// input edge may legally point anywhere in the graph - including back at a
// consumer of this delay, which is the engine's one-frame feedback form.
func (s *Session) evalDelayFrames(spec *ir.StatefulSpec, ctx *FrameContext) (float64, error) {
	size := spec.FrameCount + 1
	if err := s.state.checkFloatRange(spec.FloatOff, size); err != nil {
		return 0, err
	}

	cursor, err := s.state.Int(spec.IntOff)
	if err != nil {
		return 0, err
	}
	// A restored snapshot from a differently sized ring may carry a stale
	// cursor; fold it into range rather than index out of the region.
	cur := ((int(cursor) % size) + size) % size
	oldest := (cur + 1) % size

	var out float64
	if size == 1 {
		// Zero-frame delay is a passthrough. Feedback through it would be
		// a same-frame cycle, which the dispatcher rejects.
		input, err := s.Evaluate(spec.Input, ctx)
		if err != nil {
			return 0, err
		}
		s.state.floats[int(spec.FloatOff)+cur] = input
		out = input
	} else {
		out = s.state.floats[int(spec.FloatOff)+oldest]
		s.pending = append(s.pending, pendingWrite{
			input: spec.Input,
			idx:   int(spec.FloatOff) + cur,
		})
	}

	if err := s.state.SetInt(spec.IntOff, int64(oldest)); err != nil {
		return 0, err
	}
	return out, nil
}

// evalDelayMS delays input by approximately DelayMS milliseconds. The
// sample offset is re-derived from the frame's delta time, so the delay
// tracks the host's actual frame rate; it is clamped to BufferSize-1.
// Like evalDelayFrames, the input pull is deferred to flushPending
// whenever the effective offset permits feedback.
func (s *Session) evalDelayMS(spec *ir.StatefulSpec, ctx *FrameContext) (float64, error) {
	size := spec.BufferSize
	if err := s.state.checkFloatRange(spec.FloatOff, size); err != nil {
		return 0, err
	}

	offset := 0
	if ctx.DeltaSeconds > 0 {
		offset = int(math.Round(spec.DelayMS / 1000 / ctx.DeltaSeconds))
	}
	if offset < 0 {
		offset = 0
	}
	if offset > size-1 {
		offset = size - 1
	}

	cursor, err := s.state.Int(spec.IntOff)
	if err != nil {
		return 0, err
	}
	cur := ((int(cursor) % size) + size) % size

	var out float64
	if offset == 0 {
		// Sub-frame delay rounds to a passthrough at this frame rate.
		input, err := s.Evaluate(spec.Input, ctx)
		if err != nil {
			return 0, err
		}
		s.state.floats[int(spec.FloatOff)+cur] = input
		out = input
	} else {
		readIdx := (cur - offset + size) % size
		out = s.state.floats[int(spec.FloatOff)+readIdx]
		s.pending = append(s.pending, pendingWrite{
			input: spec.Input,
			idx:   int(spec.FloatOff) + cur,
		})
	}

	if err := s.state.SetInt(spec.IntOff, int64((cur+1)%size)); err != nil {
		return 0, err
	}
	return out, nil
}
