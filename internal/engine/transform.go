package engine

import (
	"fmt"
	"math"

	"github.com/roach88/strobe/internal/ir"
)

// applyChain threads a source value through an ordered transform chain.
// An empty chain is a strict identity. All steps are pure except slew,
// which reads and writes one float slot in the arena.
func (s *Session) applyChain(chain ir.ChainIndex, value float64, ctx *FrameContext) (float64, error) {
	steps := s.prog.Chains[chain]

	for i := range steps {
		step := &steps[i]
		in := value

		var err error
		switch step.Kind {
		case ir.StepScaleBias:
			value = value*step.Scale + step.Bias

		case ir.StepNormalize:
			switch step.Mode {
			case ir.NormalizeUnipolar:
				value = clamp(value, 0, 1)
			case ir.NormalizeBipolar:
				value = clamp(value, -1, 1)
			default:
				return 0, &ContractError{
					Code:    ErrCodeUnknownStep,
					Message: fmt.Sprintf("unknown normalize range %s", step.Mode),
					Node:    -1,
				}
			}

		case ir.StepQuantize:
			if step.Step != 0 {
				value = math.Round(value/step.Step) * step.Step
			}

		case ir.StepEase:
			value, err = applyCurve(step.Curve, clamp(value, 0, 1))
			if err != nil {
				return 0, err
			}

		case ir.StepMap:
			value, err = applyUnary(-1, step.Op, value)
			if err != nil {
				return 0, err
			}

		case ir.StepSlew:
			value, err = s.slewToward(step.State, value, step.Rate, ctx.DeltaSeconds)
			if err != nil {
				return 0, err
			}

		default:
			return 0, &ContractError{
				Code:    ErrCodeUnknownStep,
				Message: fmt.Sprintf("unknown transform step %s", step.Kind),
				Node:    -1,
			}
		}

		if s.trace != nil && s.trace.Step != nil {
			s.trace.Step(StepTrace{
				Chain: chain,
				Index: i,
				Kind:  step.Kind,
				In:    in,
				Out:   value,
			})
		}
	}

	return value, nil
}

// slewToward exponentially smooths the stored value toward target and
// writes the result back. Shared by the slew transform step and the
// standalone slew operator - the only chain step touching state.
//
// alpha = 1 - exp(-rate*dt): frame-rate independent smoothing that
// approaches the target monotonically, never overshooting.
func (s *Session) slewToward(off ir.FloatOffset, target, rate, deltaSeconds float64) (float64, error) {
	current, err := s.state.Float(off)
	if err != nil {
		return 0, err
	}

	alpha := 1 - math.Exp(-rate*deltaSeconds)
	next := current + (target-current)*alpha

	if err := s.state.SetFloat(off, next); err != nil {
		return 0, err
	}
	return next, nil
}
