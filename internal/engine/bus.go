package engine

import (
	"fmt"

	"github.com/roach88/strobe/internal/ir"
)

// aggregate combines a bus's ordered contributors into one value.
//
// Contributor order was baked in by the compiler (priority key then stable
// identity); the engine trusts it and never re-sorts. Unlike Select, every
// contributor is evaluated - no short-circuiting, even for first/last -
// because contributors may be stateful and must advance this frame.
func (s *Session) aggregate(bus ir.BusIndex, ctx *FrameContext) (float64, error) {
	b := &s.prog.Buses[bus]
	contributors := b.Contributors

	if len(contributors) == 0 {
		// Silent bus: configured default, nothing evaluated.
		return b.Default, nil
	}

	if len(contributors) == 1 {
		v, err := s.Evaluate(contributors[0], ctx)
		if err != nil {
			return 0, err
		}
		if s.trace != nil && s.trace.Bus != nil {
			s.traceBus(bus, b, []float64{v}, v)
		}
		return v, nil
	}

	values := make([]float64, len(contributors))
	for i, c := range contributors {
		v, err := s.Evaluate(c, ctx)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	result, err := combine(b.Mode, values)
	if err != nil {
		return 0, err
	}
	s.traceBus(bus, b, values, result)
	return result, nil
}

// combine folds contributor values per mode. values is never empty here.
func combine(mode ir.CombineMode, values []float64) (float64, error) {
	switch mode {
	case ir.CombineSum:
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total, nil

	case ir.CombineAverage:
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total / float64(len(values)), nil

	case ir.CombineMin:
		lowest := values[0]
		for _, v := range values[1:] {
			if v < lowest {
				lowest = v
			}
		}
		return lowest, nil

	case ir.CombineMax:
		highest := values[0]
		for _, v := range values[1:] {
			if v > highest {
				highest = v
			}
		}
		return highest, nil

	case ir.CombineFirst:
		return values[0], nil

	case ir.CombineLast:
		return values[len(values)-1], nil

	default:
		return 0, &ContractError{
			Code:    ErrCodeUnknownCombine,
			Message: fmt.Sprintf("unknown combine mode %s", mode),
			Node:    -1,
		}
	}
}

// traceBus notifies the bus hook, if attached.
func (s *Session) traceBus(bus ir.BusIndex, b *ir.BusDescriptor, values []float64, result float64) {
	if s.trace == nil || s.trace.Bus == nil {
		return
	}
	s.trace.Bus(BusTrace{
		Bus:    bus,
		Name:   b.Name,
		Mode:   b.Mode,
		Values: values,
		Result: result,
	})
}
