package compiler

import (
	"fmt"

	"github.com/roach88/strobe/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNodeRef           = "E200" // node reference out of range
	ErrConstRef          = "E201" // constant pool reference out of range
	ErrBusRef            = "E202" // bus table reference out of range
	ErrChainRef          = "E203" // chain table reference out of range
	ErrOperatorRef       = "E204" // operator table reference out of range
	ErrBridgeRef         = "E205" // bridge table reference out of range
	ErrOperatorShape     = "E206" // operator parameters inconsistent
	ErrStateRange        = "E207" // state slots outside the arena
	ErrDuplicateIdentity = "E208" // two cells share an identity
	ErrOutputRef         = "E209" // output references an invalid node
	ErrPureCycle         = "E210" // cycle with no delay edge
)

// ValidationError represents one program validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateProgram checks a compiled program against the contracts the
// engine assumes. Returns all errors found (does not fail fast). Programs
// built through Builder are validated on Build; this entry point also
// covers programs deserialized from storage.
func ValidateProgram(p *ir.Program) []ValidationError {
	var errs []ValidationError

	nodeCount := len(p.Nodes)
	ref := func(field string, n ir.NodeIndex) {
		if int(n) < 0 || int(n) >= nodeCount {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("node reference %d outside table of %d", n, nodeCount),
				Code:    ErrNodeRef,
			})
		}
	}

	for i := range p.Nodes {
		n := &p.Nodes[i]
		field := fmt.Sprintf("nodes[%d]", i)

		switch n.Kind {
		case ir.KindConstant:
			if int(n.Const) < 0 || int(n.Const) >= len(p.Consts) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("constant index %d outside pool of %d", n.Const, len(p.Consts)),
					Code:    ErrConstRef,
				})
			}
		case ir.KindAbsoluteTime, ir.KindExternalInput:
			// No references.
		case ir.KindUnaryMap:
			ref(field+".a", n.A)
		case ir.KindBinaryZip:
			ref(field+".a", n.A)
			ref(field+".b", n.B)
		case ir.KindSelect:
			ref(field+".cond", n.A)
			ref(field+".then", n.B)
			ref(field+".else", n.C)
		case ir.KindBusAggregate:
			if int(n.Bus) < 0 || int(n.Bus) >= len(p.Buses) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("bus index %d outside table of %d", n.Bus, len(p.Buses)),
					Code:    ErrBusRef,
				})
			}
		case ir.KindTransformPipeline:
			ref(field+".source", n.A)
			if int(n.Chain) < 0 || int(n.Chain) >= len(p.Chains) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("chain index %d outside table of %d", n.Chain, len(p.Chains)),
					Code:    ErrChainRef,
				})
			}
		case ir.KindStatefulOperator:
			if int(n.Operator) < 0 || int(n.Operator) >= len(p.Operators) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("operator index %d outside table of %d", n.Operator, len(p.Operators)),
					Code:    ErrOperatorRef,
				})
			}
		case ir.KindBridge:
			if int(n.Bridge) < 0 || int(n.Bridge) >= len(p.Bridges) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("bridge index %d outside table of %d", n.Bridge, len(p.Bridges)),
					Code:    ErrBridgeRef,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown node kind %d", n.Kind),
				Code:    ErrNodeRef,
			})
		}
	}

	for i, bus := range p.Buses {
		for j, c := range bus.Contributors {
			ref(fmt.Sprintf("buses[%d].contributors[%d]", i, j), c)
		}
	}

	errs = append(errs, validateOperators(p, ref)...)
	errs = append(errs, validateChains(p)...)
	errs = append(errs, validateLayout(p)...)

	for name, root := range p.Outputs {
		if int(root) < 0 || int(root) >= nodeCount {
			errs = append(errs, ValidationError{
				Field:   "outputs." + name,
				Message: fmt.Sprintf("output root %d outside node table of %d", root, nodeCount),
				Code:    ErrOutputRef,
			})
		}
	}

	// Cycle analysis is meaningless over broken references.
	if len(errs) == 0 {
		if cycle := findPureCycle(p); cycle != nil {
			errs = append(errs, ValidationError{
				Field:   "nodes",
				Message: fmt.Sprintf("same-frame cycle through %v; route feedback through a delay operator", cycle),
				Code:    ErrPureCycle,
			})
		}
	}

	return errs
}

// validateOperators checks each stateful spec's shape: operand presence,
// parameter ranges and that the declared slot lengths match what the
// runtime will touch.
func validateOperators(p *ir.Program, ref func(string, ir.NodeIndex)) []ValidationError {
	var errs []ValidationError
	shape := func(i int, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("operators[%d]", i),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrOperatorShape,
		})
	}

	for i := range p.Operators {
		spec := &p.Operators[i]
		field := fmt.Sprintf("operators[%d]", i)

		if spec.Input != ir.NoNode {
			ref(field+".input", spec.Input)
		}
		if spec.Trigger != ir.NoNode {
			ref(field+".trigger", spec.Trigger)
		}

		switch spec.Op {
		case ir.OpIntegrate:
			if spec.FloatLen != 1 {
				shape(i, "integrate needs 1 float slot, has %d", spec.FloatLen)
			}
		case ir.OpSampleHold:
			if spec.Input == ir.NoNode {
				shape(i, "sample-hold requires an input")
			}
			if spec.Trigger == ir.NoNode {
				shape(i, "sample-hold requires a trigger")
			}
			if spec.FloatLen != 2 {
				shape(i, "sample-hold needs 2 float slots, has %d", spec.FloatLen)
			}
		case ir.OpSlew:
			if spec.Input == ir.NoNode {
				shape(i, "slew requires an input")
			}
			if spec.FloatLen != 1 {
				shape(i, "slew needs 1 float slot, has %d", spec.FloatLen)
			}
		case ir.OpDelayFrames:
			if spec.Input == ir.NoNode {
				shape(i, "delay input never bound")
			}
			if spec.FrameCount < 0 {
				shape(i, "negative frame count %d", spec.FrameCount)
			}
			if spec.FloatLen != spec.FrameCount+1 {
				shape(i, "delay-frames ring needs %d float slots, has %d", spec.FrameCount+1, spec.FloatLen)
			}
			if spec.IntLen != 1 {
				shape(i, "delay-frames needs 1 int slot, has %d", spec.IntLen)
			}
		case ir.OpDelayMS:
			if spec.Input == ir.NoNode {
				shape(i, "delay input never bound")
			}
			if spec.BufferSize < 1 {
				shape(i, "delay-ms buffer size %d", spec.BufferSize)
			}
			if spec.FloatLen != spec.BufferSize {
				shape(i, "delay-ms ring needs %d float slots, has %d", spec.BufferSize, spec.FloatLen)
			}
			if spec.IntLen != 1 {
				shape(i, "delay-ms needs 1 int slot, has %d", spec.IntLen)
			}
		default:
			shape(i, "unknown operator %d", spec.Op)
		}
	}
	return errs
}

func validateChains(p *ir.Program) []ValidationError {
	var errs []ValidationError
	for i, chain := range p.Chains {
		for j, step := range chain {
			if step.Kind == ir.StepSlew {
				if int(step.State) < 0 || int(step.State) >= p.Layout.FloatSlots {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("chains[%d][%d]", i, j),
						Message: fmt.Sprintf("slew state slot %d outside arena of %d", step.State, p.Layout.FloatSlots),
						Code:    ErrStateRange,
					})
				}
			}
		}
	}
	return errs
}

func validateLayout(p *ir.Program) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(p.Layout.Cells))

	for i, cell := range p.Layout.Cells {
		field := fmt.Sprintf("layout.cells[%d]", i)

		if seen[cell.Identity] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate identity %q", cell.Identity),
				Code:    ErrDuplicateIdentity,
			})
		}
		seen[cell.Identity] = true

		if cell.FloatLen < 0 || int(cell.FloatOff) < 0 || int(cell.FloatOff)+cell.FloatLen > p.Layout.FloatSlots {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("float slots [%d,%d) outside arena of %d", cell.FloatOff, int(cell.FloatOff)+cell.FloatLen, p.Layout.FloatSlots),
				Code:    ErrStateRange,
			})
		}
		if cell.IntLen < 0 || int(cell.IntOff) < 0 || int(cell.IntOff)+cell.IntLen > p.Layout.IntSlots {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("int slots [%d,%d) outside arena of %d", cell.IntOff, int(cell.IntOff)+cell.IntLen, p.Layout.IntSlots),
				Code:    ErrStateRange,
			})
		}
	}
	return errs
}
