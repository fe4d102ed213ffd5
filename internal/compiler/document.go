package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strobe/internal/ir"
)

// CompileError represents a document compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// CompilePatchSource compiles CUE source text containing a top-level
// "patch" struct. Convenience wrapper over CompilePatch for hosts and
// tests holding documents as strings.
func CompilePatchSource(src string) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	patch := v.LookupPath(cue.ParsePath("patch"))
	if !patch.Exists() {
		return nil, &CompileError{
			Field:   "patch",
			Message: "document has no top-level patch struct",
			Pos:     v.Pos(),
		}
	}
	return CompilePatch(patch)
}

// CompilePatch parses a CUE patch value into a compiled Program.
//
// Schema:
//
//	patch: {
//		name:    string           // stable identity prefix for state cells
//		inputs?: [...string]      // fixes external slot order
//		nodes:   [...{id: string, kind: string, ...}]
//		outputs: {<name>: <node id>}
//	}
//
// Nodes reference each other by id; a reference must point at an id
// declared earlier in the list, except a delay-frames input, which may
// point forward to close a feedback loop.
//
// Stateful nodes derive their arena cell identity as "<name>/<id>" (a slew
// step inside a pipeline as "<name>/<id>/<step index>"), so state survives
// recompilation as long as the document keeps its ids.
func CompilePatch(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &docCompiler{
		b:     NewBuilder(),
		named: make(map[string]ir.NodeIndex),
	}

	var err error
	d.patchName, err = requireString(v, "name")
	if err != nil {
		return nil, err
	}

	if inputs := v.LookupPath(cue.ParsePath("inputs")); inputs.Exists() {
		iter, err := inputs.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			d.b.DeclareInput(name)
		}
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{Field: "nodes", Message: "nodes list is required", Pos: v.Pos()}
	}
	iter, lerr := nodesVal.List()
	if lerr != nil {
		return nil, formatCUEError(lerr)
	}
	for iter.Next() {
		if err := d.compileNode(iter.Value()); err != nil {
			return nil, err
		}
	}
	if err := d.closeFeedback(); err != nil {
		return nil, err
	}

	outputsVal := v.LookupPath(cue.ParsePath("outputs"))
	if outputsVal.Exists() {
		fields, err := outputsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fields.Next() {
			id, err := fields.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			node, ok := d.named[id]
			if !ok {
				return nil, &CompileError{
					Field:   "outputs." + fields.Label(),
					Message: fmt.Sprintf("unknown node id %q", id),
					Pos:     fields.Value().Pos(),
				}
			}
			d.b.Output(fields.Label(), node)
		}
	}

	return d.b.Build()
}

// docCompiler carries per-document decoding state.
type docCompiler struct {
	b         *Builder
	patchName string
	named     map[string]ir.NodeIndex

	// feedback delays whose input id still needs resolving after the full
	// node list has been read.
	feedback []feedbackRef
}

type feedbackRef struct {
	delay ir.NodeIndex
	input string
	pos   token.Pos
}

// identity derives the stable state cell identity for a stateful node.
func (d *docCompiler) identity(id string) string {
	return d.patchName + "/" + id
}

func (d *docCompiler) compileNode(v cue.Value) error {
	id, err := requireString(v, "id")
	if err != nil {
		return err
	}
	if _, dup := d.named[id]; dup {
		return &CompileError{Field: "nodes", Message: fmt.Sprintf("duplicate node id %q", id), Pos: v.Pos()}
	}
	kind, err := requireString(v, "kind")
	if err != nil {
		return err
	}

	var node ir.NodeIndex
	switch kind {
	case "const":
		val, err := requireFloat(v, "value")
		if err != nil {
			return err
		}
		node = d.b.Constant(val)

	case "time":
		node = d.b.Time()

	case "input":
		slot, err := requireString(v, "slot")
		if err != nil {
			return err
		}
		node = d.b.Input(slot)

	case "bridge":
		key, err := requireString(v, "key")
		if err != nil {
			return err
		}
		node = d.b.Bridge(key)

	case "unary":
		opName, err := requireString(v, "op")
		if err != nil {
			return err
		}
		op, perr := ir.ParseUnaryOp(opName)
		if perr != nil {
			return &CompileError{Field: "op", Message: perr.Error(), Pos: v.Pos()}
		}
		a, err := d.ref(v, "a")
		if err != nil {
			return err
		}
		node = d.b.Unary(op, a)

	case "binary":
		opName, err := requireString(v, "op")
		if err != nil {
			return err
		}
		op, perr := ir.ParseBinaryOp(opName)
		if perr != nil {
			return &CompileError{Field: "op", Message: perr.Error(), Pos: v.Pos()}
		}
		a, err := d.ref(v, "a")
		if err != nil {
			return err
		}
		b, err := d.ref(v, "b")
		if err != nil {
			return err
		}
		node = d.b.Binary(op, a, b)

	case "select":
		cond, err := d.ref(v, "cond")
		if err != nil {
			return err
		}
		then, err := d.ref(v, "then")
		if err != nil {
			return err
		}
		els, err := d.ref(v, "else")
		if err != nil {
			return err
		}
		node = d.b.Select(cond, then, els)

	case "integrate":
		input := ir.NoNode
		if v.LookupPath(cue.ParsePath("input")).Exists() {
			input, err = d.ref(v, "input")
			if err != nil {
				return err
			}
		}
		node = d.b.Integrate(input, d.identity(id))

	case "sample-hold":
		input, err := d.ref(v, "input")
		if err != nil {
			return err
		}
		trigger, err := d.ref(v, "trigger")
		if err != nil {
			return err
		}
		node = d.b.SampleHold(input, trigger, d.identity(id))

	case "slew":
		input, err := d.ref(v, "input")
		if err != nil {
			return err
		}
		rate, err := requireFloat(v, "rate")
		if err != nil {
			return err
		}
		node = d.b.Slew(input, rate, d.identity(id))

	case "delay-frames":
		frames, err := requireInt(v, "frames")
		if err != nil {
			return err
		}
		node, err = d.compileDelay(v, id, func(input ir.NodeIndex) ir.NodeIndex {
			return d.b.DelayFrames(input, int(frames), d.identity(id))
		}, func() ir.NodeIndex {
			return d.b.FeedbackDelayFrames(int(frames), d.identity(id))
		})
		if err != nil {
			return err
		}

	case "delay-ms":
		ms, err := requireFloat(v, "ms")
		if err != nil {
			return err
		}
		buffer := int64(defaultDelayBuffer)
		if v.LookupPath(cue.ParsePath("buffer")).Exists() {
			buffer, err = requireInt(v, "buffer")
			if err != nil {
				return err
			}
		}
		input, err := d.ref(v, "input")
		if err != nil {
			return err
		}
		node = d.b.DelayMS(input, ms, int(buffer), d.identity(id))

	case "pipeline":
		source, err := d.ref(v, "source")
		if err != nil {
			return err
		}
		steps, err := d.compileSteps(v, id)
		if err != nil {
			return err
		}
		node = d.b.Pipeline(source, steps...)

	case "bus":
		node, err = d.compileBus(v)
		if err != nil {
			return err
		}

	default:
		return &CompileError{Field: "kind", Message: fmt.Sprintf("unknown node kind %q", kind), Pos: v.Pos()}
	}

	d.named[id] = node
	return nil
}

// defaultDelayBuffer is the delay-ms ring capacity when a document does not
// set one. 256 samples covers several seconds at interactive frame rates.
const defaultDelayBuffer = 256

// compileDelay builds a frame delay, deferring input resolution when the
// referenced id has not been declared yet (a feedback edge).
func (d *docCompiler) compileDelay(v cue.Value, id string, direct func(ir.NodeIndex) ir.NodeIndex, deferred func() ir.NodeIndex) (ir.NodeIndex, error) {
	inputID, err := requireString(v, "input")
	if err != nil {
		return ir.NoNode, err
	}
	if input, ok := d.named[inputID]; ok {
		return direct(input), nil
	}
	node := deferred()
	d.feedback = append(d.feedback, feedbackRef{
		delay: node,
		input: inputID,
		pos:   v.Pos(),
	})
	return node, nil
}

// closeFeedback resolves delay inputs that pointed forward.
func (d *docCompiler) closeFeedback() error {
	for _, fb := range d.feedback {
		input, ok := d.named[fb.input]
		if !ok {
			return &CompileError{
				Field:   "input",
				Message: fmt.Sprintf("unknown node id %q", fb.input),
				Pos:     fb.pos,
			}
		}
		d.b.BindDelayInput(fb.delay, input)
	}
	return nil
}

func (d *docCompiler) compileSteps(v cue.Value, pipelineID string) ([]Step, error) {
	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, nil
	}
	iter, err := stepsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var steps []Step
	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		kindName, err := requireString(sv, "kind")
		if err != nil {
			return nil, err
		}
		kind, perr := ir.ParseStepKind(kindName)
		if perr != nil {
			return nil, &CompileError{Field: "steps", Message: perr.Error(), Pos: sv.Pos()}
		}

		step := Step{Kind: kind}
		switch kind {
		case ir.StepScaleBias:
			if step.Scale, err = requireFloat(sv, "scale"); err != nil {
				return nil, err
			}
			if step.Bias, err = requireFloat(sv, "bias"); err != nil {
				return nil, err
			}
		case ir.StepNormalize:
			rangeName, err := requireString(sv, "range")
			if err != nil {
				return nil, err
			}
			mode, perr := ir.ParseNormalizeMode(rangeName)
			if perr != nil {
				return nil, &CompileError{Field: "range", Message: perr.Error(), Pos: sv.Pos()}
			}
			step.Mode = mode
		case ir.StepQuantize:
			if step.Step, err = requireFloat(sv, "step"); err != nil {
				return nil, err
			}
		case ir.StepEase:
			curveName, err := requireString(sv, "curve")
			if err != nil {
				return nil, err
			}
			curve, perr := ir.ParseCurveID(curveName)
			if perr != nil {
				return nil, &CompileError{Field: "curve", Message: perr.Error(), Pos: sv.Pos()}
			}
			step.Curve = curve
		case ir.StepMap:
			opName, err := requireString(sv, "op")
			if err != nil {
				return nil, err
			}
			op, perr := ir.ParseUnaryOp(opName)
			if perr != nil {
				return nil, &CompileError{Field: "op", Message: perr.Error(), Pos: sv.Pos()}
			}
			step.Op = op
		case ir.StepSlew:
			if step.Rate, err = requireFloat(sv, "rate"); err != nil {
				return nil, err
			}
			step.Identity = fmt.Sprintf("%s/%d", d.identity(pipelineID), i)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (d *docCompiler) compileBus(v cue.Value) (ir.NodeIndex, error) {
	modeName, err := requireString(v, "mode")
	if err != nil {
		return ir.NoNode, err
	}
	mode, perr := ir.ParseCombineMode(modeName)
	if perr != nil {
		return ir.NoNode, &CompileError{Field: "mode", Message: perr.Error(), Pos: v.Pos()}
	}

	def := 0.0
	if v.LookupPath(cue.ParsePath("default")).Exists() {
		if def, err = requireFloat(v, "default"); err != nil {
			return ir.NoNode, err
		}
	}

	name := ""
	if v.LookupPath(cue.ParsePath("name")).Exists() {
		if name, err = requireString(v, "name"); err != nil {
			return ir.NoNode, err
		}
	}

	bus := d.b.Bus(name, mode, def)

	if contribs := v.LookupPath(cue.ParsePath("contributors")); contribs.Exists() {
		iter, err := contribs.List()
		if err != nil {
			return ir.NoNode, formatCUEError(err)
		}
		for iter.Next() {
			cv := iter.Value()
			node, err := d.ref(cv, "node")
			if err != nil {
				return ir.NoNode, err
			}
			priority := int64(0)
			if cv.LookupPath(cue.ParsePath("priority")).Exists() {
				if priority, err = requireInt(cv, "priority"); err != nil {
					return ir.NoNode, err
				}
			}
			d.b.Contribute(bus, node, int(priority))
		}
	}
	return bus, nil
}

// ref resolves a node id field against already-declared nodes.
func (d *docCompiler) ref(v cue.Value, field string) (ir.NodeIndex, error) {
	id, err := requireString(v, field)
	if err != nil {
		return ir.NoNode, err
	}
	node, ok := d.named[id]
	if !ok {
		return ir.NoNode, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown node id %q (forward references are only legal on delay inputs)", id),
			Pos:     v.Pos(),
		}
	}
	return node, nil
}

func requireString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requireFloat(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

func requireInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}
