package compiler

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/strobe/internal/ir"
)

// BuildError describes an invalid Builder call. Builder methods record
// errors instead of returning them so graph construction code stays flat;
// Build reports everything collected.
type BuildError struct {
	Op      string // builder method that was misused
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Builder constructs a Program incrementally.
//
// Node constructors return dense indices into the growing node table, and
// later nodes reference earlier ones by index, so a graph built through
// Builder is acyclic by construction - except for delay feedback, which is
// opened explicitly with FeedbackDelayFrames/BindDelayInput.
//
// A Builder is single-use: call Build once, then discard it.
type Builder struct {
	nodes     []ir.Node
	consts    []float64
	constIdx  map[uint64]ir.ConstIndex
	buses     []busBuild
	chains    []ir.TransformChain
	operators []ir.StatefulSpec
	bridges   []string
	bridgeIdx map[string]ir.BridgeIndex
	outputs   map[string]ir.NodeIndex
	slots     map[string]ir.SlotKey
	inputs    map[string]ir.NodeIndex
	timeNode  ir.NodeIndex

	cells      []ir.StateCell
	seen       map[string]bool
	floatSlots int
	intSlots   int

	errs []error
}

type busBuild struct {
	name    string
	mode    ir.CombineMode
	def     float64
	entries []busEntry
}

type busEntry struct {
	node     ir.NodeIndex
	priority int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		constIdx:  make(map[uint64]ir.ConstIndex),
		bridgeIdx: make(map[string]ir.BridgeIndex),
		outputs:   make(map[string]ir.NodeIndex),
		slots:     make(map[string]ir.SlotKey),
		inputs:    make(map[string]ir.NodeIndex),
		seen:      make(map[string]bool),
		timeNode:  ir.NoNode,
	}
}

func (b *Builder) addNode(n ir.Node) ir.NodeIndex {
	b.nodes = append(b.nodes, n)
	return ir.NodeIndex(len(b.nodes) - 1)
}

func (b *Builder) fail(op, format string, args ...any) {
	b.errs = append(b.errs, &BuildError{Op: op, Message: fmt.Sprintf(format, args...)})
}

// Constant adds a constant node. Values are pooled by bit pattern, so two
// calls with the same value (including the same NaN payload) share one pool
// entry; +0 and -0 remain distinct.
func (b *Builder) Constant(v float64) ir.NodeIndex {
	bits := math.Float64bits(v)
	idx, ok := b.constIdx[bits]
	if !ok {
		b.consts = append(b.consts, v)
		idx = ir.ConstIndex(len(b.consts) - 1)
		b.constIdx[bits] = idx
	}
	return b.addNode(ir.Node{Kind: ir.KindConstant, Const: idx})
}

// Time returns the absolute-time node, creating it on first use. One node
// suffices: every consumer sees the same frame-stamped value.
func (b *Builder) Time() ir.NodeIndex {
	if b.timeNode == ir.NoNode {
		b.timeNode = b.addNode(ir.Node{Kind: ir.KindAbsoluteTime})
	}
	return b.timeNode
}

// Unary adds a pure unary node over a.
func (b *Builder) Unary(op ir.UnaryOp, a ir.NodeIndex) ir.NodeIndex {
	return b.addNode(ir.Node{Kind: ir.KindUnaryMap, Op: op, A: a})
}

// Binary adds a pure binary node over a and bb.
func (b *Builder) Binary(op ir.BinaryOp, a, bb ir.NodeIndex) ir.NodeIndex {
	return b.addNode(ir.Node{Kind: ir.KindBinaryZip, BinOp: op, A: a, B: bb})
}

// Select adds a conditional node: cond > 0.5 picks then, otherwise els.
// Only the taken branch is evaluated at runtime.
func (b *Builder) Select(cond, then, els ir.NodeIndex) ir.NodeIndex {
	return b.addNode(ir.Node{Kind: ir.KindSelect, A: cond, B: then, C: els})
}

// Input adds (or returns) the external input node for a named slot. Slot
// keys are assigned densely in first-use order; DeclareInput fixes an
// order up front when documents need one.
func (b *Builder) Input(name string) ir.NodeIndex {
	if node, ok := b.inputs[name]; ok {
		return node
	}
	key := b.DeclareInput(name)
	node := b.addNode(ir.Node{Kind: ir.KindExternalInput, Slot: key})
	b.inputs[name] = node
	return node
}

// DeclareInput assigns a slot key to a named external input without
// creating a node. Calling it again for the same name returns the
// existing key.
func (b *Builder) DeclareInput(name string) ir.SlotKey {
	if key, ok := b.slots[name]; ok {
		return key
	}
	key := ir.SlotKey(len(b.slots))
	b.slots[name] = key
	return key
}

// Bridge adds a node backed by a host-registered legacy callable. Keys are
// pooled; two bridge nodes with the same key share one table entry.
func (b *Builder) Bridge(key string) ir.NodeIndex {
	idx, ok := b.bridgeIdx[key]
	if !ok {
		b.bridges = append(b.bridges, key)
		idx = ir.BridgeIndex(len(b.bridges) - 1)
		b.bridgeIdx[key] = idx
	}
	return b.addNode(ir.Node{Kind: ir.KindBridge, Bridge: idx})
}

// Bus adds an aggregation node with no contributors yet. def is the value
// the bus yields while empty.
func (b *Builder) Bus(name string, mode ir.CombineMode, def float64) ir.NodeIndex {
	b.buses = append(b.buses, busBuild{name: name, mode: mode, def: def})
	return b.addNode(ir.Node{Kind: ir.KindBusAggregate, Bus: ir.BusIndex(len(b.buses) - 1)})
}

// Contribute attaches node to a bus created by Bus. Final contributor
// order is decided at Build: ascending priority, ties broken by node
// index. Runtime never re-sorts.
func (b *Builder) Contribute(bus, node ir.NodeIndex, priority int) {
	if int(bus) < 0 || int(bus) >= len(b.nodes) || b.nodes[bus].Kind != ir.KindBusAggregate {
		b.fail("Contribute", "node %d is not a bus", bus)
		return
	}
	bi := b.nodes[bus].Bus
	b.buses[bi].entries = append(b.buses[bi].entries, busEntry{node: node, priority: priority})
}

// Step describes one transform chain step for Pipeline. Kind selects which
// fields are read. Slew steps are stateful and require an Identity for
// their arena cell.
type Step struct {
	Kind     ir.StepKind
	Scale    float64
	Bias     float64
	Mode     ir.NormalizeMode
	Step     float64
	Curve    ir.CurveID
	Op       ir.UnaryOp
	Rate     float64
	Identity string
}

// Pipeline adds a transform chain node over source. An empty step list is
// a strict identity.
func (b *Builder) Pipeline(source ir.NodeIndex, steps ...Step) ir.NodeIndex {
	chain := make(ir.TransformChain, 0, len(steps))
	for _, st := range steps {
		ts := ir.TransformStep{
			Kind:  st.Kind,
			Scale: st.Scale,
			Bias:  st.Bias,
			Mode:  st.Mode,
			Step:  st.Step,
			Curve: st.Curve,
			Op:    st.Op,
			Rate:  st.Rate,
		}
		if st.Kind == ir.StepSlew {
			fo, _ := b.registerCell("Pipeline", st.Identity, 1, 0)
			ts.State = fo
		}
		chain = append(chain, ts)
	}
	b.chains = append(b.chains, chain)
	return b.addNode(ir.Node{
		Kind:  ir.KindTransformPipeline,
		A:     source,
		Chain: ir.ChainIndex(len(b.chains) - 1),
	})
}

// Integrate adds an accumulator over input. input may be ir.NoNode, in
// which case the accumulator holds its value.
func (b *Builder) Integrate(input ir.NodeIndex, identity string) ir.NodeIndex {
	fo, _ := b.registerCell("Integrate", identity, 1, 0)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpIntegrate, Input: input, Trigger: ir.NoNode,
		FloatOff: fo, FloatLen: 1,
	})
}

// SampleHold adds a sample-and-hold over input, sampling on rising edges
// of trigger.
func (b *Builder) SampleHold(input, trigger ir.NodeIndex, identity string) ir.NodeIndex {
	fo, _ := b.registerCell("SampleHold", identity, 2, 0)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpSampleHold, Input: input, Trigger: trigger,
		FloatOff: fo, FloatLen: 2,
	})
}

// Slew adds a standalone slew limiter smoothing toward input at rate.
func (b *Builder) Slew(input ir.NodeIndex, rate float64, identity string) ir.NodeIndex {
	fo, _ := b.registerCell("Slew", identity, 1, 0)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpSlew, Input: input, Trigger: ir.NoNode, Rate: rate,
		FloatOff: fo, FloatLen: 1,
	})
}

// DelayFrames adds a whole-frame delay line over input.
func (b *Builder) DelayFrames(input ir.NodeIndex, frames int, identity string) ir.NodeIndex {
	if frames < 0 {
		b.fail("DelayFrames", "negative frame count %d", frames)
		frames = 0
	}
	fo, io := b.registerCell("DelayFrames", identity, frames+1, 1)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpDelayFrames, Input: input, Trigger: ir.NoNode,
		FrameCount: frames,
		FloatOff:   fo, FloatLen: frames + 1, IntOff: io, IntLen: 1,
	})
}

// FeedbackDelayFrames adds a frame delay whose input is bound later with
// BindDelayInput. This is the only sanctioned way to close a loop: the
// delay resolves its input against last frame's values, so the loop never
// evaluates within a single frame. frames must be at least 1.
func (b *Builder) FeedbackDelayFrames(frames int, identity string) ir.NodeIndex {
	if frames < 1 {
		b.fail("FeedbackDelayFrames", "feedback requires at least one frame of delay, got %d", frames)
		frames = 1
	}
	fo, io := b.registerCell("FeedbackDelayFrames", identity, frames+1, 1)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpDelayFrames, Input: ir.NoNode, Trigger: ir.NoNode,
		FrameCount: frames,
		FloatOff:   fo, FloatLen: frames + 1, IntOff: io, IntLen: 1,
	})
}

// BindDelayInput closes a feedback loop opened by FeedbackDelayFrames.
func (b *Builder) BindDelayInput(delay, input ir.NodeIndex) {
	if int(delay) < 0 || int(delay) >= len(b.nodes) || b.nodes[delay].Kind != ir.KindStatefulOperator {
		b.fail("BindDelayInput", "node %d is not a stateful operator", delay)
		return
	}
	spec := &b.operators[b.nodes[delay].Operator]
	if spec.Op != ir.OpDelayFrames && spec.Op != ir.OpDelayMS {
		b.fail("BindDelayInput", "operator %s cannot take feedback", spec.Op)
		return
	}
	if spec.Input != ir.NoNode {
		b.fail("BindDelayInput", "delay input already bound")
		return
	}
	spec.Input = input
}

// DelayMS adds a time-based delay line over input. bufferSize bounds the
// achievable delay: the per-frame sample offset derived from delta time is
// clamped to bufferSize-1.
func (b *Builder) DelayMS(input ir.NodeIndex, delayMS float64, bufferSize int, identity string) ir.NodeIndex {
	if bufferSize < 1 {
		b.fail("DelayMS", "buffer size must be at least 1, got %d", bufferSize)
		bufferSize = 1
	}
	fo, io := b.registerCell("DelayMS", identity, bufferSize, 1)
	return b.addOperator(ir.StatefulSpec{
		Op: ir.OpDelayMS, Input: input, Trigger: ir.NoNode,
		DelayMS: delayMS, BufferSize: bufferSize,
		FloatOff: fo, FloatLen: bufferSize, IntOff: io, IntLen: 1,
	})
}

func (b *Builder) addOperator(spec ir.StatefulSpec) ir.NodeIndex {
	b.operators = append(b.operators, spec)
	return b.addNode(ir.Node{
		Kind:     ir.KindStatefulOperator,
		Operator: ir.OperatorIndex(len(b.operators) - 1),
	})
}

// registerCell lays out arena slots for one stateful instance and records
// its identity-keyed cell. Offsets are bump-allocated and never reused
// within a program, so instances always own disjoint regions.
func (b *Builder) registerCell(op, identity string, floatLen, intLen int) (ir.FloatOffset, ir.IntOffset) {
	identity = ir.NormalizeIdentity(identity)
	switch {
	case identity == "":
		b.fail(op, "stateful identity must be non-empty")
	case b.seen[identity]:
		b.fail(op, "duplicate stateful identity %q", identity)
	default:
		b.seen[identity] = true
	}

	fo := ir.FloatOffset(b.floatSlots)
	io := ir.IntOffset(b.intSlots)
	b.floatSlots += floatLen
	b.intSlots += intLen
	b.cells = append(b.cells, ir.StateCell{
		Identity: identity,
		FloatOff: fo, FloatLen: floatLen,
		IntOff: io, IntLen: intLen,
	})
	return fo, io
}

// Output declares a named output rooted at node.
func (b *Builder) Output(name string, node ir.NodeIndex) {
	if _, exists := b.outputs[name]; exists {
		b.fail("Output", "duplicate output %q", name)
		return
	}
	b.outputs[name] = node
}

// Build finalizes the graph: bus contributor order is fixed, the program
// assembled and validated. Any error recorded during construction, and any
// validation failure, surfaces here.
func (b *Builder) Build() (*ir.Program, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	buses := make([]ir.BusDescriptor, len(b.buses))
	for i := range b.buses {
		bb := &b.buses[i]
		sort.SliceStable(bb.entries, func(x, y int) bool {
			if bb.entries[x].priority != bb.entries[y].priority {
				return bb.entries[x].priority < bb.entries[y].priority
			}
			return bb.entries[x].node < bb.entries[y].node
		})
		contributors := make([]ir.NodeIndex, len(bb.entries))
		for j, e := range bb.entries {
			contributors[j] = e.node
		}
		buses[i] = ir.BusDescriptor{
			Name:         bb.name,
			Contributors: contributors,
			Mode:         bb.mode,
			Default:      bb.def,
		}
	}

	prog := &ir.Program{
		Nodes:     b.nodes,
		Consts:    b.consts,
		Buses:     buses,
		Chains:    b.chains,
		Operators: b.operators,
		Bridges:   b.bridges,
		Outputs:   b.outputs,
		Slots:     b.slots,
		Layout: ir.StateLayout{
			FloatSlots: b.floatSlots,
			IntSlots:   b.intSlots,
			Cells:      b.cells,
		},
	}

	if verrs := ValidateProgram(prog); len(verrs) > 0 {
		joined := make([]error, len(verrs))
		for i := range verrs {
			joined[i] = verrs[i]
		}
		return nil, errors.Join(joined...)
	}
	return prog, nil
}
