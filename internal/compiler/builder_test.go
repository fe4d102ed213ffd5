package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/ir"
)

func TestBuilder_ConstantPooling(t *testing.T) {
	b := NewBuilder()
	n1 := b.Constant(1.5)
	n2 := b.Constant(1.5)
	n3 := b.Constant(2.5)

	prog, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, prog.Consts, 2, "equal values share one pool entry")
	assert.Equal(t, prog.Nodes[n1].Const, prog.Nodes[n2].Const)
	assert.NotEqual(t, prog.Nodes[n1].Const, prog.Nodes[n3].Const)
}

func TestBuilder_SignedZerosStayDistinct(t *testing.T) {
	b := NewBuilder()
	pos := b.Constant(0.0)
	neg := b.Constant(negZero())

	prog, err := b.Build()
	require.NoError(t, err)
	assert.NotEqual(t, prog.Nodes[pos].Const, prog.Nodes[neg].Const,
		"pooling is by bit pattern, not ==")
}

func negZero() float64 {
	z := 0.0
	return -z
}

func TestBuilder_TimeNodeIsShared(t *testing.T) {
	b := NewBuilder()
	t1 := b.Time()
	t2 := b.Time()
	assert.Equal(t, t1, t2)
}

func TestBuilder_InputSlotsAreDenseAndStable(t *testing.T) {
	b := NewBuilder()
	b.DeclareInput("pressure")
	b.DeclareInput("tilt")
	n := b.Input("pressure")
	b.Output("out", n)

	prog, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, ir.SlotKey(0), prog.Slots["pressure"])
	assert.Equal(t, ir.SlotKey(1), prog.Slots["tilt"])
	assert.Equal(t, ir.SlotKey(0), prog.Nodes[n].Slot)

	// Repeated Input calls reuse the node.
	assert.Equal(t, n, b.Input("pressure"))
}

func TestBuilder_StateLayoutIsDisjoint(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	b.Integrate(in, "acc")
	b.SampleHold(in, in, "hold")
	b.DelayFrames(in, 3, "echo")

	prog, err := b.Build()
	require.NoError(t, err)

	// integrate(1) + hold(2) + ring(4) floats; one cursor int.
	assert.Equal(t, 7, prog.Layout.FloatSlots)
	assert.Equal(t, 1, prog.Layout.IntSlots)
	require.Len(t, prog.Layout.Cells, 3)

	acc, ok := prog.Layout.CellByIdentity("acc")
	require.True(t, ok)
	assert.Equal(t, ir.FloatOffset(0), acc.FloatOff)

	echo, ok := prog.Layout.CellByIdentity("echo")
	require.True(t, ok)
	assert.Equal(t, ir.FloatOffset(3), echo.FloatOff)
	assert.Equal(t, 4, echo.FloatLen)
	assert.Equal(t, 1, echo.IntLen)
}

func TestBuilder_DuplicateIdentityFails(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	b.Integrate(in, "cell")
	b.Slew(in, 5, "cell")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate stateful identity")
}

func TestBuilder_IdentityIsNormalized(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	// Precomposed vs decomposed é: same identity after NFC.
	b.Integrate(in, "café")
	b.Slew(in, 5, "café")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate stateful identity")
}

func TestBuilder_BusContributorOrder(t *testing.T) {
	b := NewBuilder()
	c1 := b.Constant(1)
	c2 := b.Constant(2)
	c3 := b.Constant(3)
	bus := b.Bus("mix", ir.CombineFirst, 0)
	b.Contribute(bus, c3, 5)
	b.Contribute(bus, c2, 1)
	b.Contribute(bus, c1, 5)

	prog, err := b.Build()
	require.NoError(t, err)
	require.Len(t, prog.Buses, 1)

	// Ascending priority, ties by node index.
	assert.Equal(t, []ir.NodeIndex{c2, c1, c3}, prog.Buses[0].Contributors)
}

func TestBuilder_FeedbackDelayBinds(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	delay := b.FeedbackDelayFrames(1, "loop")
	half := b.Constant(0.5)
	scaled := b.Binary(ir.BinaryMul, delay, half)
	mix := b.Binary(ir.BinaryAdd, in, scaled)
	b.BindDelayInput(delay, mix)
	b.Output("out", mix)

	prog, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, mix, prog.Operators[0].Input)
}

func TestBuilder_UnboundFeedbackFails(t *testing.T) {
	b := NewBuilder()
	b.FeedbackDelayFrames(1, "loop")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delay input never bound")
}

func TestBuilder_DoubleBindFails(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	delay := b.FeedbackDelayFrames(1, "loop")
	b.BindDelayInput(delay, in)
	b.BindDelayInput(delay, in)

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound")
}

func TestBuilder_FeedbackThroughNonDelayFails(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	acc := b.Integrate(in, "acc")
	b.BindDelayInput(acc, in)

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot take feedback")
}

func TestBuilder_SlewStepRequiresIdentity(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	b.Pipeline(in, Step{Kind: ir.StepSlew, Rate: 5})

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity must be non-empty")
}

func TestBuilder_PipelineSlewGetsArenaSlot(t *testing.T) {
	b := NewBuilder()
	in := b.Input("x")
	b.Integrate(in, "acc") // occupies slot 0
	node := b.Pipeline(in,
		Step{Kind: ir.StepScaleBias, Scale: 2, Bias: 0},
		Step{Kind: ir.StepSlew, Rate: 5, Identity: "smooth"},
	)
	b.Output("out", node)

	prog, err := b.Build()
	require.NoError(t, err)
	require.Len(t, prog.Chains, 1)
	assert.Equal(t, ir.FloatOffset(1), prog.Chains[0][1].State)
	assert.Equal(t, 2, prog.Layout.FloatSlots)
}

func TestBuilder_DuplicateOutputFails(t *testing.T) {
	b := NewBuilder()
	c := b.Constant(1)
	b.Output("out", c)
	b.Output("out", c)

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate output "out"`)
}
