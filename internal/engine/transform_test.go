package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/ir"
)

// chainProgram builds a program piping one external input through a chain.
func chainProgram(floatSlots int, steps ...ir.TransformStep) *ir.Program {
	return &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},
			{Kind: ir.KindTransformPipeline, A: 0, Chain: 0},
		},
		Chains: []ir.TransformChain{steps},
		Layout: ir.StateLayout{FloatSlots: floatSlots},
	}
}

// evalChain runs the pipeline node for one frame with the given input.
func evalChain(t *testing.T, s *Session, n int64, input float64) float64 {
	t.Helper()
	ctx := frame(n)
	ctx.Inputs = MapResolver{0: input}
	v, err := s.Evaluate(1, ctx)
	require.NoError(t, err)
	return v
}

func TestChain_EmptyIsStrictIdentity(t *testing.T) {
	s := loadSession(t, chainProgram(0))
	for i, in := range []float64{0, -3.25, 1e9, math.Inf(1)} {
		assert.Equal(t, in, evalChain(t, s, int64(i), in))
	}

	// NaN passes through untouched as well.
	out := evalChain(t, s, 10, math.NaN())
	assert.True(t, math.IsNaN(out))
}

func TestChain_ScaleBias(t *testing.T) {
	s := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepScaleBias, Scale: 2, Bias: 10,
	}))
	assert.Equal(t, 20.0, evalChain(t, s, 0, 5))
}

func TestChain_ScaleBiasComposition(t *testing.T) {
	s := loadSession(t, chainProgram(0,
		ir.TransformStep{Kind: ir.StepScaleBias, Scale: 2, Bias: 0},
		ir.TransformStep{Kind: ir.StepScaleBias, Scale: 1, Bias: 5},
	))
	assert.Equal(t, 15.0, evalChain(t, s, 0, 5))
}

func TestChain_Normalize(t *testing.T) {
	uni := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepNormalize, Mode: ir.NormalizeUnipolar,
	}))
	assert.Equal(t, 1.0, evalChain(t, uni, 0, 1.5))
	assert.Equal(t, 0.0, evalChain(t, uni, 1, -0.5))
	assert.Equal(t, 0.25, evalChain(t, uni, 2, 0.25))

	bi := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepNormalize, Mode: ir.NormalizeBipolar,
	}))
	assert.Equal(t, -1.0, evalChain(t, bi, 0, -2))
	assert.Equal(t, 1.0, evalChain(t, bi, 1, 2))
}

func TestChain_Quantize(t *testing.T) {
	s := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepQuantize, Step: 0.25,
	}))
	assert.Equal(t, 0.5, evalChain(t, s, 0, 0.4))
	assert.Equal(t, 0.25, evalChain(t, s, 1, 0.3))
	assert.Equal(t, -0.5, evalChain(t, s, 2, -0.45))

	// Zero step is a no-op rather than a division by zero.
	z := loadSession(t, chainProgram(0, ir.TransformStep{Kind: ir.StepQuantize, Step: 0}))
	assert.Equal(t, 0.4, evalChain(t, z, 0, 0.4))
}

func TestChain_EaseClampsInput(t *testing.T) {
	s := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepEase, Curve: ir.CurveInQuad,
	}))
	assert.Equal(t, 0.25, evalChain(t, s, 0, 0.5))
	assert.Equal(t, 1.0, evalChain(t, s, 1, 3), "ease clamps input above 1")
	assert.Equal(t, 0.0, evalChain(t, s, 2, -2), "ease clamps input below 0")
}

func TestChain_Map(t *testing.T) {
	s := loadSession(t, chainProgram(0, ir.TransformStep{
		Kind: ir.StepMap, Op: ir.UnaryAbs,
	}))
	assert.Equal(t, 4.0, evalChain(t, s, 0, -4))
}

func TestChain_SlewApproachesTarget(t *testing.T) {
	s := loadSession(t, chainProgram(1, ir.TransformStep{
		Kind: ir.StepSlew, Rate: 5, State: 0,
	}))

	prev := 0.0
	for i := int64(0); i < 20; i++ {
		v := evalChain(t, s, i, 1.0)
		assert.Greater(t, v, prev, "slew approaches monotonically")
		assert.LessOrEqual(t, v, 1.0, "slew never overshoots")
		prev = v
	}
	assert.InDelta(t, 1.0, prev, 0.01)
}

func TestChain_UnknownStepIsFatal(t *testing.T) {
	s := loadSession(t, chainProgram(0, ir.TransformStep{Kind: ir.StepKind(77)}))
	_, err := func() (float64, error) {
		ctx := frame(0)
		ctx.Inputs = MapResolver{0: 1}
		return s.Evaluate(1, ctx)
	}()
	require.Error(t, err)
	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnknownStep, ce.Code)
}

func TestChain_StepTraceHook(t *testing.T) {
	var traces []StepTrace
	hooks := &TraceHooks{Step: func(tr StepTrace) { traces = append(traces, tr) }}

	s := loadSession(t, chainProgram(0,
		ir.TransformStep{Kind: ir.StepScaleBias, Scale: 2, Bias: 0},
		ir.TransformStep{Kind: ir.StepScaleBias, Scale: 1, Bias: 5},
	), WithTrace(hooks))

	assert.Equal(t, 15.0, evalChain(t, s, 0, 5))
	require.Len(t, traces, 2)
	assert.Equal(t, 0, traces[0].Index)
	assert.Equal(t, 5.0, traces[0].In)
	assert.Equal(t, 10.0, traces[0].Out)
	assert.Equal(t, 1, traces[1].Index)
	assert.Equal(t, 15.0, traces[1].Out)
}
