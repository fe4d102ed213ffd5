package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/ir"
)

// loadSession creates a session with the program installed.
func loadSession(t *testing.T, prog *ir.Program, opts ...SessionOption) *Session {
	t.Helper()
	s := NewSession(opts...)
	s.Load(prog)
	return s
}

// frame builds a context for frame n at 60fps-ish timing.
func frame(n int64) *FrameContext {
	const dt = 0.1
	return &FrameContext{
		TimeMS:       float64(n) * dt * 1000,
		DeltaSeconds: dt,
		Frame:        n,
	}
}

func TestEvaluate_Constant(t *testing.T) {
	prog := &ir.Program{
		Nodes:  []ir.Node{{Kind: ir.KindConstant, Const: 0}},
		Consts: []float64{42.5},
	}
	s := loadSession(t, prog)

	v, err := s.Evaluate(0, frame(0))
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)
}

func TestEvaluate_AbsoluteTime_Unclamped(t *testing.T) {
	prog := &ir.Program{Nodes: []ir.Node{{Kind: ir.KindAbsoluteTime}}}
	s := loadSession(t, prog)

	ctx := &FrameContext{TimeMS: 123456789.25, DeltaSeconds: 0.016, Frame: 0}
	v, err := s.Evaluate(0, ctx)
	require.NoError(t, err)
	assert.Equal(t, 123456789.25, v, "time is never wrapped by the engine")
}

func TestEvaluate_UnaryAndBinary(t *testing.T) {
	// sin(pi/2) + min(3, 7)
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindConstant, Const: 0},                        // 0: pi/2
			{Kind: ir.KindUnaryMap, Op: ir.UnarySin, A: 0},           // 1: sin
			{Kind: ir.KindConstant, Const: 1},                        // 2: 3
			{Kind: ir.KindConstant, Const: 2},                        // 3: 7
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryMin, A: 2, B: 3}, // 4: min
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryAdd, A: 1, B: 4}, // 5: sum
		},
		Consts: []float64{math.Pi / 2, 3, 7},
	}
	s := loadSession(t, prog)

	v, err := s.Evaluate(5, frame(0))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-12)
}

// TestEvaluate_AtMostOncePerFrame is the core memoization property: a node
// referenced by many consumers within one frame is computed exactly once.
func TestEvaluate_AtMostOncePerFrame(t *testing.T) {
	calls := 0
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindBridge, Bridge: 0},                          // 0: counted source
			{Kind: ir.KindUnaryMap, Op: ir.UnaryAbs, A: 0},            // 1
			{Kind: ir.KindUnaryMap, Op: ir.UnaryNeg, A: 0},            // 2
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryAdd, A: 1, B: 2}, // 3: fan-in of 0
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryMul, A: 3, B: 0}, // 4: third consumer
		},
		Bridges: []string{"counted"},
	}
	s := loadSession(t, prog)
	s.RegisterBridge("counted", func(ctx *FrameContext) float64 {
		calls++
		return 5
	})

	_, err := s.Evaluate(4, frame(0))
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "source must be computed exactly once regardless of fan-in")

	// A repeated request within the same frame returns the cached value.
	v, err := s.Evaluate(0, frame(0))
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 1, calls)

	// The next frame recomputes.
	_, err = s.Evaluate(4, frame(1))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEvaluate_Select_ShortCircuit(t *testing.T) {
	thenCalls, elseCalls := 0, 0
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},       // 0: cond
			{Kind: ir.KindBridge, Bridge: 0},            // 1: then
			{Kind: ir.KindBridge, Bridge: 1},            // 2: else
			{Kind: ir.KindSelect, A: 0, B: 1, C: 2},     // 3
		},
		Bridges: []string{"then", "else"},
	}
	s := loadSession(t, prog)
	s.RegisterBridge("then", func(ctx *FrameContext) float64 { thenCalls++; return 1 })
	s.RegisterBridge("else", func(ctx *FrameContext) float64 { elseCalls++; return 2 })

	ctx := frame(0)
	ctx.Inputs = MapResolver{0: 1}
	v, err := s.Evaluate(3, ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 1, thenCalls)
	assert.Equal(t, 0, elseCalls, "untaken branch must not be evaluated")

	ctx = frame(1)
	ctx.Inputs = MapResolver{0: 0.5}
	v, err = s.Evaluate(3, ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v, "threshold is fixed at 0.5, exclusive")
	assert.Equal(t, 1, thenCalls)
	assert.Equal(t, 1, elseCalls)
}

func TestEvaluate_Select_GuardsDivision(t *testing.T) {
	// if |x| > 0.5 then 1/x else 0 - the guarded division never runs on
	// the zero branch.
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},                     // 0: x
			{Kind: ir.KindUnaryMap, Op: ir.UnaryAbs, A: 0},            // 1: |x|
			{Kind: ir.KindConstant, Const: 0},                         // 2: 1
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryDiv, A: 2, B: 0}, // 3: 1/x
			{Kind: ir.KindConstant, Const: 1},                         // 4: 0
			{Kind: ir.KindSelect, A: 1, B: 3, C: 4},                   // 5
		},
		Consts: []float64{1, 0},
	}
	s := loadSession(t, prog)

	ctx := frame(0)
	ctx.Inputs = MapResolver{0: 4}
	v, err := s.Evaluate(5, ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	ctx = frame(1)
	ctx.Inputs = MapResolver{0: 0}
	v, err = s.Evaluate(5, ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestEvaluate_ExternalInput_MissingYieldsNaN(t *testing.T) {
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 7},
			{Kind: ir.KindConstant, Const: 0},
			{Kind: ir.KindBinaryZip, BinOp: ir.BinaryAdd, A: 0, B: 1},
		},
		Consts: []float64{10},
	}
	s := loadSession(t, prog)

	// No resolver at all.
	v, err := s.Evaluate(0, frame(0))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v), "unset slot yields NaN, not an error")

	// NaN propagates arithmetically through downstream math.
	v, err = s.Evaluate(2, frame(0))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	// Bound slot reads through.
	ctx := frame(1)
	ctx.Inputs = MapResolver{7: 2.5}
	v, err = s.Evaluate(2, ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)
}

func TestEvaluate_ContractViolations(t *testing.T) {
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindConstant, Const: 3},  // constant index out of range
			{Kind: ir.NodeKind(200)},           // unknown kind
			{Kind: ir.KindBridge, Bridge: 0},   // unregistered bridge
		},
		Consts:  []float64{1},
		Bridges: []string{"legacy/osc"},
	}
	s := loadSession(t, prog)

	_, err := s.Evaluate(99, frame(0))
	require.Error(t, err)
	assert.True(t, IsContractError(err), "out-of-range node index is a contract error")

	_, err = s.Evaluate(-1, frame(0))
	assert.True(t, IsContractError(err))

	_, err = s.Evaluate(0, frame(0))
	assert.True(t, IsContractError(err), "constant pool miss is a contract error")

	_, err = s.Evaluate(1, frame(0))
	require.Error(t, err)
	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnknownKind, ce.Code)

	_, err = s.Evaluate(2, frame(0))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeBridgeMissing, ce.Code)
}

func TestEvaluate_NoProgram(t *testing.T) {
	s := NewSession()
	_, err := s.Evaluate(0, frame(0))
	require.Error(t, err)
	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeNoProgram, ce.Code)
}

func TestEvaluateOutput(t *testing.T) {
	prog := &ir.Program{
		Nodes:   []ir.Node{{Kind: ir.KindConstant, Const: 0}},
		Consts:  []float64{9},
		Outputs: map[string]ir.NodeIndex{"brightness": 0},
	}
	s := loadSession(t, prog)

	v, err := s.EvaluateOutput("brightness", frame(0))
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	_, err = s.EvaluateOutput("missing", frame(0))
	assert.True(t, IsContractError(err))
}

func TestEvaluate_PureCycleIsContractError(t *testing.T) {
	// Two unary nodes referencing each other. The compiler rejects this;
	// if a malformed program reaches the engine anyway, the dispatcher
	// reports it instead of recursing without bound.
	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindUnaryMap, Op: ir.UnaryNeg, A: 1},
			{Kind: ir.KindUnaryMap, Op: ir.UnaryNeg, A: 0},
		},
	}
	s := loadSession(t, prog)

	_, err := s.Evaluate(0, frame(0))
	require.Error(t, err)
	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeCycle, ce.Code)
}
