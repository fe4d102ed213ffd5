package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/ir"
)

// fixedTokens is a deterministic TokenGenerator for tests.
type fixedTokens struct{ token string }

func (g fixedTokens) Generate() string { return g.token }

// integratorProgram builds a program whose single integrator cell lives at
// the given float offset, under the given identity.
func integratorProgram(identity string, off ir.FloatOffset, slots int) *ir.Program {
	return &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},
			{Kind: ir.KindStatefulOperator, Operator: 0},
		},
		Operators: []ir.StatefulSpec{
			{Op: ir.OpIntegrate, Input: 0, Trigger: ir.NoNode, FloatOff: off, FloatLen: 1},
		},
		Layout: ir.StateLayout{
			FloatSlots: slots,
			Cells: []ir.StateCell{
				{Identity: ir.NormalizeIdentity(identity), FloatOff: off, FloatLen: 1},
			},
		},
	}
}

func advance(t *testing.T, s *Session, from, frames int64) {
	t.Helper()
	for i := from; i < from+frames; i++ {
		ctx := frame(i)
		ctx.Inputs = MapResolver{0: 1}
		_, err := s.Evaluate(1, ctx)
		require.NoError(t, err)
	}
}

func TestSnapshot_CapturesCells(t *testing.T) {
	s := NewSession(WithTokenGenerator(fixedTokens{"session-1"}))
	s.Load(integratorProgram("osc/phase", 0, 1))
	advance(t, s, 0, 3)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "session-1", snap.SessionToken)
	assert.Equal(t, s.ProgramHash(), snap.ProgramHash)
	require.Contains(t, snap.Cells, "osc/phase")
	assert.InDelta(t, 0.3, snap.Cells["osc/phase"].Floats[0], 1e-12)
	assert.Equal(t, ir.SnapshotHash(snap.Cells), snap.Hash)
}

func TestRestore_RoundTrip(t *testing.T) {
	s := loadSession(t, integratorProgram("osc/phase", 0, 1))
	advance(t, s, 0, 3)

	snap, err := s.Snapshot()
	require.NoError(t, err)

	s.ResetState()
	require.NoError(t, s.Restore(snap))

	stored, err := s.State().Float(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, stored, 1e-12)
}

// TestSwap_RemapsByIdentity is the hot-swap property: the same identity
// keeps its state even though the recompiled program assigned a different
// offset.
func TestSwap_RemapsByIdentity(t *testing.T) {
	s := loadSession(t, integratorProgram("osc/phase", 0, 1))
	advance(t, s, 0, 3)

	// Recompiled program: same identity, offset moved from 0 to 4.
	require.NoError(t, s.Swap(integratorProgram("osc/phase", 4, 5)))

	stored, err := s.State().Float(4)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, stored, 1e-12, "state follows identity across recompilation")

	// Evaluation continues from the carried value.
	ctx := frame(3)
	ctx.Inputs = MapResolver{0: 1}
	v, err := s.Evaluate(1, ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v, 1e-12)
}

func TestSwap_NewIdentityStartsZeroed(t *testing.T) {
	s := loadSession(t, integratorProgram("osc/phase", 0, 1))
	advance(t, s, 0, 3)

	require.NoError(t, s.Swap(integratorProgram("osc/other", 0, 1)))

	stored, err := s.State().Float(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored, "an identity absent from the snapshot starts from zero")
}

func TestRestore_SizeChangeZeroFillsRemainder(t *testing.T) {
	// Old layout: 1-slot cell. New layout: 3-slot cell, same identity.
	s := loadSession(t, integratorProgram("d/line", 0, 1))
	advance(t, s, 0, 2)
	snap, err := s.Snapshot()
	require.NoError(t, err)

	wide := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},
			{Kind: ir.KindStatefulOperator, Operator: 0},
		},
		Operators: []ir.StatefulSpec{
			{Op: ir.OpDelayFrames, Input: 0, Trigger: ir.NoNode, FrameCount: 2, FloatOff: 0, FloatLen: 3, IntOff: 0, IntLen: 1},
		},
		Layout: ir.StateLayout{
			FloatSlots: 3,
			IntSlots:   1,
			Cells: []ir.StateCell{
				{Identity: "d/line", FloatOff: 0, FloatLen: 3, IntOff: 0, IntLen: 1},
			},
		},
	}
	s.Load(wide)
	require.NoError(t, s.Restore(snap))

	first, err := s.State().Float(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, first, 1e-12, "overlapping slots are copied")

	for off := ir.FloatOffset(1); off < 3; off++ {
		v, err := s.State().Float(off)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v, "slots beyond the old size are zero-filled")
	}
}

func TestSnapshot_NoProgram(t *testing.T) {
	s := NewSession()
	_, err := s.Snapshot()
	assert.True(t, IsContractError(err))
	assert.True(t, IsContractError(s.Restore(&Snapshot{})))
}
