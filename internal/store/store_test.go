package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "strobe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot(cells map[string]ir.CellState) *engine.Snapshot {
	return &engine.Snapshot{
		SessionToken:  "session-1",
		ProgramHash:   "prog-hash",
		EngineVersion: ir.EngineVersion,
		Cells:         cells,
		Hash:          ir.SnapshotHash(cells),
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strobe.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_AppliesWALMode(t *testing.T) {
	s := openTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSnapshot_RoundTripIsBitExact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cells := map[string]ir.CellState{
		"echo": {
			Floats: []float64{1.5, math.NaN(), negZero(), math.Inf(1)},
			Ints:   []int64{3},
		},
		"acc": {Floats: []float64{0.25}},
	}
	snap := testSnapshot(cells)

	id, err := s.SaveSnapshot(ctx, snap)
	require.NoError(t, err)

	got, err := s.LoadSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, snap.SessionToken, got.SessionToken)
	assert.Equal(t, snap.ProgramHash, got.ProgramHash)
	assert.Equal(t, snap.Hash, got.Hash)
	require.Len(t, got.Cells, 2)

	echo := got.Cells["echo"]
	assert.Equal(t, 1.5, echo.Floats[0])
	assert.True(t, math.IsNaN(echo.Floats[1]))
	assert.Equal(t, math.Float64bits(negZero()), math.Float64bits(echo.Floats[2]),
		"-0 preserved bit-exactly")
	assert.True(t, math.IsInf(echo.Floats[3], 1))
	assert.Equal(t, []int64{3}, echo.Ints)
}

func negZero() float64 {
	z := 0.0
	return -z
}

func TestSnapshot_TamperDetectedOnLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := testSnapshot(map[string]ir.CellState{
		"cell": {Floats: []float64{1}},
	})
	id, err := s.SaveSnapshot(ctx, snap)
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE snapshot_cells SET floats = ? WHERE snapshot_id = ?`,
		encodeFloats([]float64{2}), id)
	require.NoError(t, err)

	_, err = s.LoadSnapshot(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content hash mismatch")
}

func TestLatestSnapshot_PicksNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testSnapshot(map[string]ir.CellState{"c": {Floats: []float64{1}}})
	second := testSnapshot(map[string]ir.CellState{"c": {Floats: []float64{2}}})

	_, err := s.SaveSnapshot(ctx, first)
	require.NoError(t, err)
	_, err = s.SaveSnapshot(ctx, second)
	require.NoError(t, err)

	got, err := s.LatestSnapshot(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, got.Cells["c"].Floats)
}

func TestLatestSnapshot_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestSnapshot(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSnapshots_OldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap := testSnapshot(map[string]ir.CellState{"c": {Floats: []float64{float64(i)}}})
		_, err := s.SaveSnapshot(ctx, snap)
		require.NoError(t, err)
	}

	infos, err := s.ListSnapshots(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Less(t, infos[0].ID, infos[2].ID)
	assert.Equal(t, ir.EngineVersion, infos[0].EngineVersion)
}

func TestProgram_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	prog := &ir.Program{
		Nodes:   []ir.Node{{Kind: ir.KindConstant, Const: 0}},
		Consts:  []float64{42.5},
		Outputs: map[string]ir.NodeIndex{"out": 0},
	}

	hash, err := s.SaveProgram(ctx, prog)
	require.NoError(t, err)
	assert.Equal(t, ir.ProgramHash(prog), hash)

	// Saving again is a no-op, not an error.
	again, err := s.SaveProgram(ctx, prog)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	got, err := s.LoadProgram(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, prog.Consts, got.Consts)
	assert.Equal(t, ir.NodeIndex(0), got.Outputs["out"])
}

func TestLoadProgram_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadProgram(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionSnapshotPersistAndRestore(t *testing.T) {
	// Full loop: run a session, persist its snapshot, reopen a fresh
	// session and restore from disk.
	st := openTestStore(t)
	ctx := context.Background()

	prog := &ir.Program{
		Nodes: []ir.Node{
			{Kind: ir.KindExternalInput, Slot: 0},
			{Kind: ir.KindStatefulOperator, Operator: 0},
		},
		Operators: []ir.StatefulSpec{{
			Op: ir.OpIntegrate, Input: 0, Trigger: ir.NoNode,
			FloatOff: 0, FloatLen: 1,
		}},
		Layout: ir.StateLayout{
			FloatSlots: 1,
			Cells:      []ir.StateCell{{Identity: "acc", FloatOff: 0, FloatLen: 1}},
		},
	}

	s1 := engine.NewSession()
	s1.Load(prog)
	for i := int64(0); i < 5; i++ {
		_, err := s1.Evaluate(1, &engine.FrameContext{
			DeltaSeconds: 0.1, Frame: i,
			Inputs: engine.MapResolver{0: 1},
		})
		require.NoError(t, err)
	}

	snap, err := s1.Snapshot()
	require.NoError(t, err)
	id, err := st.SaveSnapshot(ctx, snap)
	require.NoError(t, err)

	loaded, err := st.LoadSnapshot(ctx, id)
	require.NoError(t, err)

	s2 := engine.NewSession()
	s2.Load(prog)
	require.NoError(t, s2.Restore(loaded))

	v, err := s2.State().Float(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12, "restored accumulator continues where it left off")
}
