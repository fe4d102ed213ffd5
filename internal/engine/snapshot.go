package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/strobe/internal/ir"
)

// Snapshot is a capture of the session's operator state, keyed by stable
// operator identity rather than raw offsets. That keying is what makes the
// snapshot meaningful under a different compilation of the same document:
// offsets move, identities don't.
//
// The engine provides the mechanism; deciding when to snapshot and restore
// belongs to the host.
type Snapshot struct {
	// SessionToken identifies the session the snapshot was taken from.
	SessionToken string `json:"session_token"`

	// ProgramHash is the structural hash of the program the snapshot was
	// taken under. A restore into a different program is legal (that is
	// the point); the hash lets hosts notice it happened.
	ProgramHash string `json:"program_hash"`

	// EngineVersion records the engine that produced the snapshot.
	EngineVersion string `json:"engine_version"`

	// Cells maps stable identity to captured slot contents.
	Cells map[string]ir.CellState `json:"cells"`

	// Hash is the content hash over Cells (ir.SnapshotHash).
	Hash string `json:"hash"`
}

// Snapshot captures the current contents of every identity-keyed state
// cell in the loaded program's layout.
func (s *Session) Snapshot() (*Snapshot, error) {
	if s.prog == nil {
		return nil, &ContractError{Code: ErrCodeNoProgram, Message: "no program loaded", Node: -1}
	}

	cells := make(map[string]ir.CellState, len(s.prog.Layout.Cells))
	for _, cell := range s.prog.Layout.Cells {
		if err := s.state.checkFloatRange(cell.FloatOff, cell.FloatLen); err != nil {
			return nil, fmt.Errorf("snapshot cell %q: %w", cell.Identity, err)
		}
		if err := s.state.checkIntRange(cell.IntOff, cell.IntLen); err != nil {
			return nil, fmt.Errorf("snapshot cell %q: %w", cell.Identity, err)
		}

		state := ir.CellState{}
		if cell.FloatLen > 0 {
			state.Floats = make([]float64, cell.FloatLen)
			copy(state.Floats, s.state.floats[cell.FloatOff:int(cell.FloatOff)+cell.FloatLen])
		}
		if cell.IntLen > 0 {
			state.Ints = make([]int64, cell.IntLen)
			copy(state.Ints, s.state.ints[cell.IntOff:int(cell.IntOff)+cell.IntLen])
		}
		cells[cell.Identity] = state
	}

	snap := &Snapshot{
		SessionToken:  s.token,
		ProgramHash:   s.progHash,
		EngineVersion: ir.EngineVersion,
		Cells:         cells,
		Hash:          ir.SnapshotHash(cells),
	}

	slog.Debug("state snapshot taken",
		"token", s.token,
		"cells", len(cells),
		"hash", snap.Hash,
	)
	return snap, nil
}

// Restore replays a snapshot into the loaded program's layout by identity.
//
// Every cell in the current layout is zeroed first, then cells whose
// identity appears in the snapshot are copied slot-by-slot up to the
// smaller of the two lengths. When an operator's declared state size
// changed between compilations, the remainder stays zero - the
// conservative policy; hosts wanting anything smarter reset explicitly.
// Snapshot identities with no counterpart in the current layout are
// ignored.
func (s *Session) Restore(snap *Snapshot) error {
	if s.prog == nil {
		return &ContractError{Code: ErrCodeNoProgram, Message: "no program loaded", Node: -1}
	}

	restored := 0
	for _, cell := range s.prog.Layout.Cells {
		if err := s.state.checkFloatRange(cell.FloatOff, cell.FloatLen); err != nil {
			return fmt.Errorf("restore cell %q: %w", cell.Identity, err)
		}
		if err := s.state.checkIntRange(cell.IntOff, cell.IntLen); err != nil {
			return fmt.Errorf("restore cell %q: %w", cell.Identity, err)
		}

		for i := 0; i < cell.FloatLen; i++ {
			s.state.floats[int(cell.FloatOff)+i] = 0
		}
		for i := 0; i < cell.IntLen; i++ {
			s.state.ints[int(cell.IntOff)+i] = 0
		}

		saved, ok := snap.Cells[cell.Identity]
		if !ok {
			continue
		}
		copy(s.state.floats[cell.FloatOff:int(cell.FloatOff)+cell.FloatLen], saved.Floats)
		copy(s.state.ints[cell.IntOff:int(cell.IntOff)+cell.IntLen], saved.Ints)
		restored++
	}

	slog.Debug("state snapshot restored",
		"token", s.token,
		"snapshot_hash", snap.Hash,
		"restored_cells", restored,
		"layout_cells", len(s.prog.Layout.Cells),
	)
	return nil
}
