package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/ir"
)

// SaveSnapshot persists a state snapshot and returns its row id.
//
// The snapshot's cells are written bit-exactly (see marshal.go) inside one
// transaction with the header row; a snapshot is either fully persisted or
// not at all. The owning session row is created on demand.
func (s *Store) SaveSnapshot(ctx context.Context, snap *engine.Snapshot) (int64, error) {
	if err := s.EnsureSession(ctx, snap.SessionToken); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (session_token, program_hash, engine_version, content_hash)
		VALUES (?, ?, ?, ?)
	`, snap.SessionToken, snap.ProgramHash, snap.EngineVersion, snap.Hash)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	for identity, cell := range snap.Cells {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_cells (snapshot_id, identity, floats, ints)
			VALUES (?, ?, ?, ?)
		`, id, identity, encodeFloats(cell.Floats), encodeInts(cell.Ints))
		if err != nil {
			return 0, fmt.Errorf("save snapshot cell %q: %w", identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// SaveProgram persists a compiled program keyed by its structural hash.
// Writing the same program twice is a no-op, so hosts can save
// unconditionally after every compile.
func (s *Store) SaveProgram(ctx context.Context, prog *ir.Program) (string, error) {
	body, err := json.Marshal(prog)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	hash := ir.ProgramHash(prog)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO programs (hash, ir_version, body)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, ir.IRVersion, string(body))
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	return hash, nil
}
