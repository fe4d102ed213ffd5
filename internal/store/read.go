package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/ir"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// SnapshotInfo summarizes a persisted snapshot without its cell payload.
type SnapshotInfo struct {
	ID            int64
	SessionToken  string
	ProgramHash   string
	EngineVersion string
	ContentHash   string
	CreatedAt     string
}

// LoadSnapshot reads a snapshot by row id and verifies its content hash
// against the stored cells. A mismatch means the rows were altered after
// the fact and is reported as an error, not a warning.
func (s *Store) LoadSnapshot(ctx context.Context, id int64) (*engine.Snapshot, error) {
	snap := &engine.Snapshot{}
	err := s.db.QueryRowContext(ctx, `
		SELECT session_token, program_hash, engine_version, content_hash
		FROM snapshots WHERE id = ?
	`, id).Scan(&snap.SessionToken, &snap.ProgramHash, &snap.EngineVersion, &snap.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, floats, ints
		FROM snapshot_cells WHERE snapshot_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	defer rows.Close()

	snap.Cells = make(map[string]ir.CellState)
	for rows.Next() {
		var identity string
		var floatBlob, intBlob []byte
		if err := rows.Scan(&identity, &floatBlob, &intBlob); err != nil {
			return nil, fmt.Errorf("load snapshot %d: %w", id, err)
		}

		floats, err := decodeFloats(floatBlob)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %d cell %q: %w", id, identity, err)
		}
		ints, err := decodeInts(intBlob)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %d cell %q: %w", id, identity, err)
		}
		snap.Cells[identity] = ir.CellState{Floats: floats, Ints: ints}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}

	if got := ir.SnapshotHash(snap.Cells); got != snap.Hash {
		return nil, fmt.Errorf("load snapshot %d: content hash mismatch (stored %s, computed %s)",
			id, snap.Hash, got)
	}
	return snap, nil
}

// LatestSnapshot loads the most recent snapshot for a session.
func (s *Store) LatestSnapshot(ctx context.Context, sessionToken string) (*engine.Snapshot, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots
		WHERE session_token = ?
		ORDER BY id DESC LIMIT 1
	`, sessionToken).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot for %s: %w", sessionToken, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot for %s: %w", sessionToken, err)
	}
	return s.LoadSnapshot(ctx, id)
}

// ListSnapshots returns snapshot headers for a session, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, sessionToken string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_token, program_hash, engine_version, content_hash, created_at
		FROM snapshots
		WHERE session_token = ?
		ORDER BY id ASC
	`, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.SessionToken, &info.ProgramHash,
			&info.EngineVersion, &info.ContentHash, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return infos, nil
}

// LoadProgram reads a compiled program by structural hash.
func (s *Store) LoadProgram(ctx context.Context, hash string) (*ir.Program, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM programs WHERE hash = ?
	`, hash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}

	prog := &ir.Program{}
	if err := json.Unmarshal([]byte(body), prog); err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}
	return prog, nil
}
