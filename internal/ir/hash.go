package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "strobe/snapshot/v1"
	DomainProgram  = "strobe/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes a content hash over identity-keyed state cells.
//
// Cells are hashed in identity order so the hash is independent of the order
// the caller assembled them in. Floats are encoded by their IEEE 754 bit
// pattern, which distinguishes -0 from 0 and keeps NaN payloads stable.
func SnapshotHash(cells map[string]CellState) string {
	identities := make([]string, 0, len(cells))
	for id := range cells {
		identities = append(identities, id)
	}
	sort.Strings(identities)

	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})

	var buf [8]byte
	for _, id := range identities {
		h.Write([]byte(id))
		h.Write([]byte{0x00})
		cell := cells[id]
		binary.BigEndian.PutUint64(buf[:], uint64(len(cell.Floats)))
		h.Write(buf[:])
		for _, f := range cell.Floats {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
			h.Write(buf[:])
		}
		binary.BigEndian.PutUint64(buf[:], uint64(len(cell.Ints)))
		h.Write(buf[:])
		for _, n := range cell.Ints {
			binary.BigEndian.PutUint64(buf[:], uint64(n))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CellState is the captured contents of one identity's slots.
type CellState struct {
	Floats []float64 `json:"floats,omitempty"`
	Ints   []int64   `json:"ints,omitempty"`
}

// ProgramHash computes a structural hash of a compiled program.
//
// Used to tag persisted snapshots with the program they were taken under;
// a restore into a different program is legal (that is the point of
// identity remapping) but the hash lets hosts notice it happened.
func ProgramHash(p *Program) string {
	h := sha256.New()
	h.Write([]byte(DomainProgram))
	h.Write([]byte{0x00})

	var buf [8]byte
	writeInt := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeFloat := func(f float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}

	writeInt(len(p.Nodes))
	for _, n := range p.Nodes {
		h.Write([]byte{byte(n.Kind)})
		writeInt(int(n.A))
		writeInt(int(n.B))
		writeInt(int(n.C))
		writeInt(int(n.Const))
		h.Write([]byte{byte(n.Op), byte(n.BinOp)})
		writeInt(int(n.Slot))
		writeInt(int(n.Bus))
		writeInt(int(n.Chain))
		writeInt(int(n.Operator))
		writeInt(int(n.Bridge))
	}

	writeInt(len(p.Consts))
	for _, c := range p.Consts {
		writeFloat(c)
	}

	writeInt(len(p.Buses))
	for _, b := range p.Buses {
		h.Write([]byte(b.Name))
		h.Write([]byte{0x00, byte(b.Mode)})
		writeFloat(b.Default)
		writeInt(len(b.Contributors))
		for _, c := range b.Contributors {
			writeInt(int(c))
		}
	}

	writeInt(len(p.Chains))
	for _, chain := range p.Chains {
		writeInt(len(chain))
		for _, s := range chain {
			h.Write([]byte{byte(s.Kind), byte(s.Mode), byte(s.Curve), byte(s.Op)})
			writeFloat(s.Scale)
			writeFloat(s.Bias)
			writeFloat(s.Step)
			writeFloat(s.Rate)
			writeInt(int(s.State))
		}
	}

	writeInt(len(p.Operators))
	for _, op := range p.Operators {
		h.Write([]byte{byte(op.Op)})
		writeInt(int(op.Input))
		writeInt(int(op.Trigger))
		writeFloat(op.Rate)
		writeInt(op.FrameCount)
		writeFloat(op.DelayMS)
		writeInt(op.BufferSize)
		writeInt(int(op.FloatOff))
		writeInt(op.FloatLen)
		writeInt(int(op.IntOff))
		writeInt(op.IntLen)
	}

	writeInt(len(p.Layout.Cells))
	for _, c := range p.Layout.Cells {
		h.Write([]byte(c.Identity))
		h.Write([]byte{0x00})
		writeInt(int(c.FloatOff))
		writeInt(c.FloatLen)
		writeInt(int(c.IntOff))
		writeInt(c.IntLen)
	}

	return hex.EncodeToString(h.Sum(nil))
}
