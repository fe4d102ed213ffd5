package ir

import "golang.org/x/text/unicode/norm"

// StateCell records the arena slots owned by one stateful instance, keyed by
// its stable identity. Cells are the unit of snapshot/restore: identity-based
// remapping copies cell contents between an old and newly compiled layout.
type StateCell struct {
	// Identity is the NFC-normalized stable identity declared at build time.
	// Unique within a layout.
	Identity string `json:"identity"`

	FloatOff FloatOffset `json:"float_off"`
	FloatLen int         `json:"float_len"`
	IntOff   IntOffset   `json:"int_off,omitempty"`
	IntLen   int         `json:"int_len,omitempty"`
}

// StateLayout describes the arena a compiled program needs: total slot
// counts per lane plus the identity-keyed cell map over them.
//
// The arena itself is owned by the runtime session, not the program; it
// persists across recompilations. The layout only tells the session how big
// the arena must be and which slots belong to which identity.
type StateLayout struct {
	FloatSlots int         `json:"float_slots"`
	IntSlots   int         `json:"int_slots"`
	Cells      []StateCell `json:"cells,omitempty"`
}

// CellByIdentity returns the cell with the given identity, if present.
// The identity is normalized before lookup.
func (l StateLayout) CellByIdentity(identity string) (StateCell, bool) {
	identity = NormalizeIdentity(identity)
	for _, c := range l.Cells {
		if c.Identity == identity {
			return c, true
		}
	}
	return StateCell{}, false
}

// NormalizeIdentity canonicalizes a stable operator identity.
//
// Identities come from documents and host code; NFC normalization ensures
// the same visual string always maps to the same cell regardless of the
// Unicode composition the producer happened to use.
func NormalizeIdentity(identity string) string {
	return norm.NFC.String(identity)
}
