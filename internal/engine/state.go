package engine

import "github.com/roach88/strobe/internal/ir"

// StateBuffer is the flat state arena: separate numeric and integer lanes
// addressed by compiler-assigned offsets.
//
// The arena is owned by the session, not by any one program. It persists
// across frames and across recompilations; Grow extends it for a larger
// layout (new slots are zeroed), and it never shrinks, so offsets handed
// out for a compiled program stay valid for that program's lifetime.
//
// Zero-initialized slots are meaningful per operator: an integrator starts
// at 0, a delay ring starts as silence until filled.
type StateBuffer struct {
	floats []float64
	ints   []int64
}

// NewStateBuffer creates an empty arena.
func NewStateBuffer() *StateBuffer {
	return &StateBuffer{}
}

// Grow ensures the arena has at least the given slot counts per lane.
// Existing contents are preserved; added slots are zero.
func (b *StateBuffer) Grow(floatSlots, intSlots int) {
	if floatSlots > len(b.floats) {
		grown := make([]float64, floatSlots)
		copy(grown, b.floats)
		b.floats = grown
	}
	if intSlots > len(b.ints) {
		grown := make([]int64, intSlots)
		copy(grown, b.ints)
		b.ints = grown
	}
}

// Reset zeroes every slot in both lanes. Capacity is retained.
func (b *StateBuffer) Reset() {
	for i := range b.floats {
		b.floats[i] = 0
	}
	for i := range b.ints {
		b.ints[i] = 0
	}
}

// FloatSlots returns the numeric lane size.
func (b *StateBuffer) FloatSlots() int { return len(b.floats) }

// IntSlots returns the integer lane size.
func (b *StateBuffer) IntSlots() int { return len(b.ints) }

// Float reads one numeric slot. An out-of-range offset is a contract
// violation.
func (b *StateBuffer) Float(off ir.FloatOffset) (float64, error) {
	if off < 0 || int(off) >= len(b.floats) {
		return 0, stateRangeError("float", int(off), len(b.floats))
	}
	return b.floats[off], nil
}

// SetFloat writes one numeric slot.
func (b *StateBuffer) SetFloat(off ir.FloatOffset, v float64) error {
	if off < 0 || int(off) >= len(b.floats) {
		return stateRangeError("float", int(off), len(b.floats))
	}
	b.floats[off] = v
	return nil
}

// Int reads one integer slot.
func (b *StateBuffer) Int(off ir.IntOffset) (int64, error) {
	if off < 0 || int(off) >= len(b.ints) {
		return 0, stateRangeError("int", int(off), len(b.ints))
	}
	return b.ints[off], nil
}

// SetInt writes one integer slot.
func (b *StateBuffer) SetInt(off ir.IntOffset, v int64) error {
	if off < 0 || int(off) >= len(b.ints) {
		return stateRangeError("int", int(off), len(b.ints))
	}
	b.ints[off] = v
	return nil
}

// checkFloatRange verifies a contiguous float region is inside the arena.
func (b *StateBuffer) checkFloatRange(off ir.FloatOffset, length int) error {
	if off < 0 || length < 0 || int(off)+length > len(b.floats) {
		return stateRangeError("float", int(off)+length-1, len(b.floats))
	}
	return nil
}

// checkIntRange verifies a contiguous int region is inside the arena.
func (b *StateBuffer) checkIntRange(off ir.IntOffset, length int) error {
	if off < 0 || length < 0 || int(off)+length > len(b.ints) {
		return stateRangeError("int", int(off)+length-1, len(b.ints))
	}
	return nil
}
