package engine

import "github.com/roach88/strobe/internal/ir"

// ExternalResolver supplies values for external input slots - the points
// where wired/bound inputs from outside the graph enter the engine.
//
// Implementations must never block and never fail: a missing key is
// reported through HasValue, and the engine turns it into a NaN that
// propagates arithmetically rather than crashing the frame.
type ExternalResolver interface {
	// HasValue reports whether the slot currently has a bound value.
	HasValue(key ir.SlotKey) bool

	// ReadNumber returns the slot's current value. Only called for keys
	// where HasValue returned true.
	ReadNumber(key ir.SlotKey) float64
}

// FrameContext carries the per-frame inputs. It is built once by the host
// at the start of a frame and is invariant for the whole frame: every
// Evaluate call within one frame must receive the same context.
type FrameContext struct {
	// TimeMS is the frame's absolute monotonic time in milliseconds.
	// Unclamped and never wrapped by the engine; phase derivation is
	// ordinary graph math, not a primitive here.
	TimeMS float64

	// DeltaSeconds is the time elapsed since the previous frame, in
	// seconds. Drives integration, slew, and time-based delay.
	DeltaSeconds float64

	// Frame is the monotonically increasing frame stamp from a FrameClock.
	Frame int64

	// Inputs resolves external input slots. May be nil, in which case
	// every slot reads as unset.
	Inputs ExternalResolver
}

// MapResolver is a simple map-backed ExternalResolver for hosts and tests.
type MapResolver map[ir.SlotKey]float64

// HasValue implements ExternalResolver.
func (m MapResolver) HasValue(key ir.SlotKey) bool {
	_, ok := m[key]
	return ok
}

// ReadNumber implements ExternalResolver.
func (m MapResolver) ReadNumber(key ir.SlotKey) float64 {
	return m[key]
}
