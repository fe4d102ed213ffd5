package engine

import "sync/atomic"

// FrameClock produces the monotonic frame stamps that validate cache
// entries. Hosts advance it once per rendered frame and stamp the frame's
// context with the result.
//
// All memoization keys on this stamp. NEVER reuse or rewind a stamp within
// a session; replay creates a fresh session (or resets state) instead.
//
// Thread-safety: FrameClock is safe for concurrent use (atomic operations),
// though the engine's single-threaded design means only one goroutine
// typically calls Next().
type FrameClock struct {
	frame atomic.Int64
}

// NewFrameClock creates a clock whose first Next() returns 0.
func NewFrameClock() *FrameClock {
	c := &FrameClock{}
	c.frame.Store(-1)
	return c
}

// NewFrameClockAt creates a clock whose first Next() returns start.
// Used to resume a session from a known frame position.
func NewFrameClockAt(start int64) *FrameClock {
	c := &FrameClock{}
	c.frame.Store(start - 1)
	return c
}

// Next advances to the next frame and returns its stamp.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *FrameClock) Next() int64 {
	return c.frame.Add(1)
}

// Current returns the most recently issued frame stamp without advancing.
// Returns -1 if Next() has never been called.
func (c *FrameClock) Current() int64 {
	return c.frame.Load()
}
