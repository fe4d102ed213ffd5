package testutil

import (
	"sync"

	"github.com/roach88/strobe/internal/engine"
)

// FrameScript produces successive frame contexts with a fixed delta time.
//
// Unlike a host's real frame loop, a FrameScript can be Reset for test
// reuse, so the same scenario can run multiple times with identical frame
// numbers and timestamps.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FrameScript struct {
	mu    sync.Mutex
	dt    float64
	frame int64
}

// NewFrameScript creates a frame script with the given delta time in
// seconds. The first Next() is frame 0 at time 0.
func NewFrameScript(dt float64) *FrameScript {
	return &FrameScript{dt: dt}
}

// Next returns the context for the next frame, advancing the script.
// inputs may be nil for a frame with no external values.
func (f *FrameScript) Next(inputs engine.MapResolver) *engine.FrameContext {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx := &engine.FrameContext{
		TimeMS:       float64(f.frame) * f.dt * 1000,
		DeltaSeconds: f.dt,
		Frame:        f.frame,
	}
	if inputs != nil {
		ctx.Inputs = inputs
	}
	f.frame++
	return ctx
}

// Frame returns the frame number the next call to Next will produce.
func (f *FrameScript) Frame() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

// Reset rewinds the script to frame 0.
func (f *FrameScript) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = 0
}
