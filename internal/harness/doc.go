// Package harness runs scenario-driven conformance tests against the
// evaluation engine.
//
// A scenario is a YAML document: a patch (inline CUE or a file reference),
// a scripted sequence of frames with external input values, the outputs to
// record, and assertions over the recorded values. The harness compiles
// the patch, drives a real session frame by frame with a deterministic
// token and fixed delta time, and records every output value bit-faithfully.
//
// Recorded traces serve two purposes. Golden comparison (RunWithGolden)
// pins a scenario's exact output sequence in a fixture file, catching any
// unintended change to evaluation semantics. Replay verification
// (VerifyReplay) runs the same scenario twice and demands bit-identical
// traces, which is the engine's core determinism promise: same graph, same
// frame sequence, same inputs, same results.
package harness
