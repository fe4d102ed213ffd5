// Package engine implements the Strobe signal expression evaluator.
//
// The engine is the heart of Strobe - it turns a compiled, immutable graph
// of expression nodes into concrete per-frame values: pure combinators,
// multi-contributor bus aggregation, transform pipelines, and explicit
// stateful operators backed by a flat state arena.
//
// ARCHITECTURE:
//
// Single-Threaded Evaluation:
// A full evaluation is one synchronous call tree rooted at whichever output
// nodes the host requests. The engine performs no internal parallelism and
// exposes no suspension points. This ensures:
// - Predictable evaluation order
// - Reproducible traces on replay
// - Simple reasoning about state advancement
//
// Per-Frame Flow:
// 1. Host builds a FrameContext (time, delta, frame stamp, external resolver)
// 2. Host calls Evaluate() once per output it needs
// 3. The dispatcher memoizes per node: at most one computation per node per
//    frame, validated by comparing a stored stamp against the frame stamp
//    (no O(n) cache clear between frames)
// 4. Stateful operators advance their arena slots exactly once per frame,
//    which the memoization guarantee makes safe under any fan-in
//
// The compiled Program, constant pool, bus descriptors, and transform chains
// are immutable and read without locking. The frame cache and state arena
// are mutable but exclusively owned by the single evaluating goroutine.
//
// CRITICAL PATTERNS:
//
// Frame Stamp:
// Cache entries are validated against a monotonically increasing frame
// stamp. NEVER reuse a frame number within a session; replay resets the
// session instead.
//
// Explicit State:
// All persistent memory is addressable slots in the state arena, assigned
// by the compiler. No captured closures. This is what makes identity-based
// snapshot/restore and hot-swap possible.
//
// Contract Violations:
// An out-of-range index or unknown kind/mode/opcode means the compiler and
// engine disagree about the program. These are raised as ContractError,
// never silently defaulted. Missing external inputs are the one soft case:
// they resolve to NaN and propagate arithmetically.
package engine
