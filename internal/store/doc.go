// Package store provides durable SQLite storage for sessions, compiled
// programs and state snapshots.
//
// The engine itself never touches disk. Hosts that want state to survive a
// process restart capture a Snapshot from the session, persist it here, and
// restore it after reopening - identity-based remapping in the engine means
// the restored snapshot is meaningful even under a recompiled program.
//
// Slot contents are stored as raw bit patterns (little-endian per slot),
// never as decimal text: a round trip through the store is bit-exact,
// including NaN payloads and signed zeros, and the stored content hash can
// be re-verified on read.
package store
