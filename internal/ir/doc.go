// Package ir provides the compiled intermediate representation for Strobe
// signal graphs.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - All node references are dense integer indices, never pointers
//   - A Program is immutable after compilation; recompilation replaces it
//     wholesale, it is never mutated in place
//   - Persistent operator state lives in compiler-assigned slots of a flat
//     state arena, never in captured closures
//   - Stable operator identities are NFC-normalized strings, used for
//     snapshot/restore remapping across recompilation
package ir
