// Package compiler turns patch descriptions into compiled ir.Programs.
//
// Two front ends feed it. Host code builds graphs programmatically through
// Builder, which assigns dense node indices, deduplicates constants and
// lays out the state arena as nodes are added. Documents written in CUE go
// through CompilePatch, which decodes the patch schema and drives the same
// Builder underneath.
//
// Both paths end in Build, which fixes bus contributor order and runs full
// program validation: index ranges, operator shapes, arena layout and the
// pure-cycle check. A Program that leaves this package without error is
// safe for the engine to evaluate without further checking.
package compiler
