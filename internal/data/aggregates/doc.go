// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations compose table-level repos from internal/data/repos and own the
// transaction boundary of every invariant-critical write. Concurrent writers to one
// aggregate are ordered by a version column: each write reads the version, applies the
// change and commits only if a conditional update on that version still matches.
package aggregates
