// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts here name the write boundaries whose invariants must hold atomically, and the
// error codes those writes report. Implementations live in internal/data/aggregates.
package aggregates
