// Package enrollment holds the semester enrollment model: persisted rows for students,
// enrollments and enrolled courses, and CreditLedger, the in-memory aggregate that owns
// the credit ceiling invariant.
//
// Nothing in this package touches a database. Persistence and concurrency control live in
// internal/data/aggregates, which rehydrates a ledger inside a transaction, applies one
// mutation and writes the result back with a version check.
package enrollment
