// Package repositories implements SQLite persistence for the run audit trail.
//
// [RunRepository] stores one row per playlist operation run with atomic sequence generation for human-readable ordering.
// Rows are soft deleted via deleted_at timestamps and deleted rows are excluded from queries by default.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
