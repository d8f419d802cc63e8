// Package store provides SQLite-backed storage for compiled models and
// solve runs.
//
// The store keeps:
//   - Models: canonical JSON of each compiled model, keyed by ir.ModelHash
//   - Runs: one row per solve, with status, objective and solver name
//   - Run values: the solved value of every materialized variable
//
// Models are content addressed, so compiling the same notation over the
// same data twice stores one model that both runs point at.
//
// Runs are ordered by seq, a logical clock, then by id. Queries never
// order by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
