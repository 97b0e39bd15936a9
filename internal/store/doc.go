// Package store provides SQLite-backed persistence for the molder tooling.
//
// Two tables are kept:
//   - compiled_schemas: compiled documents keyed by (model, fingerprint).
//     Cache adapts the table to the molder.Cache interface so a process can
//     skip compilation of models whose declarations did not change.
//   - validation_runs: one row per recorded validation, read back by the
//     history command.
//
// # Ordering
//
// Rows carry a seq INTEGER logical clock. Queries order by seq and break
// ties by id COLLATE BINARY; wall-clock timestamps are informational only.
//
// # Integrity
//
// Each stored document carries the SHA-256 of its canonical JSON. A row whose
// hash no longer matches is treated as a miss and overwritten.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
