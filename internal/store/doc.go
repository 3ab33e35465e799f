// Package store provides the SQLite run ledger.
//
// Every run of a script is recorded as a row in runs, and every event the
// interpreter reports during that run (file created, updated or unchanged,
// or an error) as a row in events. The ledger is append-only: a run is
// begun, receives events, and is finished with its summary counts.
//
// # Ordering
//
// Events are ordered by seq, the per-run logical clock stamped by the
// interpreter, never by wall time. Runs are listed newest first by
// started_at with the run ID as tie breaker; run IDs are UUIDv7 so they
// also sort by creation time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
