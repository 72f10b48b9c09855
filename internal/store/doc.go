// Package store provides SQLite-backed durable storage for playback
// recordings.
//
// The store is an append-only log with:
//   - Sessions: one row per Start, with the compiled plan and its hash
//   - Dispatches: one row per frame dispatch
//   - Transitions: one row per playback state change
//
// # Ordering
//
// Dispatches and transitions are keyed by the engine's logical seq, never by
// timestamps. Every query orders by seq ASC, so a recording reads back in
// the order it happened regardless of wall-clock resolution. Callers that
// reopen an existing database continue numbering from GetLastSeq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Plans and command lists are stored as canonical JSON (ir.MarshalCanonical)
// so the stored plan hash can be recomputed from the row.
package store
