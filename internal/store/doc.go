// Package store provides durable statement storage for the entity system.
//
// A statement is an append-only row:
//   - id, subject, predicate: TIDs
//   - object or value: exactly one is set, selected by the ir.Value variant
//   - cancellation_id: zero while active, write-once
//   - statement and cancellation metadata: ordered (predicate, value) pairs
//
// Cancelled statements are never removed. Cancelling twice is an error.
//
// Three backends implement StatementStorage:
//   - SQLiteStore: one statements table, optionally with dedicated columns
//     for the standard metadata predicates
//   - BadgerStore: canonical JSON records keyed by statement ID
//   - MemoryStore: ordered in-process map, mostly for tests
//
// # Batches
//
// ApplyBatch is all-or-nothing on transactional backends. PrepareBatch
// stages the same commands without making them visible, so a caller can
// prepare on several backends and only commit once every backend staged
// its part.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// All queries order by statement ID ascending.
package store
