// Package store provides SQLite-backed storage for buckets and events.
//
// The store is a single handle opened once per process and passed to every
// consumer. It implements:
//   - Buckets: named event containers with a never-reused internal key
//   - Events: per-bucket monotonically numbered, timestamp-ordered records
//   - Heartbeats: coalescing of repeated signals into the newest event
//
// # Exclusive Access
//
// Every operation runs inside the store-wide exclusive section (Store.Do).
// At most one section body executes at a time, across all buckets. A
// caller that needs several operations to observe one consistent state
// (for example one query-engine evaluation) runs them inside a single Do.
//
// If a section body panics, the handle is poisoned: the panic propagates
// and every later Do fails with ErrStoreUnavailable. A closed handle
// behaves the same way. The store never retries internally.
//
// Operations do not observe context cancellation. Once started they run
// to completion or failure.
//
// # Ordering
//
// Range queries return events newest first: ORDER BY starttime DESC, id DESC.
// The newest event of each bucket is tracked in an in-memory index so the
// heartbeat merge check does not scan the bucket.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
