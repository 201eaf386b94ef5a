// Package store provides the SQLite-backed weave journal.
//
// The journal is an append-only log of successful mutations to bound
// collections. Each row carries the session that produced it, the
// collection, the operation (seed, insert, delete, update), the canonical
// identity key and the record as canonical JSON.
//
// # Ordering
//
//   - seq is the engine's logical clock and the primary key
//   - every query orders by seq, never by wall time
//   - Append is idempotent per seq (ON CONFLICT DO NOTHING)
//
// # Replay
//
// A session starts by seeding its containers from the data store and then
// mutates them. Replaying the most recent session therefore yields the last
// known state of every collection it rendered, which a restart defines as
// its initial data.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single open connection
package store
