// Package ledger records authentication attempts per identity key in a bounded,
// time-expiring list, and indexes the device signatures seen per network address.
//
// # Stores
//
//   - [MemoryStore] — process-local, LRU-bounded with per-entry TTL.
//   - [RedisStore] — shared cache for multi-instance deployments (list + sorted set per key).
//
// Entries older than the ledger window are dropped lazily on read using the
// ledger clock; store TTLs only reclaim memory.
//
// # What this package must NOT do
//
//   - Decide whether an identity is allowed to authenticate (see internal/rate).
//   - Import goRisk or any sibling internal package except internal.
package ledger
