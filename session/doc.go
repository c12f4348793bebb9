// Package session provides the session record model, its compact binary
// encoding, and bounded session stores (in-process and Redis).
//
// # Binary encoding
//
// Sessions are stored in Redis in a versioned binary format. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] implementations and the [Session] model. It
// does NOT evaluate age, idle or hijack policy. Stores keep whatever they are
// given until their TTL lapses; the engine decides when a session is dead.
//
// # What this package must NOT do
//
//   - Import goRisk or risk (no upward imports).
//   - Make security decisions.
package session
