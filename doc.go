// Package goRisk is an authentication risk and session security engine. It
// records authentication attempts, throttles brute force with tiered blocks
// and exponential backoff, accumulates per-address suspicion, scores request
// and session risk, manages sessions with hijack detection and concurrency
// caps, and issues and checks CSRF tokens.
//
// The engine does not authenticate users. Callers verify credentials and then
// report the outcome with [Engine.RecordAuthAttempt].
//
// # Architecture boundaries
//
// goRisk is the public surface: [Engine], [Builder], [Config] and the value
// types returned by engine methods. Attempt retention, rate policy and the
// suspicion detector live under internal/. Scoring policy and detector
// strategies live in the risk package, session storage in session, and CSRF
// primitives in csrf.
//
// State is kept in bounded in-memory TTL caches by default. [Builder.WithRedis]
// moves it to Redis so several processes share one view.
//
// # What this package must NOT do
//
//   - Sleep or block to enforce backoff. Delays are returned as data.
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Keep process-wide state. Every engine owns its caches.
//   - Fall back to non-cryptographic hashing or randomness.
//
// # Errors
//
// Policy outcomes (a denied attempt, an invalid session, a rejected CSRF
// token) are returned as values with a machine-readable Code. The error
// return carries backend failures wrapped with [ErrBackendUnavailable].
package goRisk
