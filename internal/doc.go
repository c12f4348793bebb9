// Package internal contains helper utilities that are intentionally private to goRisk,
// including secure random generation and device signature helpers.
//
// # Sub-packages
//
//   - ledger — per-identity sliding-window attempt ledger (memory and Redis stores)
//   - limiters — per-address request-rate tracking on token buckets
//   - rate — login backoff policy evaluated over ledger entries
//   - suspicion — per-address suspicion accumulator and activity detector
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRisk API.
//   - Be imported by any package outside the goRisk module.
package internal
