// Package limiters provides in-process request-rate tracking built on
// golang.org/x/time/rate token buckets.
//
// # Limiters
//
//   - [RequestRateTracker] keeps one token bucket per key (usually a network
//     address) in an LRU-bounded cache and reports when a key runs dry.
//
// # What this package must NOT do
//
//   - Import goRisk or any sibling internal package.
//   - Sleep or wait on a bucket. Callers get a boolean and decide.
package limiters
