// Package suspicion accumulates per-network-address suspicion scores from
// authentication and session anomalies.
//
// Scores are additive, capped at [Config.MaxScore], and decay only through the
// record TTL: a record whose TTL has lapsed reads as absent and the next event
// starts from zero. Each event refreshes the TTL.
//
// # Rules
//
//   - >= FailureThreshold failures in the ledger window: +FailurePoints, multiple_failed_logins
//   - >= RapidThreshold attempts in the ledger window: +RapidPoints, rapid_requests
//   - > DeviceThreshold distinct devices per address: +DevicePoints, anomalous_behavior
//   - hijack detection: +HijackPoints, session_hijack_attempt
//   - concurrent session cap breach: +ConcurrentPoints, concurrent_sessions_exceeded
//
// # What this package must NOT do
//
//   - Block requests. Consumers (rate limiter, risk scorer) read the score.
//   - Import goRisk.
package suspicion
