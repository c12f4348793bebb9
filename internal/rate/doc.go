// Package rate implements the login backoff policy: a pure function of an identity's
// recent attempts and its address suspicion score.
//
// # Tiers
//
// Evaluated over failures inside the failure window (15 minutes by default):
//   - >= HardBlockFailures (10): blocked for HardBlockDuration (1h)
//   - >= SoftBlockFailures (5):  blocked for SoftBlockDuration (15m)
//   - >= BackoffStartFailures (3): exponential backoff from the last failure,
//     BackoffBase * 2^(failures-3), capped at BackoffCap
//
// An address whose suspicion exceeds SuspicionBlockScore is blocked for
// HardBlockDuration when none of the failure tiers apply.
//
// # What this package must NOT do
//
//   - Perform I/O. Callers pass in the ledger entries and suspicion score.
//   - Sleep or enforce delays; the retry-after is returned as data.
package rate
