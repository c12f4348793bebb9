// Package risk computes request and session risk scores and hosts the
// pluggable detectors that feed them.
//
// Scoring is pure: [Policy.Assess] and [Policy.SessionScore] take a snapshot
// of signals and return a result without I/O. Gathering the signals (suspicion
// lookups, session counts, detector calls) is the engine's job.
//
// # Extension points
//
//   - [Similarity] compares device signatures. [JaccardSimilarity] is the default.
//   - [GeoAnomalyDetector], [RapidRequestDetector] and [AddressChurnDetector]
//     are optional. Stock implementations: [CountryChangeDetector],
//     [NewRequestRateDetector], [RecentAddressChurn].
//   - [SignatureSet] holds automated-client markers and can be reloaded from a
//     file while running.
//
// # What this package must NOT do
//
//   - Import goRisk.
//   - Enforce anything. Assessments and recommendations are advisory.
package risk
