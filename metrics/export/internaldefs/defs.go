package internaldefs

import (
	goRisk "github.com/MrEthical07/goRisk"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goRisk.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goRisk.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goRisk.MetricAuthAttemptSuccess, Name: "gorisk_auth_attempt_success_total", Help: "Recorded successful authentication attempts."},
	{ID: goRisk.MetricAuthAttemptFailure, Name: "gorisk_auth_attempt_failure_total", Help: "Recorded failed authentication attempts."},
	{ID: goRisk.MetricAuthAllowed, Name: "gorisk_auth_allowed_total", Help: "Authentication checks that allowed the identity."},
	{ID: goRisk.MetricAuthRateLimited, Name: "gorisk_auth_rate_limited_total", Help: "Authentication checks denied by rate limiting or suspicion."},
	{ID: goRisk.MetricSuspicionRaised, Name: "gorisk_suspicion_raised_total", Help: "Suspicion score increases on a network address."},
	{ID: goRisk.MetricSessionCreated, Name: "gorisk_session_created_total", Help: "Created sessions."},
	{ID: goRisk.MetricSessionEvicted, Name: "gorisk_session_evicted_total", Help: "Sessions evicted by the concurrent session cap."},
	{ID: goRisk.MetricSessionValidated, Name: "gorisk_session_validated_total", Help: "Sessions that passed validation."},
	{ID: goRisk.MetricSessionNotFound, Name: "gorisk_session_not_found_total", Help: "Validations of unknown session ids."},
	{ID: goRisk.MetricSessionExpired, Name: "gorisk_session_expired_total", Help: "Sessions rejected past their maximum age."},
	{ID: goRisk.MetricSessionTimedOut, Name: "gorisk_session_timed_out_total", Help: "Sessions rejected after the idle timeout."},
	{ID: goRisk.MetricSessionHijackDetected, Name: "gorisk_session_hijack_detected_total", Help: "Sessions terminated on suspected hijacking."},
	{ID: goRisk.MetricSessionReauthRequired, Name: "gorisk_session_reauth_required_total", Help: "Valid sessions flagged for re-authentication."},
	{ID: goRisk.MetricSessionTerminated, Name: "gorisk_session_terminated_total", Help: "Explicitly terminated sessions."},
	{ID: goRisk.MetricSessionTerminateAll, Name: "gorisk_session_terminate_all_total", Help: "Terminate-all-sessions operations."},
	{ID: goRisk.MetricRiskAssessed, Name: "gorisk_risk_assessed_total", Help: "Risk assessments performed."},
	{ID: goRisk.MetricRiskMFARequired, Name: "gorisk_risk_mfa_required_total", Help: "Risk assessments requiring MFA."},
	{ID: goRisk.MetricRiskBlocked, Name: "gorisk_risk_blocked_total", Help: "Risk assessments that blocked access."},
	{ID: goRisk.MetricCSRFIssued, Name: "gorisk_csrf_issued_total", Help: "Issued CSRF tokens."},
	{ID: goRisk.MetricCSRFRejected, Name: "gorisk_csrf_rejected_total", Help: "Requests rejected by the CSRF guard."},
	{ID: goRisk.MetricBackendError, Name: "gorisk_backend_error_total", Help: "Failed calls to the state backend."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goRisk.MetricValidateLatency, Name: "gorisk_validate_session_latency_seconds", Help: "ValidateSession latency histogram."},
	{ID: goRisk.MetricAssessLatency, Name: "gorisk_assess_risk_latency_seconds", Help: "AssessRisk latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "gorisk_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the bucket upper bounds in seconds, as exposition labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe forms of [HistogramBounds].
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// HistogramUpperBounds returns the finite bucket bounds in seconds, derived
// from [goRisk.HistogramBucketBounds].
func HistogramUpperBounds() []float64 {
	out := make([]float64, len(goRisk.HistogramBucketBounds))
	for i, ms := range goRisk.HistogramBucketBounds {
		out[i] = float64(ms) / 1000
	}
	return out
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
