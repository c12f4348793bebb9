package goRisk

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventAuthAttemptSuccess  = "auth_attempt_success"
	auditEventAuthAttemptFailure  = "auth_attempt_failure"
	auditEventAuthRateLimited     = "auth_rate_limited"
	auditEventSuspicionRaised     = "suspicion_raised"
	auditEventSuspicionCleared    = "suspicion_cleared"
	auditEventSessionCreated      = "session_created"
	auditEventSessionEvicted      = "session_evicted"
	auditEventSessionExpired      = "session_expired"
	auditEventSessionTimedOut     = "session_timed_out"
	auditEventSessionHijack       = "session_hijack_detected"
	auditEventSessionTerminated   = "session_terminated"
	auditEventSessionTerminateAll = "session_terminate_all"
	auditEventSessionMFAVerified  = "session_mfa_verified"
	auditEventRiskBlocked         = "risk_access_blocked"
	auditEventCSRFRejected        = "csrf_rejected"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrSessionExpired   AuditErrorCode = "session_expired"
	auditErrSessionTimedOut  AuditErrorCode = "session_timed_out"
	auditErrHijackSuspected  AuditErrorCode = "hijack_suspected"
	auditErrInvalidCSRFToken AuditErrorCode = "invalid_csrf_token"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	address string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if address == "" {
		address = addressFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:        uuid.NewString(),
		Timestamp:      e.now().UTC(),
		EventType:      eventType,
		UserID:         userID,
		SessionID:      sessionID,
		NetworkAddress: address,
		Success:        success,
		Metadata:       metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionTimedOut):
		return auditErrSessionTimedOut
	case errors.Is(err, ErrHijackSuspected):
		return auditErrHijackSuspected
	case errors.Is(err, ErrInvalidCSRFToken):
		return auditErrInvalidCSRFToken
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
