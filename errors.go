package goRisk

import "errors"

var (
	// ErrRateLimited is returned by [AuthDecision.Err] for a denied attempt.
	ErrRateLimited = errors.New("authentication rate limited")
	// ErrSessionNotFound reports an unknown or already removed session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired reports a session older than the configured maximum age.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionTimedOut reports a session idle for longer than the idle timeout.
	ErrSessionTimedOut = errors.New("session timed out")
	// ErrHijackSuspected reports a session terminated by hijack detection.
	ErrHijackSuspected = errors.New("potential session hijacking detected")
	// ErrInvalidCSRFToken reports a missing, forged or expired CSRF token.
	ErrInvalidCSRFToken = errors.New("CSRF token validation failed")
	// ErrInvalidUserID is returned when a session is requested for an empty user.
	ErrInvalidUserID = errors.New("user id is required")
	// ErrBackendUnavailable wraps Redis failures.
	ErrBackendUnavailable = errors.New("risk backend unavailable")
	// ErrMissingSecret is returned by Build in production mode without a secret.
	ErrMissingSecret = errors.New("signing secret is required in production mode")
	// ErrSecretTooShort rejects secrets below [MinSecretBytes].
	ErrSecretTooShort = errors.New("signing secret is too short")
	// ErrEngineNotReady is returned by methods called on a nil engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
