package goRisk

import (
	"context"
	"os"
	"time"

	"github.com/MrEthical07/goRisk/csrf"
	"github.com/MrEthical07/goRisk/internal"
	"github.com/MrEthical07/goRisk/internal/suspicion"
	"github.com/MrEthical07/goRisk/risk"
	"github.com/MrEthical07/goRisk/session"
)

// Machine-readable result codes.
const (
	CodeRateLimited            = "RATE_LIMITED"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodeSessionExpired         = "SESSION_EXPIRED"
	CodeSessionTimedOut        = "SESSION_TIMED_OUT"
	CodeSessionHijackSuspected = "SESSION_HIJACK_SUSPECTED"
	CodeCSRFInvalidToken       = csrf.CodeInvalidToken
)

// Session validation reasons.
const (
	ReasonSessionNotFound = "session not found"
	ReasonSessionExpired  = "session expired"
	ReasonSessionTimedOut = "session timed out"
	ReasonHijackSuspected = "potential session hijacking detected"
)

const defaultSignaturePrefixLen = 64

// Identity buckets authentication attempts by network address and device signature.
type Identity struct {
	NetworkAddress  string
	DeviceSignature string
}

// Key returns the identity key using the default signature prefix length.
// The engine uses the configured Attempts.SignaturePrefixLen instead.
func (i Identity) Key() string {
	return internal.IdentityKey(i.NetworkAddress, i.DeviceSignature, defaultSignaturePrefixLen)
}

// RequestContext describes the client of the current request.
type RequestContext struct {
	NetworkAddress  string
	DeviceSignature string
}

// Identity returns the attempt identity for rc.
func (rc RequestContext) Identity() Identity {
	return Identity{NetworkAddress: rc.NetworkAddress, DeviceSignature: rc.DeviceSignature}
}

// AuthDecision is the outcome of [Engine.IsAuthAllowed].
type AuthDecision struct {
	Allowed           bool
	Reason            string
	RetryAfterSeconds int
	Code              string
}

// Err returns [ErrRateLimited] for a denial and nil otherwise.
func (d AuthDecision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrRateLimited
}

// SessionMetadata is the public view of a session.
type SessionMetadata struct {
	SessionID    string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time
	// NetworkAddress and DeviceSignature are those of the last successful validation.
	NetworkAddress  string
	DeviceSignature string
	// InitialNetworkAddress and InitialDeviceSignature never change after creation.
	InitialNetworkAddress  string
	InitialDeviceSignature string
	MFAVerified            bool
	RiskScore              int
	Location               string
}

func sessionMetadata(s *session.Session) SessionMetadata {
	return SessionMetadata{
		SessionID:              s.SessionID,
		UserID:                 s.UserID,
		CreatedAt:              s.CreatedAt,
		LastActivity:           s.LastActivity,
		NetworkAddress:         s.NetworkAddress,
		DeviceSignature:        s.DeviceSignature,
		InitialNetworkAddress:  s.InitialNetworkAddress,
		InitialDeviceSignature: s.InitialDeviceSignature,
		MFAVerified:            s.MFAVerified,
		RiskScore:              s.RiskScore,
		Location:               s.Location,
	}
}

// SessionValidation is the outcome of [Engine.ValidateSession].
type SessionValidation struct {
	Valid         bool
	Session       *SessionMetadata
	RequireReauth bool
	Reason        string
	Code          string
	// HijackConfidence is the hijack score computed for this request.
	HijackConfidence int
}

// Err maps an invalid result to its sentinel error.
func (v SessionValidation) Err() error {
	if v.Valid {
		return nil
	}
	switch v.Code {
	case CodeSessionExpired:
		return ErrSessionExpired
	case CodeSessionTimedOut:
		return ErrSessionTimedOut
	case CodeSessionHijackSuspected:
		return ErrHijackSuspected
	default:
		return ErrSessionNotFound
	}
}

func invalidSession(code, reason string) SessionValidation {
	return SessionValidation{Code: code, Reason: reason}
}

// RiskAssessment is the outcome of [Engine.AssessRisk]. It is computed fresh
// on every call.
type RiskAssessment struct {
	Score           int
	Factors         []string
	RequireMFA      bool
	RequireReauth   bool
	BlockAccess     bool
	Recommendations []string
}

func riskAssessment(a risk.Assessment) RiskAssessment {
	factors := make([]string, len(a.Factors))
	for i, f := range a.Factors {
		factors[i] = string(f)
	}
	return RiskAssessment{
		Score:           a.Score,
		Factors:         factors,
		RequireMFA:      a.RequireMFA,
		RequireReauth:   a.RequireReauth,
		BlockAccess:     a.BlockAccess,
		Recommendations: a.Recommendations,
	}
}

// SuspicionRecord is the accumulated suspicion of a network address.
type SuspicionRecord struct {
	Address      string
	Score        int
	LastActivity time.Time
	ExpiresAt    time.Time
	Tags         []string
}

func suspicionRecord(r suspicion.Record) SuspicionRecord {
	return SuspicionRecord{
		Address:      r.Address,
		Score:        r.Score,
		LastActivity: r.LastActivity,
		ExpiresAt:    r.ExpiresAt,
		Tags:         append([]string(nil), r.Tags...),
	}
}

// CSRFDecision is the guard outcome for one request.
type CSRFDecision = csrf.Decision

// SecretProvider supplies the master signing secret at build time.
type SecretProvider interface {
	Secret(ctx context.Context) ([]byte, error)
}

// StaticSecret is a fixed secret.
type StaticSecret []byte

// Secret returns a copy of s.
func (s StaticSecret) Secret(context.Context) ([]byte, error) {
	return cloneBytes(s), nil
}

// EnvSecret reads the secret from the named environment variable.
// An unset or empty variable yields no secret.
type EnvSecret string

// Secret returns the variable's value.
func (name EnvSecret) Secret(context.Context) ([]byte, error) {
	v := os.Getenv(string(name))
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}
