package goRisk

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goRisk/risk"
)

// Config is the complete engine configuration. Start from [DefaultConfig] or
// [HighSecurityConfig] and adjust fields; [Builder.WithConfig] stores a copy.
type Config struct {
	Attempts  AttemptsConfig
	RateLimit RateLimitConfig
	Suspicion SuspicionConfig
	Session   SessionConfig
	Hijack    HijackConfig
	Risk      RiskConfig
	CSRF      CSRFConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
	Backend   BackendConfig
}

/*
====================================
ATTEMPT LEDGER CONFIG
====================================
*/

// AttemptsConfig controls how authentication attempts are retained.
type AttemptsConfig struct {
	// MaxPerIdentity caps each identity's attempt list; older entries are dropped.
	MaxPerIdentity int
	// Window is how long an attempt stays visible.
	Window time.Duration
	// SignaturePrefixLen is how many bytes of the normalized device signature
	// go into the identity key.
	SignaturePrefixLen int
	// MaxIdentities bounds the in-memory ledger.
	MaxIdentities int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds the failure tiers and backoff schedule.
type RateLimitConfig struct {
	FailureWindow        time.Duration
	HardBlockFailures    int
	HardBlockDuration    time.Duration
	SoftBlockFailures    int
	SoftBlockDuration    time.Duration
	BackoffStartFailures int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	// SuspicionBlockScore denies an address whose suspicion score is above it.
	SuspicionBlockScore int
}

/*
====================================
SUSPICION CONFIG
====================================
*/

// SuspicionConfig holds the detector thresholds and point values.
type SuspicionConfig struct {
	TTL              time.Duration
	MaxScore         int
	FailureThreshold int
	FailurePoints    int
	RapidThreshold   int
	RapidPoints      int
	DeviceThreshold  int
	DevicePoints     int
	HijackPoints     int
	ConcurrentPoints int
	// MaxAddresses bounds the in-memory suspicion store.
	MaxAddresses int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and concurrency.
type SessionConfig struct {
	MaxAge      time.Duration
	IdleTimeout time.Duration
	// RenewThreshold is the age after which a session without verified MFA
	// must re-authenticate.
	RenewThreshold time.Duration
	// MaxConcurrent is the number of sessions a user may hold; 0 disables the cap.
	MaxConcurrent int
	// ReauthRiskScore requires re-authentication for session scores above it.
	ReauthRiskScore int
	// MaxSessions bounds the in-memory session store.
	MaxSessions int
}

/*
====================================
HIJACK CONFIG
====================================
*/

// HijackConfig weighs the per-validation hijack signals.
type HijackConfig struct {
	AddressChangedPoints    int
	SignatureMismatchPoints int
	AddressChurnPoints      int
	MinSimilarity           float64
	// BlockAbove treats a session as hijacked when confidence exceeds it.
	BlockAbove int
	// ChurnEnabled turns on the built-in address churn detector. Off by
	// default: mobile clients legitimately hop between addresses.
	// A detector passed to WithAddressChurnDetector is used regardless.
	ChurnEnabled bool
	// ChurnWindow and ChurnAddresses configure the default churn detector.
	ChurnWindow    time.Duration
	ChurnAddresses int
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig controls request and session scoring.
type RiskConfig struct {
	// Location is the zone used for the usual-hours check. Nil means time.Local.
	Location        *time.Location
	UsualHoursStart int
	UsualHoursEnd   int
	Weights         risk.Weights
	SessionWeights  risk.SessionWeights
	Thresholds      risk.Thresholds

	// AutomatedSignatures replaces the stock automated-client markers when non-nil.
	AutomatedSignatures []string
	// SignatureListPath loads markers from a file at build time.
	SignatureListPath string
	// WatchSignatureList reloads SignatureListPath when it changes.
	WatchSignatureList bool

	// RapidRequestsPerSecond and RapidRequestBurst configure the default
	// rapid-request detector. A zero rate disables it.
	RapidRequestsPerSecond float64
	RapidRequestBurst      int

	// GeoMemory is how long the default geo anomaly detector remembers a user's country.
	GeoMemory time.Duration
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFMode selects the token scheme used by the CSRF helpers and middleware.
type CSRFMode string

const (
	// CSRFModeSigned issues stateless HMAC-signed tokens.
	CSRFModeSigned CSRFMode = "signed"
	// CSRFModeDoubleSubmit compares a cookie with a submitted copy.
	CSRFModeDoubleSubmit CSRFMode = "double-submit"
)

// CSRFConfig controls CSRF token issuance and checking.
type CSRFConfig struct {
	Mode      CSRFMode
	MaxAge    time.Duration
	ClockSkew time.Duration
	// ExemptPaths are exact paths or prefixes ending in "/*".
	ExemptPaths  []string
	CookieName   string
	HeaderName   string
	FormField    string
	CookiePath   string
	SecureCookie bool
	SameSite     http.SameSite
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the signing secret and production guard rails.
type SecurityConfig struct {
	// ProductionMode makes a missing secret fatal at build time.
	ProductionMode bool
	// Secret is the master secret for CSRF signing. A [SecretProvider] set on
	// the builder takes precedence.
	Secret []byte
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig configures the Redis key namespace.
type BackendConfig struct {
	KeyPrefix string
}

// MinSecretBytes is the minimum signing secret length.
const MinSecretBytes = 32

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	policy := risk.DefaultPolicy()
	hijack := risk.DefaultHijackPolicy()
	churn := risk.DefaultChurnConfig()

	return Config{
		Attempts: AttemptsConfig{
			MaxPerIdentity:     20,
			Window:             time.Hour,
			SignaturePrefixLen: 64,
			MaxIdentities:      100000,
		},
		RateLimit: RateLimitConfig{
			FailureWindow:        15 * time.Minute,
			HardBlockFailures:    10,
			HardBlockDuration:    time.Hour,
			SoftBlockFailures:    5,
			SoftBlockDuration:    15 * time.Minute,
			BackoffStartFailures: 3,
			BackoffBase:          5 * time.Minute,
			BackoffCap:           15 * time.Minute,
			SuspicionBlockScore:  80,
		},
		Suspicion: SuspicionConfig{
			TTL:              time.Hour,
			MaxScore:         100,
			FailureThreshold: 5,
			FailurePoints:    20,
			RapidThreshold:   10,
			RapidPoints:      15,
			DeviceThreshold:  3,
			DevicePoints:     10,
			HijackPoints:     30,
			ConcurrentPoints: 15,
			MaxAddresses:     100000,
		},
		Session: SessionConfig{
			MaxAge:          24 * time.Hour,
			IdleTimeout:     30 * time.Minute,
			RenewThreshold:  time.Hour,
			MaxConcurrent:   5,
			ReauthRiskScore: 70,
			MaxSessions:     100000,
		},
		Hijack: HijackConfig{
			AddressChangedPoints:    hijack.AddressChanged,
			SignatureMismatchPoints: hijack.SignatureMismatch,
			AddressChurnPoints:      hijack.AddressChurn,
			MinSimilarity:           hijack.MinSimilarity,
			BlockAbove:              hijack.BlockAbove,
			ChurnWindow:             churn.Window,
			ChurnAddresses:          churn.MaxAddresses,
		},
		Risk: RiskConfig{
			UsualHoursStart:        policy.UsualHoursStart,
			UsualHoursEnd:          policy.UsualHoursEnd,
			Weights:                policy.Weights,
			SessionWeights:         policy.SessionWeights,
			Thresholds:             policy.Thresholds,
			RapidRequestsPerSecond: 2,
			RapidRequestBurst:      20,
			GeoMemory:              30 * 24 * time.Hour,
		},
		CSRF: CSRFConfig{
			Mode:         CSRFModeSigned,
			MaxAge:       24 * time.Hour,
			ClockSkew:    time.Minute,
			CookieName:   "csrf_token",
			HeaderName:   "X-CSRF-Token",
			FormField:    "_csrf",
			CookiePath:   "/",
			SecureCookie: true,
			SameSite:     http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
		Backend: BackendConfig{
			KeyPrefix: "gorisk",
		},
	}
}

// HighSecurityConfig tightens session lifetime, hijack sensitivity and
// requires an explicit secret.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Session.MaxAge = 8 * time.Hour
	cfg.Session.IdleTimeout = 15 * time.Minute
	cfg.Session.RenewThreshold = 30 * time.Minute
	cfg.Session.MaxConcurrent = 3
	cfg.Session.ReauthRiskScore = 50
	cfg.Hijack.MinSimilarity = 0.8
	cfg.Hijack.BlockAbove = 50
	cfg.Hijack.ChurnEnabled = true
	cfg.RateLimit.SuspicionBlockScore = 60
	cfg.CSRF.MaxAge = 2 * time.Hour
	cfg.CSRF.ClockSkew = 30 * time.Second
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	cfg.Security.ProductionMode = true
	return cfg
}

func (c Config) riskPolicy() risk.Policy {
	return risk.Policy{
		Weights:         c.Risk.Weights,
		SessionWeights:  c.Risk.SessionWeights,
		Thresholds:      c.Risk.Thresholds,
		UsualHoursStart: c.Risk.UsualHoursStart,
		UsualHoursEnd:   c.Risk.UsualHoursEnd,
	}
}

func (c Config) hijackPolicy() risk.HijackPolicy {
	return risk.HijackPolicy{
		AddressChanged:    c.Hijack.AddressChangedPoints,
		SignatureMismatch: c.Hijack.SignatureMismatchPoints,
		AddressChurn:      c.Hijack.AddressChurnPoints,
		MinSimilarity:     c.Hijack.MinSimilarity,
		BlockAbove:        c.Hijack.BlockAbove,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Security.Secret = cloneBytes(cfg.Security.Secret)
	if cfg.CSRF.ExemptPaths != nil {
		out.CSRF.ExemptPaths = append([]string(nil), cfg.CSRF.ExemptPaths...)
	}
	if cfg.Risk.AutomatedSignatures != nil {
		out.Risk.AutomatedSignatures = append([]string(nil), cfg.Risk.AutomatedSignatures...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks c for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Attempts.MaxPerIdentity <= 0 {
		return errors.New("Attempts MaxPerIdentity must be > 0")
	}
	if c.Attempts.Window <= 0 {
		return errors.New("Attempts Window must be > 0")
	}
	if c.Attempts.SignaturePrefixLen <= 0 {
		return errors.New("Attempts SignaturePrefixLen must be > 0")
	}
	if c.Attempts.MaxIdentities <= 0 {
		return errors.New("Attempts MaxIdentities must be > 0")
	}

	if c.RateLimit.FailureWindow <= 0 {
		return errors.New("RateLimit FailureWindow must be > 0")
	}
	if c.RateLimit.FailureWindow > c.Attempts.Window {
		return errors.New("RateLimit FailureWindow must not exceed Attempts Window")
	}
	if c.RateLimit.BackoffStartFailures <= 0 ||
		c.RateLimit.SoftBlockFailures <= c.RateLimit.BackoffStartFailures ||
		c.RateLimit.HardBlockFailures <= c.RateLimit.SoftBlockFailures {
		return errors.New("RateLimit tiers must satisfy 0 < BackoffStartFailures < SoftBlockFailures < HardBlockFailures")
	}
	if c.RateLimit.HardBlockFailures > c.Attempts.MaxPerIdentity {
		return errors.New("RateLimit HardBlockFailures must not exceed Attempts MaxPerIdentity")
	}
	if c.RateLimit.SoftBlockDuration <= 0 || c.RateLimit.HardBlockDuration <= 0 {
		return errors.New("RateLimit block durations must be > 0")
	}
	if c.RateLimit.BackoffBase <= 0 || c.RateLimit.BackoffCap < c.RateLimit.BackoffBase {
		return errors.New("RateLimit BackoffCap must be >= BackoffBase > 0")
	}
	if c.RateLimit.SuspicionBlockScore <= 0 || c.RateLimit.SuspicionBlockScore > c.Suspicion.MaxScore {
		return errors.New("RateLimit SuspicionBlockScore must be in (0, Suspicion MaxScore]")
	}

	if c.Suspicion.TTL <= 0 {
		return errors.New("Suspicion TTL must be > 0")
	}
	if c.Suspicion.MaxScore <= 0 || c.Suspicion.MaxScore > risk.MaxScore {
		return errors.New("Suspicion MaxScore must be in (0, 100]")
	}
	if c.Suspicion.MaxAddresses <= 0 {
		return errors.New("Suspicion MaxAddresses must be > 0")
	}
	if c.Suspicion.FailurePoints < 0 || c.Suspicion.RapidPoints < 0 || c.Suspicion.DevicePoints < 0 ||
		c.Suspicion.HijackPoints < 0 || c.Suspicion.ConcurrentPoints < 0 {
		return errors.New("Suspicion points must be >= 0")
	}

	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if c.Session.IdleTimeout <= 0 || c.Session.IdleTimeout > c.Session.MaxAge {
		return errors.New("Session IdleTimeout must be in (0, MaxAge]")
	}
	if c.Session.RenewThreshold <= 0 {
		return errors.New("Session RenewThreshold must be > 0")
	}
	if c.Session.MaxConcurrent < 0 {
		return errors.New("Session MaxConcurrent must be >= 0")
	}
	if c.Session.ReauthRiskScore < 0 || c.Session.ReauthRiskScore > risk.MaxScore {
		return errors.New("Session ReauthRiskScore must be in [0, 100]")
	}
	if c.Session.MaxSessions <= 0 {
		return errors.New("Session MaxSessions must be > 0")
	}

	if c.Hijack.MinSimilarity < 0 || c.Hijack.MinSimilarity > 1 {
		return errors.New("Hijack MinSimilarity must be in [0, 1]")
	}
	if c.Hijack.BlockAbove < 0 || c.Hijack.BlockAbove >= risk.MaxScore {
		return errors.New("Hijack BlockAbove must be in [0, 100)")
	}

	if c.Risk.UsualHoursStart < 0 || c.Risk.UsualHoursEnd > 24 || c.Risk.UsualHoursStart >= c.Risk.UsualHoursEnd {
		return errors.New("Risk usual hours must satisfy 0 <= start < end <= 24")
	}
	t := c.Risk.Thresholds
	if t.RequireMFA > t.RequireReauth || t.RequireReauth > t.BlockAccess {
		return errors.New("Risk thresholds must satisfy RequireMFA <= RequireReauth <= BlockAccess")
	}
	if c.Risk.RapidRequestsPerSecond < 0 {
		return errors.New("Risk RapidRequestsPerSecond must be >= 0")
	}
	if c.Risk.WatchSignatureList && c.Risk.SignatureListPath == "" {
		return errors.New("Risk WatchSignatureList requires SignatureListPath")
	}

	switch c.CSRF.Mode {
	case CSRFModeSigned, CSRFModeDoubleSubmit:
	default:
		return errors.New("CSRF Mode must be 'signed' or 'double-submit'")
	}
	if c.CSRF.MaxAge <= 0 {
		return errors.New("CSRF MaxAge must be > 0")
	}
	if c.CSRF.ClockSkew < 0 {
		return errors.New("CSRF ClockSkew must be >= 0")
	}
	if strings.TrimSpace(c.CSRF.CookieName) == "" || strings.TrimSpace(c.CSRF.HeaderName) == "" {
		return errors.New("CSRF CookieName and HeaderName are required")
	}
	for _, p := range c.CSRF.ExemptPaths {
		if !strings.HasPrefix(p, "/") {
			return errors.New("CSRF ExemptPaths must start with '/'")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if len(c.Security.Secret) > 0 && len(c.Security.Secret) < MinSecretBytes {
		return errors.New("Security Secret must be at least 32 bytes")
	}

	if strings.TrimSpace(c.Backend.KeyPrefix) == "" {
		return errors.New("Backend KeyPrefix is required")
	}

	return nil
}
