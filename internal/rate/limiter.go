package rate

import (
	"math"
	"time"

	"github.com/MrEthical07/goRisk/internal/ledger"
)

const (
	ReasonTooManyFailures    = "too many failed attempts"
	ReasonMultipleFailures   = "multiple failed attempts"
	ReasonBackoff            = "too many failed attempts, backing off"
	ReasonSuspiciousActivity = "suspicious activity detected"
)

// Config holds backoff policy thresholds.
type Config struct {
	FailureWindow        time.Duration
	HardBlockFailures    int
	HardBlockDuration    time.Duration
	SoftBlockFailures    int
	SoftBlockDuration    time.Duration
	BackoffStartFailures int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	SuspicionBlockScore  int
}

// DefaultConfig returns the stock policy.
func DefaultConfig() Config {
	return Config{
		FailureWindow:        15 * time.Minute,
		HardBlockFailures:    10,
		HardBlockDuration:    time.Hour,
		SoftBlockFailures:    5,
		SoftBlockDuration:    15 * time.Minute,
		BackoffStartFailures: 3,
		BackoffBase:          5 * time.Minute,
		BackoffCap:           15 * time.Minute,
		SuspicionBlockScore:  80,
	}
}

// Decision is the outcome of [Limiter.Evaluate].
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
	Failures   int
}

// RetryAfterSeconds rounds the retry-after up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Limiter evaluates the backoff policy.
type Limiter struct {
	config Config
}

// New creates a [Limiter]. Zero fields fall back to [DefaultConfig].
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = def.FailureWindow
	}
	if cfg.HardBlockFailures <= 0 {
		cfg.HardBlockFailures = def.HardBlockFailures
	}
	if cfg.HardBlockDuration <= 0 {
		cfg.HardBlockDuration = def.HardBlockDuration
	}
	if cfg.SoftBlockFailures <= 0 {
		cfg.SoftBlockFailures = def.SoftBlockFailures
	}
	if cfg.SoftBlockDuration <= 0 {
		cfg.SoftBlockDuration = def.SoftBlockDuration
	}
	if cfg.BackoffStartFailures <= 0 {
		cfg.BackoffStartFailures = def.BackoffStartFailures
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.SuspicionBlockScore <= 0 {
		cfg.SuspicionBlockScore = def.SuspicionBlockScore
	}
	return &Limiter{config: cfg}
}

// Evaluate decides whether the identity owning attempts may try to authenticate now.
// attempts may contain entries outside the failure window; they are ignored.
func (l *Limiter) Evaluate(attempts []ledger.Attempt, suspicion int, now time.Time) Decision {
	summary := ledger.Summarize(attempts, now.Add(-l.config.FailureWindow))
	failures := summary.Failures

	switch {
	case failures >= l.config.HardBlockFailures:
		return Decision{Reason: ReasonTooManyFailures, RetryAfter: l.config.HardBlockDuration, Failures: failures}
	case failures >= l.config.SoftBlockFailures:
		return Decision{Reason: ReasonMultipleFailures, RetryAfter: l.config.SoftBlockDuration, Failures: failures}
	case failures >= l.config.BackoffStartFailures:
		delay := l.Backoff(failures)
		elapsed := now.Sub(summary.LastFailure)
		if elapsed < delay {
			return Decision{Reason: ReasonBackoff, RetryAfter: delay - elapsed, Failures: failures}
		}
	}

	if suspicion > l.config.SuspicionBlockScore {
		return Decision{Reason: ReasonSuspiciousActivity, RetryAfter: l.config.HardBlockDuration, Failures: failures}
	}

	return Decision{Allowed: true, Failures: failures}
}

// Backoff returns the wait imposed after the given number of failures:
// BackoffBase * 2^(failures-BackoffStartFailures), capped at BackoffCap.
func (l *Limiter) Backoff(failures int) time.Duration {
	steps := failures - l.config.BackoffStartFailures
	if steps < 0 {
		return 0
	}
	delay := l.config.BackoffBase
	for i := 0; i < steps; i++ {
		delay *= 2
		if delay >= l.config.BackoffCap {
			return l.config.BackoffCap
		}
	}
	if delay > l.config.BackoffCap {
		return l.config.BackoffCap
	}
	return delay
}
