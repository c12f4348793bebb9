package goRisk

import (
	"context"
	"strconv"
	"strings"

	"github.com/MrEthical07/goRisk/internal"
	"github.com/MrEthical07/goRisk/internal/ledger"
)

// RecordAuthAttempt appends an attempt to the identity's ledger and then runs
// the suspicious-activity rules for the identity's network address. userID and
// reason are optional.
func (e *Engine) RecordAuthAttempt(ctx context.Context, id Identity, success bool, userID, reason string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	a, err := e.ledger.Record(ctx, ledger.Attempt{
		Key:             e.identityKey(id),
		Address:         id.NetworkAddress,
		DeviceSignature: internal.TruncateSignature(id.DeviceSignature, e.config.Attempts.SignaturePrefixLen),
		Success:         success,
		UserID:          userID,
		Reason:          reason,
	})
	if err != nil {
		return e.backendErr("record attempt", err)
	}

	if success {
		e.metricInc(MetricAuthAttemptSuccess)
		e.emitAudit(ctx, auditEventAuthAttemptSuccess, true, userID, "", id.NetworkAddress, nil, nil)
	} else {
		e.metricInc(MetricAuthAttemptFailure)
		e.emitAudit(ctx, auditEventAuthAttemptFailure, false, userID, "", id.NetworkAddress, nil, func() map[string]string {
			if reason == "" {
				return nil
			}
			return map[string]string{"reason": reason}
		})
	}

	obs, err := e.detector.ObserveAttempt(ctx, a)
	if err != nil {
		return e.backendErr("observe attempt", err)
	}
	if len(obs.Fired) > 0 {
		e.metricInc(MetricSuspicionRaised)
		e.emitAudit(ctx, auditEventSuspicionRaised, false, userID, "", id.NetworkAddress, nil, func() map[string]string {
			return map[string]string{
				"rules":  strings.Join(obs.Fired, ","),
				"points": strconv.Itoa(obs.Points),
				"score":  strconv.Itoa(obs.Record.Score),
			}
		})
	}
	return nil
}

// IsAuthAllowed decides whether the identity may attempt to authenticate now.
// A denial carries the reason and how many seconds to wait; the error return
// is reserved for backend failures.
func (e *Engine) IsAuthAllowed(ctx context.Context, id Identity) (AuthDecision, error) {
	if e == nil {
		return AuthDecision{}, ErrEngineNotReady
	}

	attempts, err := e.ledger.Recent(ctx, e.identityKey(id))
	if err != nil {
		return AuthDecision{}, e.backendErr("load attempts", err)
	}
	score, err := e.detector.Score(ctx, id.NetworkAddress)
	if err != nil {
		return AuthDecision{}, e.backendErr("load suspicion", err)
	}

	d := e.limiter.Evaluate(attempts, score, e.now())
	if d.Allowed {
		e.metricInc(MetricAuthAllowed)
		return AuthDecision{Allowed: true}, nil
	}

	decision := AuthDecision{
		Allowed:           false,
		Reason:            d.Reason,
		RetryAfterSeconds: d.RetryAfterSeconds(),
		Code:              CodeRateLimited,
	}
	e.metricInc(MetricAuthRateLimited)
	e.emitAudit(ctx, auditEventAuthRateLimited, false, "", "", id.NetworkAddress, ErrRateLimited, func() map[string]string {
		return map[string]string{
			"reason":      decision.Reason,
			"retry_after": strconv.Itoa(decision.RetryAfterSeconds),
			"failures":    strconv.Itoa(d.Failures),
		}
	})
	return decision, nil
}

// SuspicionScore returns the suspicion record of address. An address with
// no live record reports a zero score.
func (e *Engine) SuspicionScore(ctx context.Context, address string) (SuspicionRecord, error) {
	if e == nil {
		return SuspicionRecord{}, ErrEngineNotReady
	}
	rec, ok, err := e.detector.Lookup(ctx, address)
	if err != nil {
		return SuspicionRecord{}, e.backendErr("load suspicion", err)
	}
	if !ok {
		return SuspicionRecord{Address: address}, nil
	}
	return suspicionRecord(rec), nil
}

// ClearSuspicion resets the suspicion of address.
func (e *Engine) ClearSuspicion(ctx context.Context, address string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.detector.Clear(ctx, address); err != nil {
		return e.backendErr("clear suspicion", err)
	}
	e.emitAudit(ctx, auditEventSuspicionCleared, true, "", "", address, nil, nil)
	return nil
}
