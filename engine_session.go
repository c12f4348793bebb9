package goRisk

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goRisk/internal"
	"github.com/MrEthical07/goRisk/risk"
	"github.com/MrEthical07/goRisk/session"
	"go.uber.org/zap"
)

// CreateSession opens a session for userID bound to rc. When the user already
// holds the maximum number of concurrent sessions, the least recently active
// ones are evicted so that the new session makes exactly the cap, and the
// address's suspicion is raised.
func (e *Engine) CreateSession(ctx context.Context, userID string, rc RequestContext) (*SessionMetadata, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	id, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	sessionID := id.String()

	score, err := e.detector.Score(ctx, rc.NetworkAddress)
	if err != nil {
		return nil, e.backendErr("load suspicion", err)
	}

	unlock := e.lockUser(userID)
	defer unlock()

	now := e.now()
	live, err := e.liveSessions(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if limit := e.config.Session.MaxConcurrent; limit > 0 && len(live) >= limit {
		// live is most recently active first.
		evict := live[limit-1:]
		for _, s := range evict {
			if _, err := e.sessions.Delete(ctx, s.SessionID); err != nil {
				return nil, e.backendErr("evict session", err)
			}
			e.forgetChurn(s.SessionID)
			e.metricInc(MetricSessionEvicted)
			e.emitAudit(ctx, auditEventSessionEvicted, true, userID, s.SessionID, rc.NetworkAddress, nil, nil)
		}
		if _, err := e.detector.ObserveConcurrentBreach(ctx, rc.NetworkAddress); err != nil {
			e.logger.Warn("suspicion update failed", zap.String("rule", "concurrent_sessions"), zap.Error(err))
		}
		e.logger.Info("concurrent session cap reached",
			zap.String("user_id", userID),
			zap.Int("evicted", len(evict)),
		)
	}

	sess := &session.Session{
		SchemaVersion:          session.CurrentSchemaVersion,
		SessionID:              sessionID,
		UserID:                 userID,
		CreatedAt:              now,
		LastActivity:           now,
		NetworkAddress:         rc.NetworkAddress,
		DeviceSignature:        rc.DeviceSignature,
		InitialNetworkAddress:  rc.NetworkAddress,
		InitialDeviceSignature: rc.DeviceSignature,
		Location:               e.locate(rc.NetworkAddress),
	}
	sess.RiskScore = e.policy.SessionScore(risk.SessionSignals{SuspicionScore: score})

	if err := e.sessions.Save(ctx, sess, e.config.Session.MaxAge); err != nil {
		return nil, e.backendErr("save session", err)
	}
	if e.churn != nil {
		e.churn.AddressChurn(ctx, sessionID, rc.NetworkAddress)
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, userID, sessionID, rc.NetworkAddress, nil, func() map[string]string {
		return map[string]string{"risk_score": strconv.Itoa(sess.RiskScore)}
	})

	meta := sessionMetadata(sess)
	return &meta, nil
}

// ValidateSession checks sessionID against the current request. Expired, idle
// and hijacked sessions are deleted and reported as invalid; a valid session
// has its activity time, current address, signature and risk score updated.
func (e *Engine) ValidateSession(ctx context.Context, sessionID string, rc RequestContext) (SessionValidation, error) {
	if e == nil {
		return SessionValidation{}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeLatency(MetricValidateLatency, start)

	sess, unlock, err := e.lockSession(ctx, sessionID)
	if err != nil {
		return SessionValidation{}, err
	}
	if sess == nil {
		e.metricInc(MetricSessionNotFound)
		return invalidSession(CodeSessionNotFound, ReasonSessionNotFound), nil
	}
	defer unlock()

	now := e.now()
	if code, reason := e.liveness(sess, now); code != "" {
		if _, err := e.sessions.Delete(ctx, sess.SessionID); err != nil {
			return SessionValidation{}, e.backendErr("delete session", err)
		}
		e.forgetChurn(sess.SessionID)
		e.reportEnded(ctx, sess, code, rc.NetworkAddress)
		return invalidSession(code, reason), nil
	}

	verdict := e.evaluateHijack(ctx, sess, rc)
	if verdict.Suspected {
		return e.rejectHijack(ctx, sess, rc, verdict)
	}

	score, err := e.detector.Score(ctx, rc.NetworkAddress)
	if err != nil {
		return SessionValidation{}, e.backendErr("load suspicion", err)
	}

	age := sess.Age(now)
	sess.LastActivity = now
	if rc.NetworkAddress != "" {
		sess.NetworkAddress = rc.NetworkAddress
	}
	if rc.DeviceSignature != "" {
		sess.DeviceSignature = rc.DeviceSignature
	}
	sess.RiskScore = e.policy.SessionScore(risk.SessionSignals{
		Age:              age,
		AddressChanged:   sess.NetworkAddress != sess.InitialNetworkAddress,
		SignatureChanged: internal.NormalizeSignature(sess.DeviceSignature) != internal.NormalizeSignature(sess.InitialDeviceSignature),
		MFAVerified:      sess.MFAVerified,
		SuspicionScore:   score,
	})

	updated, err := e.sessions.Update(ctx, sess)
	if err != nil {
		return SessionValidation{}, e.backendErr("save session", err)
	}
	if !updated {
		e.forgetChurn(sess.SessionID)
		e.metricInc(MetricSessionNotFound)
		return invalidSession(CodeSessionNotFound, ReasonSessionNotFound), nil
	}

	requireReauth := sess.RiskScore > e.config.Session.ReauthRiskScore ||
		(age > e.config.Session.RenewThreshold && !sess.MFAVerified)

	e.metricInc(MetricSessionValidated)
	if requireReauth {
		e.metricInc(MetricSessionReauthRequired)
	}

	meta := sessionMetadata(sess)
	return SessionValidation{
		Valid:            true,
		Session:          &meta,
		RequireReauth:    requireReauth,
		HijackConfidence: verdict.Confidence,
	}, nil
}

// GetSession returns a live session without touching it. The boolean is false
// for unknown, expired and idle sessions.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (SessionMetadata, bool, error) {
	if e == nil {
		return SessionMetadata{}, false, ErrEngineNotReady
	}
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil || sess == nil {
		return SessionMetadata{}, false, err
	}
	if code, _ := e.liveness(sess, e.now()); code != "" {
		return SessionMetadata{}, false, nil
	}
	return sessionMetadata(sess), true, nil
}

// MarkMFAVerified records that the session's owner completed a second factor.
// It reports false when the session is not live.
func (e *Engine) MarkMFAVerified(ctx context.Context, sessionID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	sess, unlock, err := e.lockSession(ctx, sessionID)
	if err != nil || sess == nil {
		return false, err
	}
	defer unlock()

	if code, _ := e.liveness(sess, e.now()); code != "" {
		return false, nil
	}
	if sess.MFAVerified {
		return true, nil
	}

	sess.MFAVerified = true
	sess.RiskScore = max(sess.RiskScore-e.policy.SessionWeights.MFANotVerified, 0)
	updated, err := e.sessions.Update(ctx, sess)
	if err != nil {
		return false, e.backendErr("save session", err)
	}
	if !updated {
		return false, nil
	}
	e.emitAudit(ctx, auditEventSessionMFAVerified, true, sess.UserID, sess.SessionID, "", nil, nil)
	return true, nil
}

// TerminateSession deletes a session. It reports whether one was removed.
func (e *Engine) TerminateSession(ctx context.Context, sessionID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return false, nil
	}
	removed, err := e.sessions.Delete(ctx, sessionID)
	if err != nil {
		return false, e.backendErr("delete session", err)
	}
	e.forgetChurn(sessionID)
	if removed {
		e.metricInc(MetricSessionTerminated)
		e.emitAudit(ctx, auditEventSessionTerminated, true, "", sessionID, "", nil, nil)
	}
	return removed, nil
}

// TerminateAllSessions deletes every session of userID and returns how many
// were removed.
func (e *Engine) TerminateAllSessions(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, nil
	}

	unlock := e.lockUser(userID)
	defer unlock()

	sessions, err := e.sessions.ListForUser(ctx, userID)
	if err != nil {
		return 0, e.backendErr("list sessions", err)
	}
	removed, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, e.backendErr("delete sessions", err)
	}
	for _, s := range sessions {
		e.forgetChurn(s.SessionID)
	}

	e.metricInc(MetricSessionTerminateAll)
	e.emitAudit(ctx, auditEventSessionTerminateAll, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{"removed": strconv.Itoa(removed)}
	})
	return removed, nil
}

// GetUserSessions lists the live sessions of userID, most recently active first.
func (e *Engine) GetUserSessions(ctx context.Context, userID string) ([]SessionMetadata, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	live, err := e.liveSessions(ctx, userID, e.now())
	if err != nil {
		return nil, err
	}
	out := make([]SessionMetadata, len(live))
	for i, s := range live {
		out[i] = sessionMetadata(s)
	}
	return out, nil
}

// loadSession returns nil, nil for malformed and unknown ids.
func (e *Engine) loadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, nil
	}
	sess, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, e.backendErr("load session", err)
	}
	return sess, nil
}

// lockSession loads sessionID and takes its owner's lock, then reloads the
// record so the caller works on the state current under the lock. On a nil
// session no lock is held.
func (e *Engine) lockSession(ctx context.Context, sessionID string) (*session.Session, func(), error) {
	sess, err := e.loadSession(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	unlock := e.lockUser(sess.UserID)
	sess, err = e.loadSession(ctx, sessionID)
	if err != nil || sess == nil {
		unlock()
		return nil, nil, err
	}
	return sess, unlock, nil
}

// liveSessions returns the user's sessions that are neither expired nor idle,
// most recently active first. Dead sessions found on the way are deleted.
func (e *Engine) liveSessions(ctx context.Context, userID string, now time.Time) ([]*session.Session, error) {
	if userID == "" {
		return []*session.Session{}, nil
	}
	all, err := e.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, e.backendErr("list sessions", err)
	}

	live := all[:0]
	for _, s := range all {
		if code, _ := e.liveness(s, now); code != "" {
			if _, err := e.sessions.Delete(ctx, s.SessionID); err != nil {
				return nil, e.backendErr("delete session", err)
			}
			e.forgetChurn(s.SessionID)
			continue
		}
		live = append(live, s)
	}
	session.SortByActivity(live)
	return live, nil
}

// liveness returns the code and reason that make s invalid at now, or empty
// strings for a live session.
func (e *Engine) liveness(s *session.Session, now time.Time) (string, string) {
	if s.Age(now) > e.config.Session.MaxAge {
		return CodeSessionExpired, ReasonSessionExpired
	}
	if s.Idle(now) > e.config.Session.IdleTimeout {
		return CodeSessionTimedOut, ReasonSessionTimedOut
	}
	return "", ""
}

func (e *Engine) reportEnded(ctx context.Context, s *session.Session, code, address string) {
	switch code {
	case CodeSessionExpired:
		e.metricInc(MetricSessionExpired)
		e.emitAudit(ctx, auditEventSessionExpired, false, s.UserID, s.SessionID, address, ErrSessionExpired, nil)
	case CodeSessionTimedOut:
		e.metricInc(MetricSessionTimedOut)
		e.emitAudit(ctx, auditEventSessionTimedOut, false, s.UserID, s.SessionID, address, ErrSessionTimedOut, nil)
	}
}

func (e *Engine) forgetChurn(sessionID string) {
	if f, ok := e.churn.(interface{ Forget(string) }); ok {
		f.Forget(sessionID)
	}
}

func (e *Engine) locate(address string) string {
	if e.locator == nil || address == "" {
		return ""
	}
	loc, err := e.locator.Locate(address)
	if err != nil {
		return ""
	}
	switch {
	case loc.City != "" && loc.CountryCode != "":
		return loc.City + ", " + loc.CountryCode
	default:
		return loc.CountryCode
	}
}
