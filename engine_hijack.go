package goRisk

import (
	"context"
	"strconv"
	"strings"

	"github.com/MrEthical07/goRisk/risk"
	"github.com/MrEthical07/goRisk/session"
	"go.uber.org/zap"
)

// evaluateHijack compares rc with the context recorded at the session's last
// successful validation. The churn detector sees every request, including
// those that end up rejected.
func (e *Engine) evaluateHijack(ctx context.Context, s *session.Session, rc RequestContext) risk.HijackVerdict {
	signals := risk.HijackSignals{
		AddressChanged: rc.NetworkAddress != "" && rc.NetworkAddress != s.NetworkAddress,
		Similarity:     e.similarity.Similarity(s.DeviceSignature, rc.DeviceSignature),
	}
	if e.churn != nil {
		signals.AddressChurn = e.churn.AddressChurn(ctx, s.SessionID, rc.NetworkAddress)
	}
	return e.hijack.EvaluateHijack(signals)
}

func (e *Engine) rejectHijack(ctx context.Context, s *session.Session, rc RequestContext, v risk.HijackVerdict) (SessionValidation, error) {
	if _, err := e.sessions.Delete(ctx, s.SessionID); err != nil {
		return SessionValidation{}, e.backendErr("delete session", err)
	}
	e.forgetChurn(s.SessionID)

	if _, err := e.detector.ObserveHijack(ctx, rc.NetworkAddress); err != nil {
		e.logger.Warn("suspicion update failed", zap.String("rule", "session_hijack"), zap.Error(err))
	}

	e.metricInc(MetricSessionHijackDetected)
	e.logger.Warn("session hijack suspected",
		zap.String("user_id", s.UserID),
		zap.String("network_address", rc.NetworkAddress),
		zap.Int("confidence", v.Confidence),
		zap.Strings("signals", v.Reasons),
	)
	e.emitAudit(ctx, auditEventSessionHijack, false, s.UserID, s.SessionID, rc.NetworkAddress, ErrHijackSuspected, func() map[string]string {
		return map[string]string{
			"confidence":       strconv.Itoa(v.Confidence),
			"signals":          strings.Join(v.Reasons, ","),
			"previous_address": s.NetworkAddress,
		}
	})

	out := invalidSession(CodeSessionHijackSuspected, ReasonHijackSuspected)
	out.HijackConfidence = v.Confidence
	return out, nil
}
