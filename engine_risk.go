package goRisk

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goRisk/risk"
)

// AssessRisk scores the request described by rc. userID may be empty for an
// anonymous request, in which case user-specific factors are skipped.
func (e *Engine) AssessRisk(ctx context.Context, rc RequestContext, userID string) (RiskAssessment, error) {
	if e == nil {
		return RiskAssessment{}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeLatency(MetricAssessLatency, start)

	score, err := e.detector.Score(ctx, rc.NetworkAddress)
	if err != nil {
		return RiskAssessment{}, e.backendErr("load suspicion", err)
	}

	now := e.now()
	signals := risk.Signals{
		SuspicionScore:  score,
		LocalHour:       now.In(e.config.Risk.Location).Hour(),
		UserKnown:       userID != "",
		SessionCap:      e.config.Session.MaxConcurrent,
		AutomatedClient: e.signatures.Matches(rc.DeviceSignature),
	}
	if userID != "" {
		live, err := e.liveSessions(ctx, userID, now)
		if err != nil {
			return RiskAssessment{}, err
		}
		signals.UserSessionCount = len(live)
		if e.geo != nil {
			signals.GeoAnomaly = e.geo.GeoAnomaly(ctx, userID, rc.NetworkAddress)
		}
	}
	if e.rapid != nil {
		signals.RapidRequests = e.rapid.RapidRequests(ctx, rc.NetworkAddress)
	}

	a := e.policy.Assess(signals)

	e.metricInc(MetricRiskAssessed)
	if a.RequireMFA {
		e.metricInc(MetricRiskMFARequired)
	}
	if a.BlockAccess {
		e.metricInc(MetricRiskBlocked)
		e.emitAudit(ctx, auditEventRiskBlocked, false, userID, "", rc.NetworkAddress, nil, func() map[string]string {
			factors := make([]string, len(a.Factors))
			for i, f := range a.Factors {
				factors[i] = string(f)
			}
			return map[string]string{
				"score":   strconv.Itoa(a.Score),
				"factors": strings.Join(factors, ","),
			}
		})
	}
	return riskAssessment(a), nil
}
