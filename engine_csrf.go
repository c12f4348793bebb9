package goRisk

import (
	"context"

	"github.com/MrEthical07/goRisk/csrf"
)

// GenerateCSRFToken issues a signed nonce:timestamp:signature token. It does
// so in every mode, so its output always passes [Engine.ValidateCSRFToken].
func (e *Engine) GenerateCSRFToken() (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	token, err := e.csrfSigned.Generate()
	if err != nil {
		return "", err
	}
	e.metricInc(MetricCSRFIssued)
	return token, nil
}

// IssueCSRFToken returns the token a client should hold for the configured
// mode: a signed token, or a random double-submit cookie value checked with
// [Engine.ValidateCSRFPair].
func (e *Engine) IssueCSRFToken() (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.config.CSRF.Mode != CSRFModeDoubleSubmit {
		return e.GenerateCSRFToken()
	}
	token, err := e.csrfDouble.NewToken()
	if err != nil {
		return "", err
	}
	e.metricInc(MetricCSRFIssued)
	return token, nil
}

// ValidateCSRFToken verifies a signed token with the engine secret.
func (e *Engine) ValidateCSRFToken(token string) bool {
	if e == nil {
		return false
	}
	return e.csrfSigned.Validate(token)
}

// ValidateCSRFPair compares a double-submit cookie value with the copy the
// client submitted.
func (e *Engine) ValidateCSRFPair(cookieValue, submitted string) bool {
	if e == nil {
		return false
	}
	return e.csrfDouble.Validate(cookieValue, submitted)
}

// CheckCSRF applies the guard policy to a request carrying a signed token.
func (e *Engine) CheckCSRF(ctx context.Context, method, path, token string) CSRFDecision {
	if e == nil {
		return CSRFDecision{Code: csrf.CodeInvalidToken, Message: csrf.MessageInvalidToken}
	}
	return e.recordCSRF(ctx, method, path, e.csrfGuard.Check(method, path, token))
}

// CheckCSRFDoubleSubmit applies the guard policy to a double-submit request.
func (e *Engine) CheckCSRFDoubleSubmit(ctx context.Context, method, path, cookieValue, submitted string) CSRFDecision {
	if e == nil {
		return CSRFDecision{Code: csrf.CodeInvalidToken, Message: csrf.MessageInvalidToken}
	}
	present := cookieValue != "" && submitted != ""
	valid := present && e.csrfDouble.Validate(cookieValue, submitted)
	// A safe request only needs a fresh cookie when it has none.
	if csrf.IsSafeMethod(method) {
		present = cookieValue != ""
		valid = present
	}
	return e.recordCSRF(ctx, method, path, e.csrfGuard.Decide(method, path, present, valid))
}

func (e *Engine) recordCSRF(ctx context.Context, method, path string, d CSRFDecision) CSRFDecision {
	if !d.Allowed {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", "", ErrInvalidCSRFToken, func() map[string]string {
			return map[string]string{"method": method, "path": path}
		})
	}
	return d
}
