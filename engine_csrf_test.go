package goRisk

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)

	token, err := engine.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}
	if parts := strings.Split(token, ":"); len(parts) != 3 {
		t.Fatalf("expected nonce:timestamp:signature, got %q", token)
	}
	issued, err := engine.IssueCSRFToken()
	if err != nil || !engine.ValidateCSRFToken(issued) {
		t.Fatalf("expected signed-mode issue to return a signed token, err=%v", err)
	}
	if !engine.ValidateCSRFToken(token) {
		t.Fatalf("expected fresh token to validate")
	}
}

func TestCSRFTokenTamperedSignature(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newFakeClock(), nil)
	token, err := engine.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}
	sigStart := strings.LastIndex(token, ":") + 1

	for i := sigStart; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if engine.ValidateCSRFToken(string(b)) {
			t.Fatalf("expected flipped signature character at %d to fail", i)
		}
	}
}

func TestCSRFTokenExpires(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)
	token, err := engine.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}

	clock.Advance(23 * time.Hour)
	if !engine.ValidateCSRFToken(token) {
		t.Fatalf("expected token inside max age to validate")
	}
	clock.Advance(time.Hour + time.Second)
	if engine.ValidateCSRFToken(token) {
		t.Fatalf("expected token older than max age to fail")
	}
}

func TestCSRFTokenFromAnotherSecretFails(t *testing.T) {
	a := buildTestEngine(t, testConfig(), newFakeClock(), nil)
	cfg := testConfig()
	cfg.Security.Secret = []byte("ffffffffffffffffffffffffffffffff")
	b := buildTestEngine(t, cfg, newFakeClock(), nil)

	token, err := a.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}
	if b.ValidateCSRFToken(token) {
		t.Fatalf("expected token from another secret to fail")
	}
}

func TestCheckCSRFSignedMode(t *testing.T) {
	cfg := testConfig()
	cfg.CSRF.ExemptPaths = []string{"/webhooks/*", "/health"}
	engine := buildTestEngine(t, cfg, newFakeClock(), nil)
	ctx := context.Background()

	token, err := engine.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}

	if d := engine.CheckCSRF(ctx, http.MethodGet, "/account", ""); !d.Allowed || !d.IssueToken {
		t.Fatalf("expected safe request without token to pass and get a token, got %+v", d)
	}
	if d := engine.CheckCSRF(ctx, http.MethodPost, "/account", token); !d.Allowed {
		t.Fatalf("expected valid token to pass, got %+v", d)
	}
	if d := engine.CheckCSRF(ctx, http.MethodPost, "/webhooks/stripe", ""); !d.Allowed || !d.Exempt {
		t.Fatalf("expected exempt prefix to pass, got %+v", d)
	}

	d := engine.CheckCSRF(ctx, http.MethodDelete, "/account", "forged:1:sig")
	if d.Allowed || d.Code != "CSRF_INVALID_TOKEN" || d.Message != "CSRF token validation failed" {
		t.Fatalf("expected rejection, got %+v", d)
	}
	if snap := engine.MetricsSnapshot(); snap.Counters[MetricCSRFRejected] != 1 {
		t.Fatalf("expected one rejection counted, got %d", snap.Counters[MetricCSRFRejected])
	}
}

func TestCSRFDoubleSubmitMode(t *testing.T) {
	cfg := testConfig()
	cfg.CSRF.Mode = CSRFModeDoubleSubmit
	engine := buildTestEngine(t, cfg, newFakeClock(), nil)
	ctx := context.Background()

	signed, err := engine.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken: %v", err)
	}
	if !engine.ValidateCSRFToken(signed) {
		t.Fatalf("expected generated token to validate in double-submit mode too")
	}

	token, err := engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}
	if strings.Contains(token, ":") {
		t.Fatalf("expected a bare random value in double-submit mode, got %q", token)
	}

	if !engine.ValidateCSRFPair(token, token) {
		t.Fatalf("expected equal values to validate")
	}
	for _, other := range []string{token + "x", token[:len(token)-1], strings.ToUpper(token), strings.ToLower(token), ""} {
		if other == token {
			continue
		}
		if engine.ValidateCSRFPair(token, other) {
			t.Fatalf("expected %q to fail against %q", other, token)
		}
	}

	if d := engine.CheckCSRFDoubleSubmit(ctx, http.MethodPost, "/transfer", token, token); !d.Allowed {
		t.Fatalf("expected matching pair to pass, got %+v", d)
	}
	if d := engine.CheckCSRFDoubleSubmit(ctx, http.MethodPost, "/transfer", token, ""); d.Allowed {
		t.Fatalf("expected missing header to fail")
	}
	if d := engine.CheckCSRFDoubleSubmit(ctx, http.MethodGet, "/transfer", token, ""); !d.Allowed || d.IssueToken {
		t.Fatalf("expected safe request with cookie to pass without reissue, got %+v", d)
	}
	if d := engine.CheckCSRFDoubleSubmit(ctx, http.MethodGet, "/transfer", "", ""); !d.IssueToken {
		t.Fatalf("expected safe request without cookie to get a token")
	}
}
