package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	goRisk "github.com/MrEthical07/goRisk"
)

func TestLoadConfigAppliesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskd.toml")
	data := `
[session]
max_age = "8h"
idle_timeout = "10m"
max_concurrent = 2

[rate_limit]
suspicion_block_score = 60

[hijack]
churn_enabled = true
churn_addresses = 4

[csrf]
mode = "double-submit"
exempt_paths = ["/webhooks/*"]

[metrics]
enabled = true
latencies = true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RISKD_ADDR", ":9999")

	cfg, err := loadConfig(path, false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected env address, got %q", cfg.HTTPAddr)
	}
	e := cfg.Engine
	if e.Session.MaxAge != 8*time.Hour || e.Session.IdleTimeout != 10*time.Minute || e.Session.MaxConcurrent != 2 {
		t.Fatalf("unexpected session config %+v", e.Session)
	}
	if e.RateLimit.SuspicionBlockScore != 60 || e.CSRF.Mode != goRisk.CSRFModeDoubleSubmit {
		t.Fatalf("unexpected overrides: %+v %+v", e.RateLimit, e.CSRF)
	}
	if !e.Hijack.ChurnEnabled || e.Hijack.ChurnAddresses != 4 {
		t.Fatalf("unexpected hijack config %+v", e.Hijack)
	}
	if e.Session.ReauthRiskScore != goRisk.DefaultConfig().Session.ReauthRiskScore {
		t.Fatalf("expected unset values to keep defaults")
	}
	if !e.Metrics.EnableLatencyHistograms || e.Audit.Enabled {
		t.Fatalf("unexpected audit/metrics flags: %+v %+v", e.Audit, e.Metrics)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskd.toml")
	if err := os.WriteFile(path, []byte("[csrf]\nmode = \"cookie\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path, false); err == nil {
		t.Fatalf("expected invalid csrf mode to fail")
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := goRisk.DefaultConfig()
	cfg.Security.Secret = []byte("0123456789abcdef0123456789abcdef")
	engine, err := goRisk.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return newRouter(engine, zap.NewNop(), nil, false)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestSessionRoundTripOverHTTP(t *testing.T) {
	h := newTestServer(t)
	client := map[string]any{"user_id": "u-1", "network_address": "192.0.2.1", "device_signature": "Mozilla/5.0"}

	rec := do(t, h, http.MethodPost, "/v1/sessions", client)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var meta goRisk.SessionMetadata
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = do(t, h, http.MethodPost, "/v1/sessions/"+meta.SessionID+"/validate", client)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/v1/users/u-1/sessions", nil)
	var list []goRisk.SessionMetadata
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("expected one session, got %v (%v)", list, err)
	}

	rec = do(t, h, http.MethodDelete, "/v1/users/u-1/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("terminate all: got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/sessions/"+meta.SessionID+"/validate", client)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected terminated session to be invalid, got %d", rec.Code)
	}
}

func TestCreateSessionRequiresUser(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/v1/sessions", map[string]string{"network_address": "192.0.2.1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthAttemptsOverHTTP(t *testing.T) {
	h := newTestServer(t)
	attempt := map[string]any{"network_address": "198.51.100.3", "device_signature": "curl/8", "success": false}
	for i := 0; i < 10; i++ {
		if rec := do(t, h, http.MethodPost, "/v1/auth/attempts", attempt); rec.Code != http.StatusNoContent {
			t.Fatalf("record: got %d", rec.Code)
		}
	}

	rec := do(t, h, http.MethodPost, "/v1/auth/check", attempt)
	var d goRisk.AuthDecision
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Allowed || d.Code != goRisk.CodeRateLimited {
		t.Fatalf("expected rate limit, got %+v", d)
	}

	rec = do(t, h, http.MethodGet, "/v1/suspicion/198.51.100.3", nil)
	var s goRisk.SuspicionRecord
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil || s.Score == 0 {
		t.Fatalf("expected suspicion on the address, got %+v (%v)", s, err)
	}
}

func TestCSRFOverHTTP(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/v1/csrf", nil)
	var tok tokenBody
	if err := json.NewDecoder(rec.Body).Decode(&tok); err != nil || tok.Token == "" {
		t.Fatalf("expected token, got %v", err)
	}

	rec = do(t, h, http.MethodPost, "/v1/csrf/validate", tok)
	var out map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil || !out["valid"] {
		t.Fatalf("expected token to validate, got %v (%v)", out, err)
	}
}
