package csrf

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	svc, err := NewTokenService(testSecret, DefaultConfig(), clock.Now)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, clock
}

func TestGenerateThenValidate(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := svc.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if parts := strings.Split(token, ":"); len(parts) != 3 || len(parts[0]) != 43 {
		t.Fatalf("unexpected token layout: %q", token)
	}
	if !svc.Validate(token) {
		t.Fatalf("fresh token must validate")
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := svc.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sigStart := strings.LastIndex(token, ":") + 1

	for i := sigStart; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if err := svc.Check(string(b)); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("flipping signature byte %d: expected ErrBadSignature, got %v", i, err)
		}
	}
}

func TestValidateRejectsTamperedPayload(t *testing.T) {
	svc, _ := newTestService(t)
	token, _ := svc.Generate()
	parts := strings.Split(token, ":")

	otherNonce := strings.Repeat("A", len(parts[0]))
	if svc.Validate(otherNonce + ":" + parts[1] + ":" + parts[2]) {
		t.Fatalf("swapped nonce must fail")
	}
	if svc.Validate(parts[0] + ":1:" + parts[2]) {
		t.Fatalf("swapped timestamp must fail")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc, clock := newTestService(t)
	token, _ := svc.Generate()

	clock.Advance(24 * time.Hour)
	if !svc.Validate(token) {
		t.Fatalf("token exactly at max age must still validate")
	}
	clock.Advance(time.Second)
	if err := svc.Check(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateRejectsFutureToken(t *testing.T) {
	svc, clock := newTestService(t)
	token, _ := svc.Generate()

	clock.Advance(-30 * time.Second)
	if !svc.Validate(token) {
		t.Fatalf("token within clock skew must validate")
	}
	clock.Advance(-time.Minute)
	if err := svc.Check(token); !errors.Is(err, ErrTokenFromFuture) {
		t.Fatalf("expected ErrTokenFromFuture, got %v", err)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	svc, _ := newTestService(t)
	for _, token := range []string{"", "a", "a:b", "a:b:c:d", "a:notanumber:c", ":1:c", "a:1:"} {
		if err := svc.Check(token); !errors.Is(err, ErrMalformedToken) && !errors.Is(err, ErrBadSignature) {
			t.Fatalf("%q: expected rejection, got %v", token, err)
		}
	}
}

func TestTokensFromOtherSecretFail(t *testing.T) {
	svc, clock := newTestService(t)
	other, err := NewTokenService([]byte("fedcba9876543210fedcba9876543210"), DefaultConfig(), clock.Now)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	token, _ := other.Generate()
	if svc.Validate(token) {
		t.Fatalf("token signed with another secret must fail")
	}
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService([]byte("short"), DefaultConfig(), nil); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
}
