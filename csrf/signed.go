package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/MrEthical07/goRisk/internal"
)

const (
	minSecretBytes = 32
	keyInfo        = "goRisk csrf signing key v1"
)

// Token validation failures. [TokenService.Check] returns one of these.
var (
	ErrMalformedToken  = errors.New("csrf token malformed")
	ErrBadSignature    = errors.New("csrf token signature mismatch")
	ErrTokenExpired    = errors.New("csrf token expired")
	ErrTokenFromFuture = errors.New("csrf token timestamp in the future")
	ErrSecretTooShort  = errors.New("csrf secret must be at least 32 bytes")
)

// Config holds signed-token lifetimes.
type Config struct {
	// MaxAge is the oldest token accepted.
	MaxAge time.Duration
	// ClockSkew tolerates timestamps slightly ahead of the local clock.
	ClockSkew time.Duration
}

// DefaultConfig accepts tokens up to 24h old with one minute of skew.
func DefaultConfig() Config {
	return Config{MaxAge: 24 * time.Hour, ClockSkew: time.Minute}
}

// TokenService issues and validates signed tokens. Safe for concurrent use.
type TokenService struct {
	key []byte
	cfg Config
	now func() time.Time
}

// NewTokenService derives the signing key from secret. A nil clock defaults to time.Now.
func NewTokenService(secret []byte, cfg Config, now func() time.Time) (*TokenService, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrSecretTooShort
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultConfig().MaxAge
	}
	if cfg.ClockSkew < 0 {
		cfg.ClockSkew = 0
	}
	if now == nil {
		now = time.Now
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return &TokenService{key: key, cfg: cfg, now: now}, nil
}

// Generate returns a fresh token stamped with the current time.
func (s *TokenService) Generate() (string, error) {
	nonce, err := internal.NewNonce()
	if err != nil {
		return "", err
	}
	payload := nonce + ":" + strconv.FormatInt(s.now().Unix(), 10)
	return payload + ":" + s.sign(payload), nil
}

// Validate reports whether token is authentic and fresh.
func (s *TokenService) Validate(token string) bool {
	return s.Check(token) == nil
}

// Check validates token and says why it failed.
func (s *TokenService) Check(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return ErrMalformedToken
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ErrMalformedToken
	}

	expected := s.sign(parts[0] + ":" + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return ErrBadSignature
	}

	now := s.now()
	issued := time.Unix(ts, 0)
	if issued.After(now.Add(s.cfg.ClockSkew)) {
		return ErrTokenFromFuture
	}
	if now.Sub(issued) > s.cfg.MaxAge {
		return ErrTokenExpired
	}
	return nil
}

func (s *TokenService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
