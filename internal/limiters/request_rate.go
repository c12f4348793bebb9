package limiters

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RequestRateConfig sizes the per-key buckets.
type RequestRateConfig struct {
	// PerSecond is the sustained refill rate.
	PerSecond float64
	// Burst is the bucket size.
	Burst int
	// MaxKeys bounds the number of tracked keys.
	MaxKeys int
	// IdleTTL drops buckets not touched for this long.
	IdleTTL time.Duration
}

// DefaultRequestRateConfig allows a burst of 20 requests refilling at 2/s.
func DefaultRequestRateConfig() RequestRateConfig {
	return RequestRateConfig{
		PerSecond: 2,
		Burst:     20,
		MaxKeys:   10000,
		IdleTTL:   10 * time.Minute,
	}
}

// RequestRateTracker tracks request rates per key. Safe for concurrent use.
type RequestRateTracker struct {
	mu      sync.Mutex
	cfg     RequestRateConfig
	buckets *expirable.LRU[string, *rate.Limiter]
	now     func() time.Time
}

// NewRequestRateTracker creates a [RequestRateTracker]. A nil clock defaults to time.Now.
func NewRequestRateTracker(cfg RequestRateConfig, now func() time.Time) *RequestRateTracker {
	d := DefaultRequestRateConfig()
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = d.PerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = d.Burst
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = d.MaxKeys
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = d.IdleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RequestRateTracker{
		cfg:     cfg,
		buckets: expirable.NewLRU[string, *rate.Limiter](cfg.MaxKeys, nil, cfg.IdleTTL),
		now:     now,
	}
}

func (t *RequestRateTracker) bucket(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.buckets.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(t.cfg.PerSecond), t.cfg.Burst)
	t.buckets.Add(key, l)
	return l
}

// Observe consumes one token for key and reports whether the key is over its
// rate. An empty key is never over.
func (t *RequestRateTracker) Observe(key string) bool {
	if t == nil || key == "" {
		return false
	}
	return !t.bucket(key).AllowN(t.now(), 1)
}

// Exceeded reports whether key currently has no token left, without consuming one.
func (t *RequestRateTracker) Exceeded(key string) bool {
	if t == nil || key == "" {
		return false
	}
	t.mu.Lock()
	l, ok := t.buckets.Peek(key)
	t.mu.Unlock()
	if !ok {
		return false
	}
	return l.TokensAt(t.now()) < 1
}

// Reset forgets key.
func (t *RequestRateTracker) Reset(key string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.buckets.Remove(key)
	t.mu.Unlock()
}
