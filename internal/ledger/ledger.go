package ledger

import (
	"context"
	"time"
)

// Attempt is one recorded authentication attempt. It is immutable once recorded.
type Attempt struct {
	Key             string    `json:"k"`
	Address         string    `json:"a,omitempty"`
	DeviceSignature string    `json:"d,omitempty"`
	At              time.Time `json:"t"`
	Success         bool      `json:"s"`
	UserID          string    `json:"u,omitempty"`
	Reason          string    `json:"r,omitempty"`
}

// Store persists attempt lists and the per-address device index.
type Store interface {
	// Append adds a to the list under key, keeps only the newest max entries
	// and refreshes the list TTL.
	Append(ctx context.Context, key string, a Attempt, max int, ttl time.Duration) error
	// List returns the attempts under key, oldest first.
	List(ctx context.Context, key string) ([]Attempt, error)
	// TrackDevice notes that device was seen from address at the given time.
	TrackDevice(ctx context.Context, address, device string, at time.Time, ttl time.Duration) error
	// DistinctDevices counts devices seen from address at or after since.
	DistinctDevices(ctx context.Context, address string, since time.Time) (int, error)
}

// Config holds ledger retention parameters.
type Config struct {
	MaxPerIdentity int
	Window         time.Duration
}

// Ledger is the attempt ledger. Safe for concurrent use when the store is.
type Ledger struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// New creates a [Ledger]. A nil clock defaults to time.Now.
func New(store Store, cfg Config, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxPerIdentity <= 0 {
		cfg.MaxPerIdentity = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Ledger{store: store, cfg: cfg, now: now}
}

// Record appends a to its identity list. A zero At is stamped with the ledger clock.
func (l *Ledger) Record(ctx context.Context, a Attempt) (Attempt, error) {
	if a.At.IsZero() {
		a.At = l.now()
	}
	if err := l.store.Append(ctx, a.Key, a, l.cfg.MaxPerIdentity, l.cfg.Window); err != nil {
		return a, err
	}
	if a.Address != "" && a.DeviceSignature != "" {
		if err := l.store.TrackDevice(ctx, a.Address, a.DeviceSignature, a.At, l.cfg.Window); err != nil {
			return a, err
		}
	}
	return a, nil
}

// Recent returns the attempts for key inside the ledger window, oldest first.
func (l *Ledger) Recent(ctx context.Context, key string) ([]Attempt, error) {
	all, err := l.store.List(ctx, key)
	if err != nil {
		return nil, err
	}
	cutoff := l.now().Add(-l.cfg.Window)
	out := make([]Attempt, 0, len(all))
	for _, a := range all {
		if a.At.After(cutoff) {
			out = append(out, a)
		}
	}
	if len(out) > l.cfg.MaxPerIdentity {
		out = out[len(out)-l.cfg.MaxPerIdentity:]
	}
	return out, nil
}

// DistinctDevices counts device signatures seen from address inside the window.
func (l *Ledger) DistinctDevices(ctx context.Context, address string) (int, error) {
	if address == "" {
		return 0, nil
	}
	return l.store.DistinctDevices(ctx, address, l.now().Add(-l.cfg.Window))
}

// Window returns the configured retention window.
func (l *Ledger) Window() time.Duration {
	return l.cfg.Window
}

// Summary aggregates a slice of attempts over a lookback period.
type Summary struct {
	Total       int
	Failures    int
	LastFailure time.Time
}

// Summarize counts attempts at or after since.
func Summarize(attempts []Attempt, since time.Time) Summary {
	var s Summary
	for _, a := range attempts {
		if a.At.Before(since) {
			continue
		}
		s.Total++
		if !a.Success {
			s.Failures++
			if a.At.After(s.LastFailure) {
				s.LastFailure = a.At
			}
		}
	}
	return s
}
