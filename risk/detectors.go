package risk

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goRisk/internal/limiters"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Location is a coarse network location.
type Location struct {
	CountryCode string
	CountryName string
	City        string
}

// GeoLocator resolves a network address to a location.
type GeoLocator interface {
	Locate(address string) (Location, error)
}

// GeoAnomalyDetector flags requests whose location is unexpected for the user.
type GeoAnomalyDetector interface {
	GeoAnomaly(ctx context.Context, userID, address string) bool
}

// RapidRequestDetector flags addresses sending requests unusually fast.
type RapidRequestDetector interface {
	RapidRequests(ctx context.Context, address string) bool
}

// AddressChurnDetector flags sessions whose network address keeps changing.
// It is called on every validation of sessionID with the current address.
type AddressChurnDetector interface {
	AddressChurn(ctx context.Context, sessionID, address string) bool
}

// CountryChangeDetector flags a user whose country differs from the one seen
// on their previous assessment.
type CountryChangeDetector struct {
	locator GeoLocator
	mu      sync.Mutex
	last    *expirable.LRU[string, string]
}

// NewCountryChangeDetector remembers up to size users for ttl.
func NewCountryChangeDetector(locator GeoLocator, size int, ttl time.Duration) *CountryChangeDetector {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CountryChangeDetector{
		locator: locator,
		last:    expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// GeoAnomaly reports whether address resolves to a different country than the
// user's previous one. Unknown users and unresolvable addresses never flag.
func (d *CountryChangeDetector) GeoAnomaly(_ context.Context, userID, address string) bool {
	if d == nil || d.locator == nil || userID == "" || address == "" {
		return false
	}
	loc, err := d.locator.Locate(address)
	if err != nil || loc.CountryCode == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	prev, seen := d.last.Get(userID)
	d.last.Add(userID, loc.CountryCode)
	return seen && prev != loc.CountryCode
}

type requestRateDetector struct {
	tracker *limiters.RequestRateTracker
}

// NewRequestRateDetector flags an address once its token bucket runs dry.
// Every call consumes one token.
func NewRequestRateDetector(cfg limiters.RequestRateConfig, now func() time.Time) RapidRequestDetector {
	return requestRateDetector{tracker: limiters.NewRequestRateTracker(cfg, now)}
}

func (d requestRateDetector) RapidRequests(_ context.Context, address string) bool {
	return d.tracker.Observe(address)
}

// ChurnConfig tunes [RecentAddressChurn].
type ChurnConfig struct {
	// Window is how far back address changes are counted.
	Window time.Duration
	// MaxAddresses is the number of distinct addresses in Window that counts as churn.
	MaxAddresses int
	// MaxSessions bounds the number of tracked sessions.
	MaxSessions int
}

// DefaultChurnConfig flags three distinct addresses within ten minutes.
func DefaultChurnConfig() ChurnConfig {
	return ChurnConfig{Window: 10 * time.Minute, MaxAddresses: 3, MaxSessions: 10000}
}

type addressSighting struct {
	address string
	at      time.Time
}

// RecentAddressChurn keeps the recent addresses of each session and flags
// sessions that hop across too many of them.
type RecentAddressChurn struct {
	cfg     ChurnConfig
	now     func() time.Time
	mu      sync.Mutex
	history *expirable.LRU[string, []addressSighting]
}

// NewRecentAddressChurn creates a [RecentAddressChurn]. A nil clock defaults to time.Now.
func NewRecentAddressChurn(cfg ChurnConfig, now func() time.Time) *RecentAddressChurn {
	d := DefaultChurnConfig()
	if cfg.Window <= 0 {
		cfg.Window = d.Window
	}
	if cfg.MaxAddresses <= 1 {
		cfg.MaxAddresses = d.MaxAddresses
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = d.MaxSessions
	}
	if now == nil {
		now = time.Now
	}
	return &RecentAddressChurn{
		cfg:     cfg,
		now:     now,
		history: expirable.NewLRU[string, []addressSighting](cfg.MaxSessions, nil, cfg.Window),
	}
}

// AddressChurn records address for sessionID and reports whether the session
// has used at least MaxAddresses distinct addresses inside the window.
func (d *RecentAddressChurn) AddressChurn(_ context.Context, sessionID, address string) bool {
	if sessionID == "" || address == "" {
		return false
	}
	now := d.now()
	cutoff := now.Add(-d.cfg.Window)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, _ := d.history.Get(sessionID)
	kept := make([]addressSighting, 0, len(prev)+1)
	for _, s := range prev {
		if s.at.After(cutoff) && s.address != address {
			kept = append(kept, s)
		}
	}
	kept = append(kept, addressSighting{address: address, at: now})
	if len(kept) > d.cfg.MaxAddresses {
		kept = kept[len(kept)-d.cfg.MaxAddresses:]
	}
	d.history.Add(sessionID, kept)
	return len(kept) >= d.cfg.MaxAddresses
}

// Forget drops the history for sessionID.
func (d *RecentAddressChurn) Forget(sessionID string) {
	d.mu.Lock()
	d.history.Remove(sessionID)
	d.mu.Unlock()
}
