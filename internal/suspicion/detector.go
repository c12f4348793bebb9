package suspicion

import (
	"context"
	"time"

	"github.com/MrEthical07/goRisk/internal/ledger"
)

// Activity tags recorded on suspicion records.
const (
	TagMultipleFailedLogins       = "multiple_failed_logins"
	TagRapidRequests              = "rapid_requests"
	TagAnomalousBehavior          = "anomalous_behavior"
	TagSessionHijackAttempt       = "session_hijack_attempt"
	TagConcurrentSessionsExceeded = "concurrent_sessions_exceeded"
)

// Config holds detector thresholds and point weights.
type Config struct {
	TTL              time.Duration
	MaxScore         int
	FailureThreshold int
	FailurePoints    int
	RapidThreshold   int
	RapidPoints      int
	DeviceThreshold  int
	DevicePoints     int
	HijackPoints     int
	ConcurrentPoints int
}

// DefaultConfig returns the standard detector weights.
func DefaultConfig() Config {
	return Config{
		TTL:              time.Hour,
		MaxScore:         100,
		FailureThreshold: 5,
		FailurePoints:    20,
		RapidThreshold:   10,
		RapidPoints:      15,
		DeviceThreshold:  3,
		DevicePoints:     10,
		HijackPoints:     30,
		ConcurrentPoints: 15,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.MaxScore <= 0 {
		c.MaxScore = d.MaxScore
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailurePoints <= 0 {
		c.FailurePoints = d.FailurePoints
	}
	if c.RapidThreshold <= 0 {
		c.RapidThreshold = d.RapidThreshold
	}
	if c.RapidPoints <= 0 {
		c.RapidPoints = d.RapidPoints
	}
	if c.DeviceThreshold <= 0 {
		c.DeviceThreshold = d.DeviceThreshold
	}
	if c.DevicePoints <= 0 {
		c.DevicePoints = d.DevicePoints
	}
	if c.HijackPoints <= 0 {
		c.HijackPoints = d.HijackPoints
	}
	if c.ConcurrentPoints <= 0 {
		c.ConcurrentPoints = d.ConcurrentPoints
	}
	return c
}

// Detector turns ledger patterns and session anomalies into suspicion points.
type Detector struct {
	store  Store
	ledger *ledger.Ledger
	cfg    Config
	now    func() time.Time
}

// NewDetector creates a [Detector]. A nil clock defaults to time.Now.
func NewDetector(store Store, l *ledger.Ledger, cfg Config, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{store: store, ledger: l, cfg: cfg.withDefaults(), now: now}
}

// Observation is the outcome of one detector pass.
type Observation struct {
	Fired  []string
	Points int
	Record Record
}

// ObserveAttempt evaluates the attempt-pattern rules for the identity of a
// and bumps the suspicion of a.Address for every rule that holds.
func (d *Detector) ObserveAttempt(ctx context.Context, a ledger.Attempt) (Observation, error) {
	if a.Address == "" {
		return Observation{}, nil
	}

	recent, err := d.ledger.Recent(ctx, a.Key)
	if err != nil {
		return Observation{}, err
	}
	summary := ledger.Summarize(recent, d.now().Add(-d.ledger.Window()))

	var obs Observation
	if summary.Failures >= d.cfg.FailureThreshold {
		obs.Fired = append(obs.Fired, TagMultipleFailedLogins)
		obs.Points += d.cfg.FailurePoints
	}
	if summary.Total >= d.cfg.RapidThreshold {
		obs.Fired = append(obs.Fired, TagRapidRequests)
		obs.Points += d.cfg.RapidPoints
	}

	devices, err := d.ledger.DistinctDevices(ctx, a.Address)
	if err != nil {
		return Observation{}, err
	}
	if devices > d.cfg.DeviceThreshold {
		obs.Fired = append(obs.Fired, TagAnomalousBehavior)
		obs.Points += d.cfg.DevicePoints
	}

	if obs.Points == 0 {
		return obs, nil
	}
	rec, err := d.store.Add(ctx, a.Address, obs.Points, d.cfg.MaxScore, obs.Fired, d.now(), d.cfg.TTL)
	if err != nil {
		return Observation{}, err
	}
	obs.Record = rec
	return obs, nil
}

// ObserveHijack records a suspected session hijack from address.
func (d *Detector) ObserveHijack(ctx context.Context, address string) (Record, error) {
	return d.bump(ctx, address, d.cfg.HijackPoints, TagSessionHijackAttempt)
}

// ObserveConcurrentBreach records that address pushed a user over the session cap.
func (d *Detector) ObserveConcurrentBreach(ctx context.Context, address string) (Record, error) {
	return d.bump(ctx, address, d.cfg.ConcurrentPoints, TagConcurrentSessionsExceeded)
}

func (d *Detector) bump(ctx context.Context, address string, points int, tag string) (Record, error) {
	if address == "" {
		return Record{}, nil
	}
	return d.store.Add(ctx, address, points, d.cfg.MaxScore, []string{tag}, d.now(), d.cfg.TTL)
}

// Lookup returns the live record for address.
func (d *Detector) Lookup(ctx context.Context, address string) (Record, bool, error) {
	if address == "" {
		return Record{}, false, nil
	}
	return d.store.Get(ctx, address, d.now())
}

// Score returns the live score for address, 0 when none exists.
func (d *Detector) Score(ctx context.Context, address string) (int, error) {
	rec, ok, err := d.Lookup(ctx, address)
	if err != nil || !ok {
		return 0, err
	}
	return rec.Score, nil
}

// Clear forgets the record for address.
func (d *Detector) Clear(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}
	return d.store.Delete(ctx, address)
}
