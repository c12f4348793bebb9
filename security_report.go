package goRisk

import "time"

// SecurityReport summarises the protections an engine runs with.
type SecurityReport struct {
	ProductionMode  bool
	Backend         string
	EphemeralSecret bool
	CSRFMode        CSRFMode
	CSRFMaxAge      time.Duration

	SessionMaxAge        time.Duration
	SessionIdleTimeout   time.Duration
	MaxConcurrentSession int
	ReauthRiskScore      int

	HijackBlockAbove    int
	HijackMinSimilarity float64
	AddressChurnActive  bool
	GeoAnomalyActive    bool
	RapidRequestsActive bool
	AutomatedMarkers    int

	RateLimit      RateLimitConfig
	SuspicionTTL   time.Duration
	AuditEnabled   bool
	MetricsEnabled bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:       e.config.Security.ProductionMode,
		Backend:              e.backend,
		EphemeralSecret:      e.ephemeralSecret,
		CSRFMode:             e.config.CSRF.Mode,
		CSRFMaxAge:           e.config.CSRF.MaxAge,
		SessionMaxAge:        e.config.Session.MaxAge,
		SessionIdleTimeout:   e.config.Session.IdleTimeout,
		MaxConcurrentSession: e.config.Session.MaxConcurrent,
		ReauthRiskScore:      e.config.Session.ReauthRiskScore,
		HijackBlockAbove:     e.config.Hijack.BlockAbove,
		HijackMinSimilarity:  e.config.Hijack.MinSimilarity,
		AddressChurnActive:   e.churn != nil,
		GeoAnomalyActive:     e.geo != nil,
		RapidRequestsActive:  e.rapid != nil,
		AutomatedMarkers:     len(e.signatures.Markers()),
		RateLimit:            e.config.RateLimit,
		SuspicionTTL:         e.config.Suspicion.TTL,
		AuditEnabled:         e.audit != nil,
		MetricsEnabled:       e.metrics.Enabled(),
	}
}
