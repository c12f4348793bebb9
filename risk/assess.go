package risk

import "time"

// Factor names a risk signal that contributed to an assessment.
type Factor string

// Request risk factors.
const (
	FactorSuspiciousAddress Factor = "suspicious_network_address"
	FactorUnusualHour       Factor = "unusual_access_time"
	FactorSessionCapReached Factor = "concurrent_session_cap_reached"
	FactorGeoAnomaly        Factor = "geographic_anomaly"
	FactorAutomatedClient   Factor = "automated_client"
	FactorRapidRequests     Factor = "rapid_requests"
)

// Weights are the points each factor contributes.
type Weights struct {
	// SuspicionCap bounds the suspicion score contribution.
	SuspicionCap    int
	UnusualHour     int
	SessionCap      int
	GeoAnomaly      int
	AutomatedClient int
	RapidRequests   int
}

// SessionWeights are the points for the per-session score.
type SessionWeights struct {
	AgeOverHalfDay   int
	AgeOverDay       int
	AddressChanged   int
	SignatureChanged int
	MFANotVerified   int
	// SuspicionDivisor scales the address suspicion score down before SuspicionCap applies.
	SuspicionDivisor int
	SuspicionCap     int
}

// Thresholds map a score to derived decisions. Each is a strict lower bound.
type Thresholds struct {
	RequireMFA    int
	RequireReauth int
	BlockAccess   int
}

// Policy bundles weights, thresholds and the usual-hours window.
type Policy struct {
	Weights        Weights
	SessionWeights SessionWeights
	Thresholds     Thresholds
	// UsualHoursStart and UsualHoursEnd bound local access hours as [start, end).
	UsualHoursStart int
	UsualHoursEnd   int
}

// DefaultPolicy returns the standard scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			SuspicionCap:    30,
			UnusualHour:     10,
			SessionCap:      20,
			GeoAnomaly:      25,
			AutomatedClient: 30,
			RapidRequests:   15,
		},
		SessionWeights: SessionWeights{
			AgeOverHalfDay:   10,
			AgeOverDay:       20,
			AddressChanged:   30,
			SignatureChanged: 20,
			MFANotVerified:   15,
			SuspicionDivisor: 4,
			SuspicionCap:     25,
		},
		Thresholds: Thresholds{
			RequireMFA:    40,
			RequireReauth: 60,
			BlockAccess:   85,
		},
		UsualHoursStart: 6,
		UsualHoursEnd:   22,
	}
}

// MaxScore is the ceiling for every score.
const MaxScore = 100

// Signals is the snapshot a request assessment is computed from.
type Signals struct {
	SuspicionScore int
	// LocalHour is the hour of day (0-23) in the deployment's local zone.
	LocalHour int
	// UserKnown is false for anonymous requests; session-cap scoring is skipped.
	UserKnown        bool
	UserSessionCount int
	SessionCap       int
	GeoAnomaly       bool
	AutomatedClient  bool
	RapidRequests    bool
}

// Assessment is the result of a request risk evaluation. It is never cached.
type Assessment struct {
	Score           int
	Factors         []Factor
	RequireMFA      bool
	RequireReauth   bool
	BlockAccess     bool
	Recommendations []string
}

// HasFactor reports whether f fired.
func (a Assessment) HasFactor(f Factor) bool {
	for _, got := range a.Factors {
		if got == f {
			return true
		}
	}
	return false
}

// Assess scores s. The score is additive and capped at [MaxScore].
func (p Policy) Assess(s Signals) Assessment {
	var a Assessment
	add := func(f Factor, points int) {
		a.Score += points
		a.Factors = append(a.Factors, f)
	}

	if s.SuspicionScore > 0 {
		add(FactorSuspiciousAddress, min(s.SuspicionScore, p.Weights.SuspicionCap))
	}
	if !p.usualHour(s.LocalHour) {
		add(FactorUnusualHour, p.Weights.UnusualHour)
	}
	if s.UserKnown && s.SessionCap > 0 && s.UserSessionCount >= s.SessionCap {
		add(FactorSessionCapReached, p.Weights.SessionCap)
	}
	if s.GeoAnomaly {
		add(FactorGeoAnomaly, p.Weights.GeoAnomaly)
	}
	if s.AutomatedClient {
		add(FactorAutomatedClient, p.Weights.AutomatedClient)
	}
	if s.RapidRequests {
		add(FactorRapidRequests, p.Weights.RapidRequests)
	}

	a.Score = min(a.Score, MaxScore)
	a.RequireMFA = a.Score > p.Thresholds.RequireMFA
	a.RequireReauth = a.Score > p.Thresholds.RequireReauth
	a.BlockAccess = a.Score > p.Thresholds.BlockAccess
	a.Recommendations = recommendations(a)
	return a
}

func (p Policy) usualHour(hour int) bool {
	return hour >= p.UsualHoursStart && hour < p.UsualHoursEnd
}

// SessionSignals is the snapshot a per-session score is computed from.
type SessionSignals struct {
	Age              time.Duration
	AddressChanged   bool
	SignatureChanged bool
	MFAVerified      bool
	SuspicionScore   int
}

// SessionScore computes the per-session risk score, capped at [MaxScore].
func (p Policy) SessionScore(s SessionSignals) int {
	w := p.SessionWeights
	score := 0

	switch {
	case s.Age > 24*time.Hour:
		score += w.AgeOverDay
	case s.Age > 12*time.Hour:
		score += w.AgeOverHalfDay
	}
	if s.AddressChanged {
		score += w.AddressChanged
	}
	if s.SignatureChanged {
		score += w.SignatureChanged
	}
	if !s.MFAVerified {
		score += w.MFANotVerified
	}
	if s.SuspicionScore > 0 && w.SuspicionDivisor > 0 {
		score += min(s.SuspicionScore/w.SuspicionDivisor, w.SuspicionCap)
	}
	return min(score, MaxScore)
}
