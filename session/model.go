package session

import "time"

// Session is the server-side record of an authenticated session.
//
// NetworkAddress and DeviceSignature hold the values seen at creation or at
// the last successful validation. The Initial* fields never change.
type Session struct {
	SchemaVersion uint8

	SessionID string
	UserID    string

	CreatedAt    time.Time
	LastActivity time.Time

	NetworkAddress  string
	DeviceSignature string

	InitialNetworkAddress  string
	InitialDeviceSignature string

	MFAVerified bool
	RiskScore   int

	// Location is an optional coarse location label (country code).
	Location string
}

// Clone returns a copy of s safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// Age returns how long the session has existed at now.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Idle returns the time since the last activity at now.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
