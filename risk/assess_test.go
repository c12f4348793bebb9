package risk

import (
	"testing"
	"time"
)

func TestAssessEmptySignalsIsZero(t *testing.T) {
	a := DefaultPolicy().Assess(Signals{LocalHour: 12})
	if a.Score != 0 || len(a.Factors) != 0 || len(a.Recommendations) != 0 {
		t.Fatalf("expected clean assessment, got %+v", a)
	}
	if a.RequireMFA || a.RequireReauth || a.BlockAccess {
		t.Fatalf("expected no derived decisions, got %+v", a)
	}
}

func TestAssessSuspicionIsCapped(t *testing.T) {
	a := DefaultPolicy().Assess(Signals{LocalHour: 12, SuspicionScore: 95})
	if a.Score != 30 {
		t.Fatalf("expected suspicion capped at 30, got %d", a.Score)
	}
	if !a.HasFactor(FactorSuspiciousAddress) {
		t.Fatalf("expected suspicious address factor, got %v", a.Factors)
	}
}

func TestAssessUnusualHours(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		hour    int
		unusual bool
	}{
		{hour: 5, unusual: true},
		{hour: 6, unusual: false},
		{hour: 21, unusual: false},
		{hour: 22, unusual: true},
		{hour: 0, unusual: true},
	}
	for _, tc := range cases {
		a := p.Assess(Signals{LocalHour: tc.hour})
		if a.HasFactor(FactorUnusualHour) != tc.unusual {
			t.Fatalf("hour %d: expected unusual=%v, got %v", tc.hour, tc.unusual, a.Factors)
		}
	}
}

func TestAssessSessionCapOnlyForKnownUser(t *testing.T) {
	p := DefaultPolicy()
	anon := p.Assess(Signals{LocalHour: 12, UserSessionCount: 5, SessionCap: 5})
	if anon.HasFactor(FactorSessionCapReached) {
		t.Fatalf("anonymous request must not score session cap")
	}
	known := p.Assess(Signals{LocalHour: 12, UserKnown: true, UserSessionCount: 5, SessionCap: 5})
	if !known.HasFactor(FactorSessionCapReached) || known.Score != 20 {
		t.Fatalf("expected session cap factor worth 20, got %+v", known)
	}
}

func TestAssessDerivedDecisionsAndCap(t *testing.T) {
	p := DefaultPolicy()

	a := p.Assess(Signals{LocalHour: 12, AutomatedClient: true, RapidRequests: true})
	if a.Score != 45 || !a.RequireMFA || a.RequireReauth || a.BlockAccess {
		t.Fatalf("expected score 45 requiring MFA only, got %+v", a)
	}

	all := p.Assess(Signals{
		SuspicionScore:   100,
		LocalHour:        3,
		UserKnown:        true,
		UserSessionCount: 9,
		SessionCap:       5,
		GeoAnomaly:       true,
		AutomatedClient:  true,
		RapidRequests:    true,
	})
	if all.Score != MaxScore {
		t.Fatalf("expected capped score %d, got %d", MaxScore, all.Score)
	}
	if !all.RequireMFA || !all.RequireReauth || !all.BlockAccess {
		t.Fatalf("expected every decision set, got %+v", all)
	}
	if len(all.Factors) != 6 {
		t.Fatalf("expected 6 factors, got %v", all.Factors)
	}
	if len(all.Recommendations) != 7 {
		t.Fatalf("expected one recommendation per factor plus MFA, got %v", all.Recommendations)
	}
}

func TestAssessThresholdsAreStrict(t *testing.T) {
	p := DefaultPolicy()
	// 30 suspicion + 10 unusual hour = 40, not above the MFA threshold.
	a := p.Assess(Signals{SuspicionScore: 50, LocalHour: 23})
	if a.Score != 40 || a.RequireMFA {
		t.Fatalf("expected score 40 without MFA, got %+v", a)
	}
}

func TestSessionScore(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name string
		in   SessionSignals
		want int
	}{
		{name: "fresh verified", in: SessionSignals{MFAVerified: true}, want: 0},
		{name: "fresh unverified", in: SessionSignals{}, want: 15},
		{name: "half day", in: SessionSignals{Age: 13 * time.Hour, MFAVerified: true}, want: 10},
		{name: "over a day", in: SessionSignals{Age: 25 * time.Hour, MFAVerified: true}, want: 20},
		{name: "address change", in: SessionSignals{AddressChanged: true, MFAVerified: true}, want: 30},
		{name: "signature change", in: SessionSignals{SignatureChanged: true, MFAVerified: true}, want: 20},
		{name: "suspicion scaled", in: SessionSignals{SuspicionScore: 60, MFAVerified: true}, want: 15},
		{name: "suspicion capped", in: SessionSignals{SuspicionScore: 100, MFAVerified: true}, want: 25},
		{
			name: "everything",
			in:   SessionSignals{Age: 30 * time.Hour, AddressChanged: true, SignatureChanged: true, SuspicionScore: 100},
			want: 100,
		},
	}
	for _, tc := range cases {
		if got := p.SessionScore(tc.in); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestEvaluateHijack(t *testing.T) {
	p := DefaultHijackPolicy()

	same := p.EvaluateHijack(HijackSignals{Similarity: 1})
	if same.Suspected || same.Confidence != 0 {
		t.Fatalf("identical context must not be suspected, got %+v", same)
	}

	addrOnly := p.EvaluateHijack(HijackSignals{AddressChanged: true, Similarity: 1})
	if addrOnly.Suspected || addrOnly.Confidence != 40 {
		t.Fatalf("address change alone must not block, got %+v", addrOnly)
	}

	sigOnly := p.EvaluateHijack(HijackSignals{Similarity: 0.2})
	if sigOnly.Suspected || sigOnly.Confidence != 30 {
		t.Fatalf("signature change alone must not block, got %+v", sigOnly)
	}

	both := p.EvaluateHijack(HijackSignals{AddressChanged: true, Similarity: 0.2})
	if !both.Suspected || both.Confidence != 70 {
		t.Fatalf("address and signature change must block, got %+v", both)
	}

	churn := p.EvaluateHijack(HijackSignals{AddressChanged: true, Similarity: 0.9, AddressChurn: true})
	if !churn.Suspected {
		t.Fatalf("address change with churn must block, got %+v", churn)
	}
}
