package goRisk

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordFailures(t *testing.T, e *Engine, clock *fakeClock, id Identity, n int, gap time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		if i > 0 {
			clock.Advance(gap)
		}
		if err := e.RecordAuthAttempt(context.Background(), id, false, "", "bad password"); err != nil {
			t.Fatalf("record attempt %d: %v", i, err)
		}
	}
}

func TestIsAuthAllowedFreshIdentity(t *testing.T) {
	clock := newFakeClock()
	for name, engine := range enginesUnderTest(t, testConfig(), clock) {
		t.Run(name, func(t *testing.T) {
			d, err := engine.IsAuthAllowed(context.Background(), Identity{NetworkAddress: "198.51.100.1", DeviceSignature: "Mozilla/5.0"})
			if err != nil {
				t.Fatalf("IsAuthAllowed: %v", err)
			}
			if !d.Allowed || d.Err() != nil || d.Code != "" {
				t.Fatalf("expected fresh identity to be allowed, got %+v", d)
			}
		})
	}
}

func TestIsAuthAllowedHardBlock(t *testing.T) {
	clock := newFakeClock()
	for name, engine := range enginesUnderTest(t, testConfig(), clock) {
		t.Run(name, func(t *testing.T) {
			id := Identity{NetworkAddress: "198.51.100.10-" + name, DeviceSignature: "Mozilla/5.0 (X11; Linux x86_64)"}
			recordFailures(t, engine, clock, id, 10, 10*time.Second)

			d, err := engine.IsAuthAllowed(context.Background(), id)
			if err != nil {
				t.Fatalf("IsAuthAllowed: %v", err)
			}
			if d.Allowed || d.RetryAfterSeconds != 3600 || d.Reason != "too many failed attempts" {
				t.Fatalf("expected hard block, got %+v", d)
			}
			if d.Code != CodeRateLimited || !errors.Is(d.Err(), ErrRateLimited) {
				t.Fatalf("expected RATE_LIMITED code, got %+v", d)
			}
		})
	}
}

func TestIsAuthAllowedSoftBlock(t *testing.T) {
	for _, failures := range []int{5, 7, 9} {
		clock := newFakeClock()
		engine := buildTestEngine(t, testConfig(), clock, nil)
		id := Identity{NetworkAddress: "198.51.100.20", DeviceSignature: "Mozilla/5.0"}
		recordFailures(t, engine, clock, id, failures, 30*time.Second)

		d, err := engine.IsAuthAllowed(context.Background(), id)
		if err != nil {
			t.Fatalf("IsAuthAllowed: %v", err)
		}
		if d.Allowed || d.RetryAfterSeconds != 900 || d.Reason != "multiple failed attempts" {
			t.Fatalf("%d failures: expected soft block, got %+v", failures, d)
		}
	}
}

func TestIsAuthAllowedBackoff(t *testing.T) {
	cases := []struct {
		failures int
		delay    time.Duration
	}{
		{failures: 3, delay: 300 * time.Second},
		{failures: 4, delay: 600 * time.Second},
	}

	for _, tc := range cases {
		clock := newFakeClock()
		engine := buildTestEngine(t, testConfig(), clock, nil)
		ctx := context.Background()
		id := Identity{NetworkAddress: "198.51.100.30", DeviceSignature: "Mozilla/5.0"}
		recordFailures(t, engine, clock, id, tc.failures, time.Second)

		clock.Advance(tc.delay - 10*time.Second)
		d, err := engine.IsAuthAllowed(ctx, id)
		if err != nil {
			t.Fatalf("IsAuthAllowed: %v", err)
		}
		if d.Allowed || d.RetryAfterSeconds != 10 || d.Reason != "too many failed attempts, backing off" {
			t.Fatalf("%d failures: expected backoff with 10s left, got %+v", tc.failures, d)
		}

		clock.Advance(11 * time.Second)
		d, err = engine.IsAuthAllowed(ctx, id)
		if err != nil {
			t.Fatalf("IsAuthAllowed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("%d failures: expected retry after %s to be allowed, got %+v", tc.failures, tc.delay, d)
		}
	}
}

func TestFailuresOutsideWindowAreIgnored(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)
	id := Identity{NetworkAddress: "198.51.100.40", DeviceSignature: "Mozilla/5.0"}
	recordFailures(t, engine, clock, id, 6, time.Second)

	clock.Advance(16 * time.Minute)
	d, err := engine.IsAuthAllowed(context.Background(), id)
	if err != nil {
		t.Fatalf("IsAuthAllowed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected failures older than the window to be ignored, got %+v", d)
	}
}

func TestSuccessfulAttemptsDoNotCount(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)
	ctx := context.Background()
	id := Identity{NetworkAddress: "198.51.100.50", DeviceSignature: "Mozilla/5.0"}

	for i := 0; i < 8; i++ {
		if err := engine.RecordAuthAttempt(ctx, id, true, "u-1", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	d, err := engine.IsAuthAllowed(ctx, id)
	if err != nil {
		t.Fatalf("IsAuthAllowed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected successes to leave identity allowed, got %+v", d)
	}
}

func TestSuspicionBlocksOtherIdentitiesOnAddress(t *testing.T) {
	clock := newFakeClock()
	for name, engine := range enginesUnderTest(t, testConfig(), clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			address := "203.0.113.7-" + name
			attacker := Identity{NetworkAddress: address, DeviceSignature: "python-requests/2.31"}
			recordFailures(t, engine, clock, attacker, 10, time.Second)

			rec, err := engine.SuspicionScore(ctx, address)
			if err != nil {
				t.Fatalf("SuspicionScore: %v", err)
			}
			if rec.Score <= 80 {
				t.Fatalf("expected suspicion above 80, got %d", rec.Score)
			}

			other := Identity{NetworkAddress: address, DeviceSignature: "Mozilla/5.0 (Macintosh)"}
			d, err := engine.IsAuthAllowed(ctx, other)
			if err != nil {
				t.Fatalf("IsAuthAllowed: %v", err)
			}
			if d.Allowed || d.Reason != "suspicious activity detected" || d.RetryAfterSeconds != 3600 {
				t.Fatalf("expected suspicion block, got %+v", d)
			}

			if err := engine.ClearSuspicion(ctx, address); err != nil {
				t.Fatalf("ClearSuspicion: %v", err)
			}
			d, err = engine.IsAuthAllowed(ctx, other)
			if err != nil {
				t.Fatalf("IsAuthAllowed: %v", err)
			}
			if !d.Allowed {
				t.Fatalf("expected cleared address to be allowed, got %+v", d)
			}
		})
	}
}

func TestDetectorRulesRaiseSuspicion(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)
	ctx := context.Background()
	id := Identity{NetworkAddress: "203.0.113.8", DeviceSignature: "Mozilla/5.0"}

	recordFailures(t, engine, clock, id, 4, time.Second)
	rec, err := engine.SuspicionScore(ctx, id.NetworkAddress)
	if err != nil {
		t.Fatalf("SuspicionScore: %v", err)
	}
	if rec.Score != 0 {
		t.Fatalf("expected no suspicion below threshold, got %d", rec.Score)
	}

	recordFailures(t, engine, clock, id, 1, time.Second)
	rec, err = engine.SuspicionScore(ctx, id.NetworkAddress)
	if err != nil {
		t.Fatalf("SuspicionScore: %v", err)
	}
	if rec.Score != 20 || len(rec.Tags) != 1 || rec.Tags[0] != "multiple_failed_logins" {
		t.Fatalf("expected multiple_failed_logins +20, got %+v", rec)
	}

	clock.Advance(61 * time.Minute)
	rec, err = engine.SuspicionScore(ctx, id.NetworkAddress)
	if err != nil {
		t.Fatalf("SuspicionScore: %v", err)
	}
	if rec.Score != 0 {
		t.Fatalf("expected suspicion to expire after its TTL, got %d", rec.Score)
	}
}

func TestDistinctDevicesRaiseSuspicion(t *testing.T) {
	clock := newFakeClock()
	engine := buildTestEngine(t, testConfig(), clock, nil)
	ctx := context.Background()
	address := "203.0.113.9"

	for _, sig := range []string{"device-a", "device-b", "device-c", "device-d"} {
		if err := engine.RecordAuthAttempt(ctx, Identity{NetworkAddress: address, DeviceSignature: sig}, true, "", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	rec, err := engine.SuspicionScore(ctx, address)
	if err != nil {
		t.Fatalf("SuspicionScore: %v", err)
	}
	if rec.Score != 10 || rec.Tags[0] != "anomalous_behavior" {
		t.Fatalf("expected anomalous_behavior +10, got %+v", rec)
	}
}

func TestIdentityKeyTruncatesSignature(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	a := Identity{NetworkAddress: "10.0.0.1", DeviceSignature: string(long)}
	b := Identity{NetworkAddress: "10.0.0.1", DeviceSignature: string(long[:64]) + "different tail"}

	if a.Key() != b.Key() {
		t.Fatalf("expected signatures sharing a 64-byte prefix to share a key")
	}
	if a.Key() == (Identity{NetworkAddress: "10.0.0.2", DeviceSignature: string(long)}).Key() {
		t.Fatalf("expected different addresses to produce different keys")
	}
}

func TestRateLimitMetricsAndAudit(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(64)
	engine := buildTestEngine(t, cfg, clock, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	id := Identity{NetworkAddress: "192.0.2.44", DeviceSignature: "Mozilla/5.0"}
	recordFailures(t, engine, clock, id, 5, time.Second)

	if _, err := engine.IsAuthAllowed(context.Background(), id); err != nil {
		t.Fatalf("IsAuthAllowed: %v", err)
	}
	engine.Close()

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricAuthAttemptFailure] != 5 || snap.Counters[MetricAuthRateLimited] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if snap.Counters[MetricSuspicionRaised] != 1 {
		t.Fatalf("expected one suspicion raise, got %d", snap.Counters[MetricSuspicionRaised])
	}

	seen := map[string]int{}
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		seen[ev.EventType]++
		if ev.EventID == "" {
			t.Fatalf("expected event id on %s", ev.EventType)
		}
	}
	if seen[auditEventAuthAttemptFailure] != 5 || seen[auditEventAuthRateLimited] != 1 || seen[auditEventSuspicionRaised] != 1 {
		t.Fatalf("unexpected audit events: %v", seen)
	}
}
