package suspicion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goRisk/internal/ledger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newRedisStoreTest(t *testing.T) (*RedisStore, redis.UniversalClient) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "test"), rdb
}

type fixture struct {
	clock    *fakeClock
	ledger   *ledger.Ledger
	detector *Detector
}

func fixtures(t *testing.T) map[string]fixture {
	t.Helper()
	out := map[string]fixture{}

	memClock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	memLedger := ledger.New(ledger.NewMemoryStore(128, time.Hour), ledger.Config{}, memClock.Now)
	out["memory"] = fixture{
		clock:    memClock,
		ledger:   memLedger,
		detector: NewDetector(NewMemoryStore(128, time.Hour), memLedger, DefaultConfig(), memClock.Now),
	}

	redisClock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store, rdb := newRedisStoreTest(t)
	redisLedger := ledger.New(ledger.NewRedisStore(rdb, "test"), ledger.Config{}, redisClock.Now)
	out["redis"] = fixture{
		clock:    redisClock,
		ledger:   redisLedger,
		detector: NewDetector(store, redisLedger, DefaultConfig(), redisClock.Now),
	}
	return out
}

func record(t *testing.T, f fixture, a ledger.Attempt) Observation {
	t.Helper()
	ctx := context.Background()
	stamped, err := f.ledger.Record(ctx, a)
	if err != nil {
		t.Fatalf("ledger record: %v", err)
	}
	obs, err := f.detector.ObserveAttempt(ctx, stamped)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	return obs
}

func TestDetectorFlagsRepeatedFailures(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			var obs Observation
			for i := 0; i < 5; i++ {
				obs = record(t, f, ledger.Attempt{Key: "k", Address: "10.0.0.1", DeviceSignature: "ua"})
				f.clock.Advance(time.Second)
			}
			if len(obs.Fired) != 1 || obs.Fired[0] != TagMultipleFailedLogins {
				t.Fatalf("expected multiple_failed_logins, got %v", obs.Fired)
			}
			if obs.Record.Score != 20 {
				t.Fatalf("expected score 20, got %d", obs.Record.Score)
			}
			if !obs.Record.HasTag(TagMultipleFailedLogins) {
				t.Fatalf("expected tag on record, got %v", obs.Record.Tags)
			}
		})
	}
}

func TestDetectorFlagsRapidRequests(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			var obs Observation
			for i := 0; i < 10; i++ {
				obs = record(t, f, ledger.Attempt{Key: "k", Address: "10.0.0.2", DeviceSignature: "ua", Success: true})
			}
			if len(obs.Fired) != 1 || obs.Fired[0] != TagRapidRequests {
				t.Fatalf("expected rapid_requests, got %v", obs.Fired)
			}
			if obs.Record.Score != 15 {
				t.Fatalf("expected score 15, got %d", obs.Record.Score)
			}
		})
	}
}

func TestDetectorFlagsDeviceChurn(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			var obs Observation
			for i := 0; i < 4; i++ {
				obs = record(t, f, ledger.Attempt{
					Key:             fmt.Sprintf("k%d", i),
					Address:         "10.0.0.3",
					DeviceSignature: fmt.Sprintf("device-%d", i),
					Success:         true,
				})
			}
			if len(obs.Fired) != 1 || obs.Fired[0] != TagAnomalousBehavior {
				t.Fatalf("expected anomalous_behavior, got %v", obs.Fired)
			}
			if obs.Record.Score != 10 {
				t.Fatalf("expected score 10, got %d", obs.Record.Score)
			}
		})
	}
}

func TestDetectorScoreCapsAtMaximum(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				if _, err := f.detector.ObserveHijack(ctx, "10.0.0.4"); err != nil {
					t.Fatalf("hijack: %v", err)
				}
			}
			score, err := f.detector.Score(ctx, "10.0.0.4")
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if score != 100 {
				t.Fatalf("expected capped score 100, got %d", score)
			}
		})
	}
}

func TestDetectorRecordExpiresAfterTTL(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := f.detector.ObserveConcurrentBreach(ctx, "10.0.0.5"); err != nil {
				t.Fatalf("breach: %v", err)
			}
			f.clock.Advance(30 * time.Minute)
			if _, err := f.detector.ObserveConcurrentBreach(ctx, "10.0.0.5"); err != nil {
				t.Fatalf("breach: %v", err)
			}
			if score, _ := f.detector.Score(ctx, "10.0.0.5"); score != 30 {
				t.Fatalf("expected 30 after two breaches, got %d", score)
			}

			f.clock.Advance(61 * time.Minute)
			if score, _ := f.detector.Score(ctx, "10.0.0.5"); score != 0 {
				t.Fatalf("expected expired record to read 0, got %d", score)
			}

			rec, err := f.detector.ObserveHijack(ctx, "10.0.0.5")
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			if rec.Score != 30 || rec.HasTag(TagConcurrentSessionsExceeded) {
				t.Fatalf("expected fresh record after expiry, got %+v", rec)
			}
		})
	}
}

func TestDetectorIgnoresEmptyAddress(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := f.detector.ObserveHijack(context.Background(), "")
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			if rec.Score != 0 {
				t.Fatalf("expected no record for empty address, got %+v", rec)
			}
		})
	}
}

func TestDetectorClear(t *testing.T) {
	for name, f := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := f.detector.ObserveHijack(ctx, "10.0.0.6"); err != nil {
				t.Fatalf("hijack: %v", err)
			}
			if err := f.detector.Clear(ctx, "10.0.0.6"); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, ok, _ := f.detector.Lookup(ctx, "10.0.0.6"); ok {
				t.Fatalf("expected record cleared")
			}
		})
	}
}
