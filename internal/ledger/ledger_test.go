package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newRedisStoreTest(t *testing.T) *RedisStore {
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
	return NewRedisStore(rdb, "test")
}

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(128, time.Hour),
		"redis":  newRedisStoreTest(t),
	}
}

func TestLedgerKeepsNewestEntriesOnly(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			l := New(store, Config{MaxPerIdentity: 20, Window: time.Hour}, clock.Now)
			ctx := context.Background()

			for i := 0; i < 25; i++ {
				if _, err := l.Record(ctx, Attempt{Key: "k1", Reason: fmt.Sprint(i)}); err != nil {
					t.Fatalf("record %d: %v", i, err)
				}
				clock.Advance(time.Second)
			}

			recent, err := l.Recent(ctx, "k1")
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(recent) != 20 {
				t.Fatalf("expected 20 entries, got %d", len(recent))
			}
			if recent[0].Reason != "5" || recent[19].Reason != "24" {
				t.Fatalf("expected entries 5..24, got %q..%q", recent[0].Reason, recent[19].Reason)
			}
		})
	}
}

func TestLedgerDropsEntriesOutsideWindow(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			l := New(store, Config{MaxPerIdentity: 20, Window: time.Hour}, clock.Now)
			ctx := context.Background()

			if _, err := l.Record(ctx, Attempt{Key: "k1"}); err != nil {
				t.Fatalf("record: %v", err)
			}
			clock.Advance(59 * time.Minute)
			if _, err := l.Record(ctx, Attempt{Key: "k1", Success: true}); err != nil {
				t.Fatalf("record: %v", err)
			}
			clock.Advance(2 * time.Minute)

			recent, err := l.Recent(ctx, "k1")
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(recent) != 1 || !recent[0].Success {
				t.Fatalf("expected only the newer attempt, got %+v", recent)
			}
		})
	}
}

func TestLedgerDistinctDevices(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			l := New(store, Config{MaxPerIdentity: 20, Window: time.Hour}, clock.Now)
			ctx := context.Background()

			for i := 0; i < 4; i++ {
				a := Attempt{Key: fmt.Sprintf("10.0.0.1|ua-%d", i), Address: "10.0.0.1", DeviceSignature: fmt.Sprintf("ua-%d", i)}
				if _, err := l.Record(ctx, a); err != nil {
					t.Fatalf("record: %v", err)
				}
			}
			// repeat device does not count twice
			if _, err := l.Record(ctx, Attempt{Key: "10.0.0.1|ua-0", Address: "10.0.0.1", DeviceSignature: "ua-0"}); err != nil {
				t.Fatalf("record: %v", err)
			}

			n, err := l.DistinctDevices(ctx, "10.0.0.1")
			if err != nil {
				t.Fatalf("distinct: %v", err)
			}
			if n != 4 {
				t.Fatalf("expected 4 devices, got %d", n)
			}

			clock.Advance(2 * time.Hour)
			n, err = l.DistinctDevices(ctx, "10.0.0.1")
			if err != nil {
				t.Fatalf("distinct: %v", err)
			}
			if n != 0 {
				t.Fatalf("expected devices to age out, got %d", n)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	attempts := []Attempt{
		{At: base.Add(-20 * time.Minute)},
		{At: base.Add(-10 * time.Minute)},
		{At: base.Add(-5 * time.Minute), Success: true},
		{At: base.Add(-time.Minute)},
	}

	s := Summarize(attempts, base.Add(-15*time.Minute))
	if s.Total != 3 || s.Failures != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !s.LastFailure.Equal(base.Add(-time.Minute)) {
		t.Fatalf("unexpected last failure %v", s.LastFailure)
	}
}
