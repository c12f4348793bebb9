package suspicion

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Record is the suspicion state for one network address.
type Record struct {
	Address      string
	Score        int
	LastActivity time.Time
	ExpiresAt    time.Time
	Tags         []string
}

// HasTag reports whether tag has been observed for the address.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Store persists suspicion records.
type Store interface {
	// Get returns the live record for address. Records expired at now read as absent.
	Get(ctx context.Context, address string, now time.Time) (Record, bool, error)
	// Add raises the score by delta (capped at max), merges tags, stamps
	// LastActivity=now and ExpiresAt=now+ttl.
	Add(ctx context.Context, address string, delta, max int, tags []string, now time.Time, ttl time.Duration) (Record, error)
	// Delete forgets the record.
	Delete(ctx context.Context, address string) error
}

// MemoryStore keeps suspicion records in an LRU-bounded map with TTL.
type MemoryStore struct {
	mu      sync.Mutex
	records *expirable.LRU[string, Record]
}

// NewMemoryStore creates a [MemoryStore] bounded to size addresses.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{records: expirable.NewLRU[string, Record](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, address string, now time.Time) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records.Get(address)
	if !ok || !now.Before(rec.ExpiresAt) {
		return Record{}, false, nil
	}
	rec.Tags = append([]string(nil), rec.Tags...)
	return rec, true, nil
}

func (s *MemoryStore) Add(_ context.Context, address string, delta, max int, tags []string, now time.Time, ttl time.Duration) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records.Get(address)
	if !ok || !now.Before(rec.ExpiresAt) {
		rec = Record{Address: address}
	}
	rec.Score = capScore(rec.Score+delta, max)
	rec.LastActivity = now
	rec.ExpiresAt = now.Add(ttl)
	rec.Tags = mergeTags(rec.Tags, tags)
	s.records.Add(address, rec)

	out := rec
	out.Tags = append([]string(nil), rec.Tags...)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Remove(address)
	return nil
}

func capScore(score, max int) int {
	if score < 0 {
		return 0
	}
	if max > 0 && score > max {
		return max
	}
	return score
}

func mergeTags(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	out = append(out, existing...)
	for _, tag := range add {
		if tag == "" {
			continue
		}
		found := false
		for _, e := range out {
			if e == tag {
				found = true
				break
			}
		}
		if !found {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
