package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps attempt lists in process memory, bounded to a fixed number
// of identities with least-recently-used eviction.
type MemoryStore struct {
	mu       sync.Mutex
	attempts *expirable.LRU[string, []Attempt]
	devices  *expirable.LRU[string, map[string]time.Time]
}

// NewMemoryStore creates a [MemoryStore] holding at most size identities and
// size addresses. ttl is the idle lifetime of an entry.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{
		attempts: expirable.NewLRU[string, []Attempt](size, nil, ttl),
		devices:  expirable.NewLRU[string, map[string]time.Time](size, nil, ttl),
	}
}

func (s *MemoryStore) Append(_ context.Context, key string, a Attempt, max int, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _ := s.attempts.Get(key)
	next := make([]Attempt, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, a)
	if max > 0 && len(next) > max {
		next = next[len(next)-max:]
	}
	s.attempts.Add(key, next)
	return nil
}

func (s *MemoryStore) List(_ context.Context, key string) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.attempts.Peek(key)
	if !ok {
		return nil, nil
	}
	out := make([]Attempt, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryStore) TrackDevice(_ context.Context, address, device string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _ := s.devices.Get(address)
	next := make(map[string]time.Time, len(prev)+1)
	for d, seen := range prev {
		// drop devices that can no longer count toward any window
		if ttl > 0 && at.Sub(seen) > ttl {
			continue
		}
		next[d] = seen
	}
	if seen, ok := next[device]; !ok || at.After(seen) {
		next[device] = at
	}
	s.devices.Add(address, next)
	return nil
}

func (s *MemoryStore) DistinctDevices(_ context.Context, address string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, ok := s.devices.Peek(address)
	if !ok {
		return 0, nil
	}
	n := 0
	for _, at := range seen {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}
