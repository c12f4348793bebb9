package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process [Store] bounded by entry count and TTL.
type MemoryStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	users    *expirable.LRU[string, map[string]struct{}]
}

// NewMemoryStore creates a [MemoryStore] holding at most size sessions for ttl.
// The per-call ttl passed to Save is ignored in favour of this one.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, *Session](size, nil, ttl),
		users:    expirable.NewLRU[string, map[string]struct{}](size, nil, ttl),
	}
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := sess.Clone()
	stored.SchemaVersion = CurrentSchemaVersion
	s.sessions.Add(sess.SessionID, stored)

	ids, ok := s.users.Get(sess.UserID)
	if !ok {
		ids = make(map[string]struct{})
	}
	ids[sess.SessionID] = struct{}{}
	s.users.Add(sess.UserID, ids)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sess *Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sessions.Contains(sess.SessionID) {
		return false, nil
	}
	stored := sess.Clone()
	stored.SchemaVersion = CurrentSchemaVersion
	s.sessions.Add(sess.SessionID, stored)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Peek(sessionID)
	if !ok {
		return false, nil
	}
	s.sessions.Remove(sessionID)
	if ids, ok := s.users.Peek(sess.UserID); ok {
		delete(ids, sessionID)
		if len(ids) == 0 {
			s.users.Remove(sess.UserID)
		}
	}
	return true, nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.users.Peek(userID)
	if !ok {
		return 0, nil
	}
	removed := 0
	for id := range ids {
		if s.sessions.Remove(id) {
			removed++
		}
	}
	s.users.Remove(userID)
	return removed, nil
}

func (s *MemoryStore) ListForUser(_ context.Context, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.users.Peek(userID)
	if !ok {
		return []*Session{}, nil
	}
	out := make([]*Session, 0, len(ids))
	for id := range ids {
		sess, ok := s.sessions.Peek(id)
		if !ok {
			delete(ids, id)
			continue
		}
		out = append(out, sess.Clone())
	}
	if len(ids) == 0 {
		s.users.Remove(userID)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	return s.sessions.Len(), nil
}
