package session

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a session does not exist in the store.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable is returned when the Redis backend cannot be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store persists sessions and the per-user session index.
//
// Implementations must be safe for concurrent use. ttl is a reclamation hint;
// liveness is decided by the caller from the record timestamps.
type Store interface {
	// Save creates or overwrites sess and indexes it under its user.
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	// Update overwrites sess only while it is still stored and reports whether
	// it did. A deleted session is never brought back.
	Update(ctx context.Context, sess *Session) (bool, error)
	// Get returns a copy of the session or [ErrNotFound].
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Delete removes the session and reports whether it existed.
	Delete(ctx context.Context, sessionID string) (bool, error)
	// DeleteAllForUser removes every session of userID and returns how many existed.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	// ListForUser returns the stored sessions of userID in no particular order.
	ListForUser(ctx context.Context, userID string) ([]*Session, error)
	// Count returns the approximate number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// SortByActivity orders sessions most recently active first.
func SortByActivity(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})
}
