package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/keygate/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

// RevokeSession marks a session as revoked until ttl elapses
func (s *MemoryStore) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purge(now)

	expiry := now.Add(ttl)
	if stored, exists := s.revoked[sessionID]; exists && stored.After(expiry) {
		return nil
	}
	s.revoked[sessionID] = expiry

	return nil
}

// IsSessionRevoked checks if a session is revoked
func (s *MemoryStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, exists := s.revoked[sessionID]
	if !exists {
		return false, nil
	}

	return s.now().Before(expiry), nil
}

// purge drops entries whose revocation has lapsed. Callers hold the write lock.
func (s *MemoryStore) purge(now time.Time) {
	for id, expiry := range s.revoked {
		if !now.Before(expiry) {
			delete(s.revoked, id)
		}
	}
}
