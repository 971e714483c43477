// Package auth handles the Google OAuth front door and dashboard sessions.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ykihara/commentguard/internal/service"
)

// MemorySessionStore is the single-instance session backing. Expiry is
// checked on every read; a sweep goroutine reclaims dead entries. Multi-
// instance deployments swap in an external store behind the same interface.
type MemorySessionStore struct {
	sessions map[string]service.Session
	stopCh   chan struct{}
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewMemorySessionStore creates a session store with the given TTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}

	store := &MemorySessionStore{
		sessions: make(map[string]service.Session),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	go store.sweep()

	return store
}

// Create stores a new session and returns its opaque ID.
func (s *MemorySessionStore) Create(session service.Session) (string, error) {
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(s.ttl)
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return id, nil
}

// Get returns the session if it exists and has not expired.
func (s *MemorySessionStore) Get(sessionID string) (*service.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, false
	}
	return &session, true
}

// Delete removes the session.
func (s *MemorySessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// sweep periodically removes expired sessions.
func (s *MemorySessionStore) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, session := range s.sessions {
				if now.After(session.ExpiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine.
func (s *MemorySessionStore) Close() {
	close(s.stopCh)
}
