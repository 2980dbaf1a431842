package authtoken

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. Used in tests and
// single-process deployments; production setups use PostgresStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by jti, which is globally unique
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.JTI]; exists {
		return ErrDuplicateJTI
	}
	cp := *s
	m.sessions[s.JTI] = &cp
	return nil
}

func (m *MemoryStore) Find(_ context.Context, userID, jti string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[jti]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Revoke(_ context.Context, userID, jti string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[jti]
	if !ok || s.UserID != userID || s.RevokedAt != nil {
		return false, nil
	}
	t := at
	s.RevokedAt = &t
	return true, nil
}

func (m *MemoryStore) RevokeAll(_ context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[jti]; ok && s.UserID == userID {
		delete(m.sessions, jti)
	}
	return nil
}

func (m *MemoryStore) ListActive(_ context.Context, userID string, now time.Time) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil && s.ExpiresAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Purge(_ context.Context, now time.Time, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-retention)
	var n int64
	for jti, s := range m.sessions {
		expired := !s.ExpiresAt.After(now)
		stale := s.RevokedAt != nil && s.RevokedAt.Before(cutoff)
		if expired || stale {
			delete(m.sessions, jti)
			n++
		}
	}
	return n, nil
}
