package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store keeps checkout sessions. Update is atomic per user: fn sees the
// latest session and its result is saved only when fn returns nil. fn must
// not perform I/O.
type Store interface {
	Load(ctx context.Context, userID string) (Session, error)
	Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error)
}

type memoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

// NewMemoryStore keeps sessions in process memory; idle sessions expire
// after ttl.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

func (m *memoryStore) Load(_ context.Context, userID string) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, fmt.Errorf("session user id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.current(userID))
}

func (m *memoryStore) Update(_ context.Context, userID string, fn func(*Session) error) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, fmt.Errorf("session user id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := cloneSession(m.current(userID))
	if err != nil {
		return Session{}, err
	}
	if err := fn(&sess); err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = m.now().UTC()
	m.sessions[userID] = sess
	return cloneSession(sess)
}

// current returns the stored session or a fresh one. Callers hold mu.
func (m *memoryStore) current(userID string) Session {
	sess, ok := m.sessions[userID]
	if !ok {
		return newSession(userID)
	}
	if m.ttl > 0 && m.now().Sub(sess.UpdatedAt) > m.ttl {
		delete(m.sessions, userID)
		return newSession(userID)
	}
	return sess
}
