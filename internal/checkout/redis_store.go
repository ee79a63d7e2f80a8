package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/luvwish-checkout/pkg/redis"
)

const (
	sessionLockTTL     = 5 * time.Second
	sessionLockWait    = 3 * time.Second
	sessionLockBackoff = 10 * time.Millisecond
)

type sessionBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
	SessionKey(userID string) string
	SessionLockKey(userID string) string
}

var _ sessionBackend = (*redis.Client)(nil)

type redisStore struct {
	backend sessionBackend
	ttl     time.Duration
	now     func() time.Time
}

// NewRedisStore shares sessions between service instances. Updates are
// serialized by a short-lived per-user lock key.
func NewRedisStore(client *redis.Client, ttl time.Duration) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newRedisStore(client, ttl), nil
}

func newRedisStore(backend sessionBackend, ttl time.Duration) *redisStore {
	return &redisStore{backend: backend, ttl: ttl, now: time.Now}
}

func (r *redisStore) Load(ctx context.Context, userID string) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, fmt.Errorf("session user id required")
	}
	return r.read(ctx, userID)
}

func (r *redisStore) Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, fmt.Errorf("session user id required")
	}
	lockKey := r.backend.SessionLockKey(userID)
	token, err := r.lock(ctx, lockKey)
	if err != nil {
		return Session{}, err
	}
	defer func() {
		_, _ = r.backend.ReleaseIfOwner(context.WithoutCancel(ctx), lockKey, token)
	}()

	sess, err := r.read(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&sess); err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = r.now().UTC()

	payload, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := r.backend.Set(ctx, r.backend.SessionKey(userID), payload, r.ttl); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (r *redisStore) lock(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	deadline := time.NewTimer(sessionLockWait)
	defer deadline.Stop()
	for {
		ok, err := r.backend.SetNX(ctx, key, token, sessionLockTTL)
		if err != nil {
			return "", fmt.Errorf("lock session: %w", err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("lock session: timed out")
		case <-time.After(sessionLockBackoff):
		}
	}
}

func (r *redisStore) read(ctx context.Context, userID string) (Session, error) {
	raw, err := r.backend.Get(ctx, r.backend.SessionKey(userID))
	if redis.IsNil(err) {
		return newSession(userID), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// cloneSession deep-copies s through its stored encoding.
func cloneSession(s Session) (Session, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(payload, &out); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return out, nil
}
