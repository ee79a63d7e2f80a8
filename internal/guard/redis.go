package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/luvwish-checkout/pkg/redis"
)

// globalSlot is the lock name shared by every line under PolicyGlobal.
const globalSlot = "*"

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
	AddMember(ctx context.Context, key string, ttl time.Duration, members ...string) error
	RemoveMember(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
	GuardLockKey(scope, lineID string) string
	GuardBusyKey(scope string) string
}

var _ lockStore = (*redis.Client)(nil)

type redisGuard struct {
	policy Policy
	store  lockStore
	ttl    time.Duration

	// tokens holds the owner token of every lock this instance acquired.
	tokens sync.Map
}

// NewRedis returns a guard shared by every service instance. Locks expire
// after ttl so a crashed instance cannot wedge a line.
func NewRedis(client *redis.Client, policy Policy, ttl time.Duration) (Guard, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newRedisGuard(client, policy, ttl), nil
}

func newRedisGuard(store lockStore, policy Policy, ttl time.Duration) *redisGuard {
	if policy == "" {
		policy = PolicyPerLine
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisGuard{policy: policy, store: store, ttl: ttl}
}

func (g *redisGuard) Policy() Policy {
	return g.policy
}

func (g *redisGuard) lockKey(scope, lineID string) string {
	if g.policy == PolicyGlobal {
		return g.store.GuardLockKey(scope, globalSlot)
	}
	return g.store.GuardLockKey(scope, lineID)
}

func (g *redisGuard) Begin(ctx context.Context, scope, lineID string) (bool, error) {
	if err := validateArgs(scope, lineID); err != nil {
		return false, err
	}
	key := g.lockKey(scope, lineID)
	token := uuid.NewString()
	acquired, err := g.store.SetNX(ctx, key, token, g.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire line lock: %w", err)
	}
	if !acquired {
		return false, nil
	}
	g.tokens.Store(key, token)
	if err := g.store.AddMember(ctx, g.store.GuardBusyKey(scope), g.ttl, lineID); err != nil {
		g.release(ctx, key)
		return false, fmt.Errorf("mark line busy: %w", err)
	}
	return true, nil
}

func (g *redisGuard) End(ctx context.Context, scope, lineID string) error {
	if err := validateArgs(scope, lineID); err != nil {
		return err
	}
	memberErr := g.store.RemoveMember(ctx, g.store.GuardBusyKey(scope), lineID)
	if err := g.release(ctx, g.lockKey(scope, lineID)); err != nil {
		return err
	}
	if memberErr != nil {
		return fmt.Errorf("clear busy line: %w", memberErr)
	}
	return nil
}

func (g *redisGuard) release(ctx context.Context, key string) error {
	raw, ok := g.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	if _, err := g.store.ReleaseIfOwner(ctx, key, raw.(string)); err != nil {
		return fmt.Errorf("release line lock: %w", err)
	}
	return nil
}

func (g *redisGuard) InFlight(ctx context.Context, scope string) ([]string, error) {
	members, err := g.store.Members(ctx, g.store.GuardBusyKey(scope))
	if err != nil {
		return nil, fmt.Errorf("list busy lines: %w", err)
	}
	return members, nil
}
