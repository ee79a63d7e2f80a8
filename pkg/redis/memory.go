package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewInMemory returns a Client backed by a process-local map. It honours TTLs
// and is safe for concurrent use; tests of redis-backed components use it in
// place of a server.
func NewInMemory() *Client {
	return &Client{store: newMemoryStore(time.Now)}
}

type memoryEntry struct {
	value   string
	set     map[string]struct{}
	expires time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*memoryEntry
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{now: now, entries: make(map[string]*memoryEntry)}
}

// live returns the entry at key, evicting it when expired. Callers hold mu.
func (m *memoryStore) live(key string) *memoryEntry {
	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return nil
	}
	return entry
}

func (m *memoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *memoryStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &memoryEntry{value: stringify(value), expires: m.expiry(ttl)}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.live(key)
	if entry == nil || entry.set != nil {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(entry.value, nil)
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) != nil {
		return redis.NewBoolResult(false, nil)
	}
	m.entries[key] = &memoryEntry{value: stringify(value), expires: m.expiry(ttl)}
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.live(key)
	if entry == nil {
		return redis.NewBoolResult(false, nil)
	}
	entry.expires = m.expiry(ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if m.live(key) != nil {
			delete(m.entries, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *memoryStore) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.live(key)
	if entry == nil {
		entry = &memoryEntry{set: make(map[string]struct{})}
		m.entries[key] = entry
	}
	var added int64
	for _, member := range members {
		s := stringify(member)
		if _, ok := entry.set[s]; !ok {
			entry.set[s] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (m *memoryStore) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.live(key)
	if entry == nil || entry.set == nil {
		return redis.NewIntResult(0, nil)
	}
	var removed int64
	for _, member := range members {
		s := stringify(member)
		if _, ok := entry.set[s]; ok {
			delete(entry.set, s)
			removed++
		}
	}
	if len(entry.set) == 0 {
		delete(m.entries, key)
	}
	return redis.NewIntResult(removed, nil)
}

func (m *memoryStore) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.live(key)
	members := []string{}
	if entry != nil {
		for member := range entry.set {
			members = append(members, member)
		}
	}
	sort.Strings(members)
	return redis.NewStringSliceResult(members, nil)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
