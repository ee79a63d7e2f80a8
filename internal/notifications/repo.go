package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository stores delivered notices per scope.
type Repository interface {
	Add(ctx context.Context, notice Notice) error
	List(ctx context.Context, scope string, now time.Time) ([]Notice, error)
	Dismiss(ctx context.Context, scope, id string) (bool, error)
}

// MaxPerScope bounds how many notices one scope keeps.
const MaxPerScope = 50

type memoryRepository struct {
	mu      sync.Mutex
	notices map[string][]Notice
}

// NewMemoryRepository keeps notices in process memory. Expired notices are
// pruned whenever the scope is read; a full scope evicts its oldest
// non-blocking notice, or its oldest notice when every one blocks.
func NewMemoryRepository() Repository {
	return &memoryRepository{notices: make(map[string][]Notice)}
}

func (r *memoryRepository) Add(_ context.Context, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notices := append(r.notices[notice.Scope], notice)
	for len(notices) > MaxPerScope {
		notices = evictOldest(notices)
	}
	r.notices[notice.Scope] = notices
	return nil
}

func evictOldest(notices []Notice) []Notice {
	victim := -1
	for i, n := range notices {
		if n.Blocking {
			continue
		}
		if victim < 0 || n.CreatedAt.Before(notices[victim].CreatedAt) {
			victim = i
		}
	}
	if victim < 0 {
		for i, n := range notices {
			if victim < 0 || n.CreatedAt.Before(notices[victim].CreatedAt) {
				victim = i
			}
		}
	}
	return append(notices[:victim], notices[victim+1:]...)
}

func (r *memoryRepository) List(_ context.Context, scope string, now time.Time) ([]Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.notices[scope][:0]
	for _, n := range r.notices[scope] {
		if !n.Expired(now) {
			live = append(live, n)
		}
	}
	if len(live) == 0 {
		delete(r.notices, scope)
		return []Notice{}, nil
	}
	r.notices[scope] = live

	out := make([]Notice, len(live))
	copy(out, live)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Dismiss(_ context.Context, scope, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	notices := r.notices[scope]
	for i, n := range notices {
		if n.ID == id {
			r.notices[scope] = append(notices[:i], notices[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
