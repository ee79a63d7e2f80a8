package guard

import (
	"context"
	"sort"
	"sync"
)

type memoryGuard struct {
	policy Policy
	mu     sync.Mutex
	busy   map[string]map[string]struct{}
}

// NewMemory returns a process-local guard.
func NewMemory(policy Policy) Guard {
	if policy == "" {
		policy = PolicyPerLine
	}
	return &memoryGuard{
		policy: policy,
		busy:   make(map[string]map[string]struct{}),
	}
}

func (g *memoryGuard) Policy() Policy {
	return g.policy
}

func (g *memoryGuard) Begin(_ context.Context, scope, lineID string) (bool, error) {
	if err := validateArgs(scope, lineID); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	lines := g.busy[scope]
	if g.policy == PolicyGlobal && len(lines) > 0 {
		return false, nil
	}
	if _, held := lines[lineID]; held {
		return false, nil
	}
	if lines == nil {
		lines = make(map[string]struct{})
		g.busy[scope] = lines
	}
	lines[lineID] = struct{}{}
	return true, nil
}

func (g *memoryGuard) End(_ context.Context, scope, lineID string) error {
	if err := validateArgs(scope, lineID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	lines := g.busy[scope]
	delete(lines, lineID)
	if len(lines) == 0 {
		delete(g.busy, scope)
	}
	return nil
}

func (g *memoryGuard) InFlight(_ context.Context, scope string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, len(g.busy[scope]))
	for lineID := range g.busy[scope] {
		out = append(out, lineID)
	}
	sort.Strings(out)
	return out, nil
}
