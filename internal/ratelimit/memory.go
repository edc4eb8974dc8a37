package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryGate is a fixed-window counter gate for single-instance deployments
// and tests. Exactly N requests are admitted per window; the counter resets
// on window rollover.
type MemoryGate struct {
	budgets Budgets
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

var _ Gate = (*MemoryGate)(nil)

// NewMemoryGate constructs a gate with the given per-endpoint budgets.
func NewMemoryGate(budgets Budgets) *MemoryGate {
	return &MemoryGate{
		budgets: budgets,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Admit counts the request against the (identity, endpoint) window.
func (g *MemoryGate) Admit(_ context.Context, identity, endpoint string) (Decision, error) {
	budget, ok := g.budgets[endpoint]
	if !ok || budget.Requests <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := endpoint + ":" + identity
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[key]
	if !ok || now.Sub(w.start) >= budget.Window {
		g.windows[key] = &window{start: now, count: 1}
		g.sweepLocked(now)
		return Decision{Allowed: true}, nil
	}

	if w.count >= budget.Requests {
		return Decision{Allowed: false, RetryAfter: budget.Window - now.Sub(w.start)}, nil
	}
	w.count++
	return Decision{Allowed: true}, nil
}

// sweepLocked drops stale windows so the map does not grow unbounded. Runs
// only when a new window is created, which keeps the hot path cheap.
func (g *MemoryGate) sweepLocked(now time.Time) {
	for key, w := range g.windows {
		endpoint, _, _ := strings.Cut(key, ":")
		budget, ok := g.budgets[endpoint]
		if !ok || now.Sub(w.start) >= budget.Window {
			delete(g.windows, key)
		}
	}
}
