package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/planarena/planarena/pkg/engine"
)

// DefaultMaxEntries bounds the in-memory cache when no size is configured.
const DefaultMaxEntries = 5000

// Memory is a bounded in-memory plan cache with LRU eviction, keyed by the
// shape hash.
type Memory struct {
	entries *lru.Cache[uint64, *engine.CachedPlan]
}

// NewMemory creates an in-memory cache holding at most maxEntries decisions.
// A non-positive size falls back to DefaultMaxEntries.
func NewMemory(maxEntries int) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[uint64, *engine.CachedPlan](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating lru: %w", err)
	}
	return &Memory{entries: entries}, nil
}

// Put implements engine.PlanCache.
func (m *Memory) Put(ctx context.Context, shape engine.QueryShape, solutions []*engine.Solution, decision *engine.RankingDecision, now time.Time) error {
	entry, err := newEntry(shape, solutions, decision, now)
	if err != nil {
		return err
	}
	m.entries.Add(shape.Hash, entry)
	return nil
}

// Get implements engine.PlanCache. A miss returns (nil, nil).
func (m *Memory) Get(ctx context.Context, shape engine.QueryShape) (*engine.CachedPlan, error) {
	entry, ok := m.entries.Get(shape.Hash)
	if !ok || entry.Shape.Key != shape.Key {
		return nil, nil
	}
	return entry, nil
}

// Evict implements engine.PlanCache.
func (m *Memory) Evict(ctx context.Context, shape engine.QueryShape) error {
	m.entries.Remove(shape.Hash)
	return nil
}

// Clear implements engine.PlanCache.
func (m *Memory) Clear(ctx context.Context) error {
	m.entries.Purge()
	return nil
}

// Len implements engine.PlanCache.
func (m *Memory) Len(ctx context.Context) (int, error) {
	return m.entries.Len(), nil
}

// newEntry validates the decision inputs and builds a cache entry with the
// solutions' cache metadata in best-to-worst order.
func newEntry(shape engine.QueryShape, solutions []*engine.Solution, decision *engine.RankingDecision, now time.Time) (*engine.CachedPlan, error) {
	if decision == nil {
		return nil, fmt.Errorf("cache: nil ranking decision")
	}
	if len(solutions) != len(decision.Order) {
		return nil, fmt.Errorf("cache: %d solutions for a decision over %d candidates",
			len(solutions), len(decision.Order))
	}
	data := make([]*engine.SolutionCacheData, 0, len(solutions))
	for ix, sol := range solutions {
		if sol.CacheData == nil {
			return nil, fmt.Errorf("cache: solution %d (%s) has no cache data", ix, sol.PlanSummary)
		}
		data = append(data, sol.CacheData)
	}
	return &engine.CachedPlan{
		Shape:     shape,
		Solutions: data,
		Decision:  decision,
		CreatedAt: now,
	}, nil
}
