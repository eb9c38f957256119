package engine_test

import (
	"context"
	"sync"
	"time"

	"github.com/planarena/planarena/pkg/engine"
)

// fixedScorer returns a canned decision regardless of the trial counters.
type fixedScorer struct {
	decision *engine.RankingDecision
	err      error
}

func (s *fixedScorer) Rank(candidates []*engine.Candidate) (*engine.RankingDecision, error) {
	return s.decision, s.err
}

// recordingCache captures plan cache traffic for assertions.
type recordingCache struct {
	mu      sync.Mutex
	puts    []recordedPut
	evicts  []engine.QueryShape
	putErr  error
	entries map[uint64]*engine.CachedPlan
}

type recordedPut struct {
	shape     engine.QueryShape
	solutions []*engine.Solution
	decision  *engine.RankingDecision
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[uint64]*engine.CachedPlan)}
}

func (c *recordingCache) Put(ctx context.Context, shape engine.QueryShape, solutions []*engine.Solution, decision *engine.RankingDecision, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	c.puts = append(c.puts, recordedPut{shape: shape, solutions: solutions, decision: decision})
	return nil
}

func (c *recordingCache) Get(ctx context.Context, shape engine.QueryShape) (*engine.CachedPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[shape.Hash], nil
}

func (c *recordingCache) Evict(ctx context.Context, shape engine.QueryShape) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicts = append(c.evicts, shape)
	return nil
}

func (c *recordingCache) Clear(ctx context.Context) error { return nil }

func (c *recordingCache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puts), nil
}

func (c *recordingCache) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puts)
}

func (c *recordingCache) evictCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evicts)
}

// scriptedYieldPolicy drives the yield protocol from a test.
type scriptedYieldPolicy struct {
	shouldYield bool
	autoYield   bool
	yieldErr    error
	yields      int
	forced      int
}

func (p *scriptedYieldPolicy) ShouldYield() bool { return p.shouldYield }

func (p *scriptedYieldPolicy) Yield(ctx context.Context) error {
	p.yields++
	p.shouldYield = false
	return p.yieldErr
}

func (p *scriptedYieldPolicy) CanAutoYield() bool { return p.autoYield }

func (p *scriptedYieldPolicy) ForceYield() {
	p.forced++
	p.shouldYield = true
}

// solution builds a minimal cacheable solution.
func solution(summary string, blocking bool) *engine.Solution {
	return &engine.Solution{
		PlanSummary: summary,
		Blocking:    blocking,
		CacheData:   &engine.SolutionCacheData{PlanID: summary},
	}
}

// closeCounter wraps a PlanRoot and counts Close calls.
type closeCounter struct {
	engine.PlanRoot
	closed int
	err    error
}

func (c *closeCounter) Close() error {
	c.closed++
	if c.err != nil {
		return c.err
	}
	return c.PlanRoot.Close()
}

var _ engine.PlanCache = (*recordingCache)(nil)
var _ engine.Scorer = (*fixedScorer)(nil)
var _ engine.YieldPolicy = (*scriptedYieldPolicy)(nil)
