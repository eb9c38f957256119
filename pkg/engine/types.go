package engine

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/planarena/planarena/pkg/workspace"
)

// WorkStatus is the outcome of asking a plan root for one unit of work.
// The whole trial executor is a switch over this value, so the set is closed:
// every plan stage must map its internal condition onto one of these five.
type WorkStatus int

const (
	// StatusAdvanced indicates the plan produced a result; the accompanying
	// member ID refers to it.
	StatusAdvanced WorkStatus = iota

	// StatusNeedTime indicates the plan did internal work but has nothing to
	// return yet. The caller should simply come back later.
	StatusNeedTime

	// StatusNeedYield indicates the plan hit a concurrency conflict and the
	// entire operation must suspend and retry through the yield policy before
	// any further work.
	StatusNeedYield

	// StatusEOF indicates the plan will never produce another result.
	StatusEOF

	// StatusFailure indicates the plan failed. The accompanying member ID is
	// a status member carrying the diagnostic.
	StatusFailure
)

// String returns the wire-stable name of the status.
func (s WorkStatus) String() string {
	switch s {
	case StatusAdvanced:
		return "advanced"
	case StatusNeedTime:
		return "need_time"
	case StatusNeedYield:
		return "need_yield"
	case StatusEOF:
		return "eof"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("work_status(%d)", int(s))
	}
}

// CachingMode controls whether a winning plan may be committed to the plan
// cache after the trial.
type CachingMode string

const (
	// CacheAlways commits unconditionally, subject only to shape eligibility
	// and cache-metadata validity.
	CacheAlways CachingMode = "always"

	// CacheSometimes commits unless the trial ended in a tie for best or the
	// winner produced zero results.
	CacheSometimes CachingMode = "sometimes"

	// CacheNever never commits.
	CacheNever CachingMode = "never"
)

// Validate checks if the caching mode is valid.
func (m CachingMode) Validate() error {
	switch m {
	case CacheAlways, CacheSometimes, CacheNever:
		return nil
	default:
		return fmt.Errorf("invalid caching mode: %s", m)
	}
}

// QueryShape identifies the structural form of a query independent of its
// constant values. It is the plan cache key.
type QueryShape struct {
	// Key is the canonical string form of the shape.
	Key string `json:"key"`

	// Hash is the xxhash of Key, used as the cache lookup key.
	Hash uint64 `json:"hash"`

	// Hinted is true when the query carries an explicit index hint. Hinted
	// queries bypass the plan cache under the default shape predicate.
	Hinted bool `json:"hinted,omitempty"`
}

// NewQueryShape builds a shape from its canonical key.
func NewQueryShape(key string) QueryShape {
	return QueryShape{Key: key, Hash: xxhash.Sum64String(key)}
}

// SolutionCacheData is the cache-relevant metadata a solution carries. A
// solution without it cannot participate in a plan cache entry; if even one
// candidate in a decision lacks it, the whole decision is not cached.
type SolutionCacheData struct {
	// PlanID identifies the plan choice for later reconstruction.
	PlanID string `json:"plan_id"`

	// IndexName is the access-path index, empty for collection scans.
	IndexName string `json:"index_name,omitempty"`
}

// Solution describes one execution strategy for a query. The engine treats it
// as opaque apart from the two fields that drive arbitration: whether its
// initial phase is blocking, and whether it carries cache metadata.
type Solution struct {
	// PlanSummary is a short human-readable description of the strategy.
	PlanSummary string `json:"plan_summary"`

	// Blocking is true when the solution has a blocking initial phase: no
	// results can surface until some internal buffering or sorting step has
	// consumed its entire input.
	Blocking bool `json:"blocking"`

	// CacheData is the cache-relevant metadata, nil when the solution shape
	// cannot be represented in the cache.
	CacheData *SolutionCacheData `json:"cache_data,omitempty"`
}

// RankingDecision is the scorer's verdict over the surviving candidates.
// Order and Scores are parallel, best to worst; Order holds indices into the
// original candidate registration order.
type RankingDecision struct {
	// Order is a permutation of the non-failed candidate indices, best first.
	Order []int `json:"order"`

	// Scores are the numeric scores in the same order as Order.
	Scores []float64 `json:"scores"`

	// TieForBest is true when the best and runner-up scores are equal under
	// the scorer's tie rule.
	TieForBest bool `json:"tie_for_best"`
}

// WinnerIndex returns the index of the winning candidate.
func (d *RankingDecision) WinnerIndex() int {
	return d.Order[0]
}

// Validate checks the structural invariants of the decision.
func (d *RankingDecision) Validate() error {
	if len(d.Order) == 0 {
		return fmt.Errorf("ranking decision has no candidates")
	}
	if len(d.Order) != len(d.Scores) {
		return fmt.Errorf("ranking decision order/scores length mismatch: %d vs %d",
			len(d.Order), len(d.Scores))
	}
	if d.TieForBest && len(d.Order) < 2 {
		return fmt.Errorf("ranking decision claims a tie with fewer than two candidates")
	}
	return nil
}

// CachedPlan is one plan cache entry: the decision and the cache metadata of
// every candidate solution, best to worst.
type CachedPlan struct {
	// Shape is the query shape this entry was stored under.
	Shape QueryShape `json:"shape"`

	// Solutions is the cache metadata of each candidate, best first.
	Solutions []*SolutionCacheData `json:"solutions"`

	// Decision is the full ranking decision that produced this entry.
	Decision *RankingDecision `json:"decision"`

	// CreatedAt is the commit timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// CandidateStats are the per-candidate counters accumulated during the trial.
// The scorer and the diagnostics snapshot both consume them.
type CandidateStats struct {
	// Works counts units of work requested from this candidate.
	Works uint64 `json:"works"`

	// Advances counts results the candidate produced.
	Advances uint64 `json:"advances"`

	// Yields counts suspensions taken at this candidate's turn.
	Yields uint64 `json:"yields"`

	// ReachedEOF is true once the candidate reported completion.
	ReachedEOF bool `json:"reached_eof"`
}

// Candidate pairs one solution with its runnable plan root and trial state.
// The slot exclusively owns its root and workspace and is responsible for
// tearing the root down.
type Candidate struct {
	// Solution describes the strategy this candidate realizes.
	Solution *Solution

	// Root is the runnable plan-stage chain.
	Root PlanRoot

	// WS is the candidate's private intermediate-result store.
	WS *workspace.Workspace

	// Stats are the trial counters for this candidate.
	Stats CandidateStats

	// results is the FIFO queue of produced-but-unreturned member IDs.
	results []workspace.MemberID

	// failed is set once and never cleared; a failed candidate is skipped in
	// all future trial rounds.
	failed bool
}

// Failed reports whether the candidate has failed during the trial.
func (c *Candidate) Failed() bool {
	return c.failed
}

// MarkFailed permanently excludes the candidate from future trial rounds
// and from ranking. The flag is never cleared.
func (c *Candidate) MarkFailed() {
	c.failed = true
}

// Buffered returns the number of produced results not yet returned.
func (c *Candidate) Buffered() int {
	return len(c.results)
}

// pushResult appends a produced result to the buffer.
func (c *Candidate) pushResult(id workspace.MemberID) {
	c.results = append(c.results, id)
}

// popResult removes and returns the oldest buffered result.
func (c *Candidate) popResult() workspace.MemberID {
	id := c.results[0]
	c.results = c.results[1:]
	return id
}
