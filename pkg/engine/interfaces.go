package engine

import (
	"context"
	"time"

	"github.com/planarena/planarena/pkg/workspace"
)

// PlanRoot is the runnable realization of one candidate solution. A root
// performs exactly one unit of work per call and reports the outcome through
// the closed WorkStatus set. The member ID is meaningful only for
// StatusAdvanced (the result) and StatusFailure (a status member carrying the
// diagnostic); all other outcomes return workspace.InvalidID.
type PlanRoot interface {
	// Work performs one unit of work.
	Work(ctx context.Context) (WorkStatus, workspace.MemberID)

	// Close releases resources held by the plan chain.
	Close() error
}

// YieldPolicy is the external concurrency-control layer's view into this
// core. Before every unit of work the executor consults ShouldYield; when it
// signals, the executor calls Yield, which releases locks and snapshots,
// optionally blocks, and revalidates on resume. A non-nil error from Yield is
// a fatal interrupt: the whole operation aborts, nothing is retried.
type YieldPolicy interface {
	// ShouldYield reports whether a suspension is due (elapsed timer or
	// pending interrupt).
	ShouldYield() bool

	// Yield suspends and resumes. A non-nil error means the operation was
	// killed while suspended.
	Yield(ctx context.Context) error

	// CanAutoYield reports whether the policy permits the executor to force
	// a suspend-and-retry cycle on a concurrency conflict. When false, a
	// conflict is fatal for the operation and the caller must retry it whole.
	CanAutoYield() bool

	// ForceYield marks a yield as required so the next Yield call actually
	// suspends, regardless of timers.
	ForceYield()
}

// Scorer ranks the surviving candidates after the trial. Scoring internals
// are outside this core; the engine only applies the decision.
type Scorer interface {
	// Rank orders the non-failed candidates best to worst. Order indices
	// refer to positions in the candidates slice as passed.
	Rank(candidates []*Candidate) (*RankingDecision, error)
}

// PlanCache stores ranking decisions for query shapes. Implementations must
// be safe for concurrent use; the cache is the only state shared across
// query executions.
type PlanCache interface {
	// Put commits a decision. Solutions arrive best to worst and every one
	// of them carries cache metadata; implementations may reject otherwise.
	Put(ctx context.Context, shape QueryShape, solutions []*Solution, decision *RankingDecision, now time.Time) error

	// Get returns the entry for a shape, or nil when absent.
	Get(ctx context.Context, shape QueryShape) (*CachedPlan, error)

	// Evict removes the entry for a shape. Evicting an absent shape is not
	// an error.
	Evict(ctx context.Context, shape QueryShape) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}

// ShapePredicate decides whether a query shape is eligible for caching at
// all, independent of the caching mode.
type ShapePredicate func(shape QueryShape) bool

// DefaultShapePredicate admits every non-empty, unhinted shape.
func DefaultShapePredicate(shape QueryShape) bool {
	return shape.Key != "" && !shape.Hinted
}

// NoopYieldPolicy never yields and never permits auto-yield. It suits
// callers that hold no locks, such as tests and single-shot tools.
type NoopYieldPolicy struct{}

// ShouldYield always reports false.
func (NoopYieldPolicy) ShouldYield() bool { return false }

// Yield is a no-op.
func (NoopYieldPolicy) Yield(ctx context.Context) error { return nil }

// CanAutoYield always reports false.
func (NoopYieldPolicy) CanAutoYield() bool { return false }

// ForceYield is a no-op.
func (NoopYieldPolicy) ForceYield() {}
