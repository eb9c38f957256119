package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/planarena/planarena/pkg/workspace"
)

// noSuchPlan is the sentinel for "no index chosen".
const noSuchPlan = -1

// Options configures a MultiPlan for one query execution.
type Options struct {
	// Shape is the query's shape, used as the plan cache key.
	Shape QueryShape

	// Mode is the cache-commit mode. Defaults to CacheSometimes.
	Mode CachingMode

	// WorkFloor is the minimum trial round budget. Defaults to
	// DefaultWorkFloor.
	WorkFloor int

	// CollectionFraction scales the round budget with collection size.
	// Defaults to DefaultCollectionFraction.
	CollectionFraction float64

	// MaxResults is the ceiling on buffered results per candidate.
	// Defaults to DefaultMaxResults.
	MaxResults int

	// CollectionRecords is the record count of the collection under query;
	// zero is treated as an empty or unknown collection.
	CollectionRecords int64

	// Limit is the query's limit or ntoreturn clause; zero means absent.
	Limit int64

	// Scorer ranks the candidates after the trial. Required.
	Scorer Scorer

	// Cache receives the winning decision when the commit policy allows.
	// Optional; a nil cache disables commit and eviction entirely.
	Cache PlanCache

	// Cacheable is the shape-eligibility predicate. Defaults to
	// DefaultShapePredicate.
	Cacheable ShapePredicate

	// Clock supplies commit timestamps. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives the trial narrative. Defaults to a disabled logger.
	Logger zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.Mode == "" {
		o.Mode = CacheSometimes
	}
	if o.WorkFloor <= 0 {
		o.WorkFloor = DefaultWorkFloor
	}
	if o.CollectionFraction <= 0 {
		o.CollectionFraction = DefaultCollectionFraction
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.Cacheable == nil {
		o.Cacheable = DefaultShapePredicate
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// MultiPlan runs several candidate plans for a single query competitively,
// picks a winner, optionally commits the choice to the plan cache, and then
// serves the remainder of the query from the winner (falling back to a
// backup plan if the winner fails before producing output).
//
// A MultiPlan belongs to one query execution and is not safe for concurrent
// use. The only cross-execution shared state is the plan cache.
type MultiPlan struct {
	opts Options
	log  zerolog.Logger

	trialID    string
	candidates []*Candidate
	budget     TrialBudget
	decision   *RankingDecision

	state     DispatchState
	bestIdx   int
	backupIdx int

	// failure tracking: failureID is the status member carrying the most
	// recent diagnostic, failureWS the workspace it lives in.
	failure      bool
	failureCount int
	failureID    workspace.MemberID
	failureWS    *workspace.Workspace

	totalWorks uint64
	trialStart time.Time
	trialTime  time.Duration
}

// New creates a MultiPlan. Candidates are registered with AddCandidate
// before the trial starts.
func New(opts Options) *MultiPlan {
	opts.applyDefaults()
	id := uuid.New().String()
	return &MultiPlan{
		opts:      opts,
		log:       opts.Logger.With().Str("trial_id", id).Str("shape", opts.Shape.Key).Logger(),
		trialID:   id,
		state:     StateAwaitingWinner,
		bestIdx:   noSuchPlan,
		backupIdx: noSuchPlan,
	}
}

// AddCandidate registers one candidate plan. The MultiPlan takes ownership
// of the root and the workspace; both live until Close so that losing plans
// remain inspectable for diagnostics.
func (m *MultiPlan) AddCandidate(sol *Solution, root PlanRoot, ws *workspace.Workspace) {
	m.candidates = append(m.candidates, &Candidate{
		Solution: sol,
		Root:     root,
		WS:       ws,
	})
}

// BestPlanChosen reports whether the trial has completed and a winner is in
// effect.
func (m *MultiPlan) BestPlanChosen() bool {
	return m.bestIdx != noSuchPlan
}

// BestIdx returns the winner's index, or -1 before the trial completes.
func (m *MultiPlan) BestIdx() int {
	return m.bestIdx
}

// BestSolution returns the winning solution, or nil before the trial
// completes.
func (m *MultiPlan) BestSolution() *Solution {
	if m.bestIdx == noSuchPlan {
		return nil
	}
	return m.candidates[m.bestIdx].Solution
}

// HasBackup reports whether a backup plan is currently installed.
func (m *MultiPlan) HasBackup() bool {
	return m.backupIdx != noSuchPlan
}

// Decision returns the ranking decision, or nil before the trial completes.
func (m *MultiPlan) Decision() *RankingDecision {
	return m.decision
}

// FailureStatus returns the classified error carried by the most recent
// failure, or nil when no terminal failure has occurred.
func (m *MultiPlan) FailureStatus() error {
	if !m.failure || m.failureWS == nil {
		return nil
	}
	return m.failureWS.StatusOf(m.failureID)
}

// recordFailure notes the most recent failure diagnostic. Not necessarily
// the first: later failures overwrite earlier ones.
func (m *MultiPlan) recordFailure(ws *workspace.Workspace, id workspace.MemberID) {
	m.failureID = id
	m.failureWS = ws
}

// Close tears down every candidate's plan chain, winners and losers alike.
func (m *MultiPlan) Close() error {
	var errs *multierror.Error
	for _, cand := range m.candidates {
		if err := cand.Root.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
