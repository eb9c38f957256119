package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/stage"
	"github.com/planarena/planarena/pkg/workspace"
)

// raceTwoPlans runs a two-candidate trial where the first candidate is
// clearly more productive, returning the cache traffic recorder.
func raceTwoPlans(t *testing.T, opts engine.Options) *recordingCache {
	t.Helper()

	planCache := newRecordingCache()
	opts.Cache = planCache
	opts.WorkFloor = 3
	mp := newTrial(t, opts)

	wsA := workspace.New()
	mp.AddCandidate(solution("ixscan", false),
		stage.NewQueued(wsA).PushValue("r1").PushValue("r2").PushValue("r3"), wsA)

	wsB := workspace.New()
	mp.AddCandidate(solution("collscan", false),
		stage.NewQueued(wsB).PushNeedTime().PushValue("r1").PushNeedTime(), wsB)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, 0, mp.BestIdx())
	return planCache
}

func TestCommitPolicySometimesCachesClearWinner(t *testing.T) {
	planCache := raceTwoPlans(t, engine.Options{Mode: engine.CacheSometimes})
	require.Equal(t, 1, planCache.putCount())

	// Solutions are handed to the cache best to worst.
	put := planCache.puts[0]
	require.Equal(t, "ixscan", put.solutions[0].PlanSummary)
	require.Equal(t, "collscan", put.solutions[1].PlanSummary)
	require.Equal(t, 0, put.decision.WinnerIndex())
}

func TestCommitPolicyNeverSkipsCache(t *testing.T) {
	planCache := raceTwoPlans(t, engine.Options{Mode: engine.CacheNever})
	require.Zero(t, planCache.putCount())
}

func TestCommitPolicySometimesSkipsTie(t *testing.T) {
	planCache := newRecordingCache()
	mp := newTrial(t, engine.Options{WorkFloor: 2, Cache: planCache, Mode: engine.CacheSometimes})

	// Two equally productive plans.
	for _, name := range []string{"ixscan-a", "ixscan-b"} {
		ws := workspace.New()
		mp.AddCandidate(solution(name, false),
			stage.NewQueued(ws).PushValue("r1").PushValue("r2"), ws)
	}

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.True(t, mp.Decision().TieForBest)
	require.Zero(t, planCache.putCount())
}

func TestCommitPolicyAlwaysCachesDespiteTie(t *testing.T) {
	planCache := newRecordingCache()
	mp := newTrial(t, engine.Options{WorkFloor: 2, Cache: planCache, Mode: engine.CacheAlways})

	for _, name := range []string{"ixscan-a", "ixscan-b"} {
		ws := workspace.New()
		mp.AddCandidate(solution(name, false),
			stage.NewQueued(ws).PushValue("r1").PushValue("r2"), ws)
	}

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.True(t, mp.Decision().TieForBest)
	require.Equal(t, 1, planCache.putCount())
}

func TestCommitPolicySometimesSkipsZeroResultWinner(t *testing.T) {
	planCache := newRecordingCache()
	mp := newTrial(t, engine.Options{WorkFloor: 2, Cache: planCache, Mode: engine.CacheSometimes})

	// The winner reaches EOF without producing anything; the loser does not
	// even do that.
	wsA := workspace.New()
	mp.AddCandidate(solution("empty-ixscan", false), stage.NewQueued(wsA), wsA)

	wsB := workspace.New()
	mp.AddCandidate(solution("collscan", false),
		stage.NewQueued(wsB).PushNeedTime().PushNeedTime(), wsB)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, 0, mp.BestIdx())
	require.Zero(t, planCache.putCount())
}

func TestCommitSkipsHintedShapes(t *testing.T) {
	shape := engine.NewQueryShape("find:{a:1} hint:{a:1}")
	shape.Hinted = true
	planCache := raceTwoPlans(t, engine.Options{Shape: shape, Mode: engine.CacheSometimes})
	require.Zero(t, planCache.putCount())
}

func TestCommitSkipsDecisionWithMissingCacheData(t *testing.T) {
	planCache := newRecordingCache()
	mp := newTrial(t, engine.Options{WorkFloor: 3, Cache: planCache, Mode: engine.CacheSometimes})

	wsA := workspace.New()
	mp.AddCandidate(solution("ixscan", false),
		stage.NewQueued(wsA).PushValue("r1").PushValue("r2").PushValue("r3"), wsA)

	// A candidate whose strategy cannot be represented in the cache poisons
	// the whole entry.
	uncacheable := &engine.Solution{PlanSummary: "subplan", Blocking: false}
	wsB := workspace.New()
	mp.AddCandidate(uncacheable, stage.NewQueued(wsB).PushValue("r1"), wsB)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Zero(t, planCache.putCount())
}

func TestCommitFailureDoesNotFailTheQuery(t *testing.T) {
	planCache := newRecordingCache()
	planCache.putErr = errors.New("disk full")

	mp := newTrial(t, engine.Options{WorkFloor: 3, Cache: planCache, Mode: engine.CacheAlways})

	ws := workspace.New()
	mp.AddCandidate(solution("ixscan", false),
		stage.NewQueued(ws).PushValue("r1").PushValue("r2").PushValue("r3"), ws)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, engine.StateDrainingBuffer, mp.State())
}

func TestNilCacheDisablesCommit(t *testing.T) {
	mp := newTrial(t, engine.Options{WorkFloor: 3, Mode: engine.CacheAlways})

	ws := workspace.New()
	mp.AddCandidate(solution("ixscan", false), stage.NewQueued(ws).PushValue("r1"), ws)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, 0, mp.BestIdx())
}

func TestInvalidScorerDecisionIsInternal(t *testing.T) {
	cases := []struct {
		name     string
		decision *engine.RankingDecision
		err      error
	}{
		{name: "scorer error", err: errors.New("nan score")},
		{name: "empty order", decision: &engine.RankingDecision{}},
		{name: "length mismatch", decision: &engine.RankingDecision{Order: []int{0}, Scores: []float64{1, 2}}},
		{name: "out of range winner", decision: &engine.RankingDecision{Order: []int{7}, Scores: []float64{1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mp := newTrial(t, engine.Options{
				WorkFloor: 1,
				Scorer:    &fixedScorer{decision: tc.decision, err: tc.err},
			})

			ws := workspace.New()
			mp.AddCandidate(solution("only", false), stage.NewQueued(ws).PushValue("r1"), ws)

			err := mp.PickBest(context.Background(), engine.NoopYieldPolicy{})
			require.Error(t, err)

			var engErr *engine.EngineError
			require.ErrorAs(t, err, &engErr)
			require.Equal(t, engine.ErrCodeScorerFailed, engErr.Code)
		})
	}
}
