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

func TestWorkDrainsBufferBeforeFreshResults(t *testing.T) {
	mp := newTrial(t, engine.Options{WorkFloor: 100, MaxResults: 3})

	ws := workspace.New()
	mp.AddCandidate(solution("winner", false),
		stage.NewQueued(ws).PushValue("r1").PushValue("r2").PushValue("r3").PushValue("fresh"), ws)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, engine.StateDrainingBuffer, mp.State())

	// The three trial results come back in production order.
	var got []interface{}
	for i := 0; i < 3; i++ {
		status, id := mp.Work(context.Background())
		require.Equal(t, engine.StatusAdvanced, status)
		value, ok := ws.Get(id)
		require.True(t, ok)
		got = append(got, value)
	}
	require.Equal(t, []interface{}{"r1", "r2", "r3"}, got)
	require.Equal(t, engine.StatePullingFresh, mp.State())

	// Then a fresh pull from the plan itself.
	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := ws.Get(id)
	require.True(t, ok)
	require.Equal(t, "fresh", value)

	// Then EOF, which is sticky.
	status, _ = mp.Work(context.Background())
	require.Equal(t, engine.StatusEOF, status)
	require.True(t, mp.EOF())
	require.Equal(t, engine.StateExhausted, mp.State())

	status, _ = mp.Work(context.Background())
	require.Equal(t, engine.StatusEOF, status)
}

func TestWorkBeforeWinnerIsAFailure(t *testing.T) {
	mp := newTrial(t, engine.Options{})

	ws := workspace.New()
	mp.AddCandidate(solution("unraced", false), stage.NewQueued(ws).PushValue("r1"), ws)

	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusFailure, status)
	require.ErrorContains(t, ws.StatusOf(id), "before a winner was chosen")
	require.True(t, mp.EOF())
	require.Equal(t, engine.StateFailed, mp.State())
}

func TestWorkSwapsToBackupWhenWinnerFails(t *testing.T) {
	planCache := newRecordingCache()
	mp := newTrial(t, engine.Options{
		WorkFloor: 1,
		Cache:     planCache,
		Mode:      engine.CacheAlways,
		Scorer: &fixedScorer{decision: &engine.RankingDecision{
			Order:  []int{0, 1},
			Scores: []float64{2.0, 1.0},
		}},
	})

	// Blocking winner that produced nothing during the trial and fails on
	// its first steady-state pull.
	wsA := workspace.New()
	mp.AddCandidate(solution("blocking-sort", true),
		stage.NewQueued(wsA).PushNeedTime().PushFailure(errors.New("sort spill failed")), wsA)

	// Non-blocking safety net.
	wsB := workspace.New()
	mp.AddCandidate(solution("collscan", false),
		stage.NewQueued(wsB).PushNeedTime().PushValue("from-backup"), wsB)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.Equal(t, 0, mp.BestIdx())
	require.True(t, mp.HasBackup())
	require.Equal(t, engine.StatePullingFresh, mp.State())
	require.Equal(t, 1, planCache.putCount())

	// The winner fails; the dispatcher swaps, evicts the now-wrong cache
	// entry, and serves from the backup in the same call.
	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := wsB.Get(id)
	require.True(t, ok)
	require.Equal(t, "from-backup", value)

	require.Equal(t, engine.StateUsingBackup, mp.State())
	require.Equal(t, 1, mp.BestIdx())
	require.False(t, mp.HasBackup())
	require.Equal(t, 1, planCache.evictCount())

	// The backup's own EOF is terminal.
	status, _ = mp.Work(context.Background())
	require.Equal(t, engine.StatusEOF, status)
	require.True(t, mp.EOF())
}

func TestWorkDropsBackupOnceWinnerProduces(t *testing.T) {
	mp := newTrial(t, engine.Options{
		WorkFloor: 1,
		Scorer: &fixedScorer{decision: &engine.RankingDecision{
			Order:  []int{0, 1},
			Scores: []float64{2.0, 1.0},
		}},
	})

	wsA := workspace.New()
	mp.AddCandidate(solution("blocking-sort", true),
		stage.NewQueued(wsA).PushNeedTime().PushValue("unblocked"), wsA)

	wsB := workspace.New()
	mp.AddCandidate(solution("collscan", false),
		stage.NewQueued(wsB).PushNeedTime().PushValue("unused"), wsB)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.True(t, mp.HasBackup())

	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := wsA.Get(id)
	require.True(t, ok)
	require.Equal(t, "unblocked", value)

	// A producing winner no longer needs its safety net.
	require.False(t, mp.HasBackup())
	require.Equal(t, engine.StatePullingFresh, mp.State())
}

func TestWorkFailureWithoutBackupIsTerminal(t *testing.T) {
	mp := newTrial(t, engine.Options{WorkFloor: 1})

	cause := errors.New("cursor invalidated")
	ws := workspace.New()
	mp.AddCandidate(solution("loner", false),
		stage.NewQueued(ws).PushNeedTime().PushFailure(cause), ws)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))
	require.False(t, mp.HasBackup())

	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusFailure, status)
	require.ErrorIs(t, ws.StatusOf(id), cause)

	require.True(t, mp.EOF())
	require.Equal(t, engine.StateFailed, mp.State())
	require.ErrorIs(t, mp.FailureStatus(), cause)

	// The failure is sticky and keeps returning the same diagnostic.
	status, again := mp.Work(context.Background())
	require.Equal(t, engine.StatusFailure, status)
	require.Equal(t, id, again)
}

func TestWorkPropagatesSuspensionStatuses(t *testing.T) {
	mp := newTrial(t, engine.Options{WorkFloor: 1})

	ws := workspace.New()
	mp.AddCandidate(solution("suspendable", false),
		stage.NewQueued(ws).PushNeedTime().PushNeedYield().PushNeedTime().PushValue("r1"), ws)

	require.NoError(t, mp.PickBest(context.Background(), engine.NoopYieldPolicy{}))

	status, _ := mp.Work(context.Background())
	require.Equal(t, engine.StatusNeedYield, status)
	require.Equal(t, engine.StatePullingFresh, mp.State())

	status, _ = mp.Work(context.Background())
	require.Equal(t, engine.StatusNeedTime, status)

	status, id := mp.Work(context.Background())
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := ws.Get(id)
	require.True(t, ok)
	require.Equal(t, "r1", value)
}

func TestDispatchStateValidation(t *testing.T) {
	for _, state := range []engine.DispatchState{
		engine.StateAwaitingWinner, engine.StateDrainingBuffer, engine.StatePullingFresh,
		engine.StateUsingBackup, engine.StateExhausted, engine.StateFailed,
	} {
		require.NoError(t, state.Validate())
	}
	require.Error(t, engine.DispatchState("limbo").Validate())

	require.True(t, engine.StateExhausted.IsTerminal())
	require.True(t, engine.StateFailed.IsTerminal())
	require.False(t, engine.StateDrainingBuffer.IsTerminal())
	require.False(t, engine.StateUsingBackup.IsTerminal())
}
