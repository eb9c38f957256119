package scorer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/scorer"
)

func candidate(summary string, works, advances uint64, eof bool) *engine.Candidate {
	return &engine.Candidate{
		Solution: &engine.Solution{PlanSummary: summary},
		Stats: engine.CandidateStats{
			Works:      works,
			Advances:   advances,
			ReachedEOF: eof,
		},
	}
}

func TestRankOrdersByProductivity(t *testing.T) {
	candidates := []*engine.Candidate{
		candidate("collscan", 10, 2, false), // 1.2
		candidate("ixscan", 10, 9, false),   // 1.9
		candidate("idhack", 10, 5, false),   // 1.5
	}

	decision, err := scorer.New().Rank(candidates)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 0}, decision.Order)
	require.Equal(t, 1, decision.WinnerIndex())
	require.False(t, decision.TieForBest)

	require.InDelta(t, 1.9, decision.Scores[0], 1e-9)
	require.InDelta(t, 1.5, decision.Scores[1], 1e-9)
	require.InDelta(t, 1.2, decision.Scores[2], 1e-9)
}

func TestRankEOFBeatsHigherThroughput(t *testing.T) {
	candidates := []*engine.Candidate{
		candidate("streaming", 10, 10, false), // 2.0
		candidate("finished", 10, 4, true),    // 1.4 + 1.0 bonus
	}

	decision, err := scorer.New().Rank(candidates)
	require.NoError(t, err)
	require.Equal(t, 1, decision.WinnerIndex())
	require.InDelta(t, 2.4, decision.Scores[0], 1e-9)
}

func TestRankDetectsTie(t *testing.T) {
	candidates := []*engine.Candidate{
		candidate("a", 10, 5, false),
		candidate("b", 10, 5, false),
	}

	decision, err := scorer.New().Rank(candidates)
	require.NoError(t, err)
	require.True(t, decision.TieForBest)

	// Equal scores keep registration order.
	require.Equal(t, []int{0, 1}, decision.Order)
}

func TestRankTieEpsilonBoundary(t *testing.T) {
	s := scorer.New()

	// A gap wider than the epsilon is not a tie.
	candidates := []*engine.Candidate{
		candidate("fast", 1000, 501, false),
		candidate("slow", 1000, 500, false),
	}
	decision, err := s.Rank(candidates)
	require.NoError(t, err)
	require.False(t, decision.TieForBest)

	// Widening the epsilon turns the same gap into a tie.
	s.TieEpsilon = 0.01
	decision, err = s.Rank(candidates)
	require.NoError(t, err)
	require.True(t, decision.TieForBest)
}

func TestRankExcludesFailedCandidates(t *testing.T) {
	broken := candidate("broken", 10, 9, false)
	broken.MarkFailed()
	candidates := []*engine.Candidate{
		broken,
		candidate("survivor", 10, 1, false),
	}

	decision, err := scorer.New().Rank(candidates)
	require.NoError(t, err)
	require.Equal(t, []int{1}, decision.Order)
	require.False(t, decision.TieForBest)
}

func TestRankAllFailed(t *testing.T) {
	a := candidate("a", 10, 5, false)
	a.MarkFailed()
	b := candidate("b", 10, 5, false)
	b.MarkFailed()

	_, err := scorer.New().Rank([]*engine.Candidate{a, b})
	require.Error(t, err)
}

func TestRankZeroWorksCandidate(t *testing.T) {
	// A candidate that never worked still gets a finite base score.
	candidates := []*engine.Candidate{
		candidate("untouched", 0, 0, false),
		candidate("productive", 10, 5, false),
	}

	decision, err := scorer.New().Rank(candidates)
	require.NoError(t, err)
	require.Equal(t, 1, decision.WinnerIndex())
	require.InDelta(t, 1.0, decision.Scores[1], 1e-9)
}
