// Package scorer provides the default plan scorer: candidates are ranked by
// how productive their trial period was. Scoring internals are deliberately
// contained here; the engine consumes only the resulting RankingDecision.
package scorer

import (
	"fmt"
	"sort"

	"github.com/planarena/planarena/pkg/engine"
)

const (
	// defaultTieEpsilon is the score distance under which the best and
	// runner-up are considered tied.
	defaultTieEpsilon = 1e-4

	// defaultEOFBonus rewards candidates that ran to completion within the
	// trial: a finished plan needs no further work at all.
	defaultEOFBonus = 1.0

	// baseScore keeps all scores strictly positive so a zero-productivity
	// plan still sorts deterministically.
	baseScore = 1.0
)

// ProductivityScorer scores each surviving candidate as
// base + advances/works + eofBonus and breaks ties by registration order.
type ProductivityScorer struct {
	// TieEpsilon is the maximum score distance still considered a tie.
	TieEpsilon float64

	// EOFBonus is added when a candidate reached EOF during the trial.
	EOFBonus float64
}

// New creates a scorer with the default knobs.
func New() *ProductivityScorer {
	return &ProductivityScorer{
		TieEpsilon: defaultTieEpsilon,
		EOFBonus:   defaultEOFBonus,
	}
}

// Rank implements engine.Scorer. Failed candidates are excluded; the
// returned order holds indices into the candidates slice as passed.
func (s *ProductivityScorer) Rank(candidates []*engine.Candidate) (*engine.RankingDecision, error) {
	type scored struct {
		index int
		score float64
	}

	ranked := make([]scored, 0, len(candidates))
	for ix, candidate := range candidates {
		if candidate.Failed() {
			continue
		}
		ranked = append(ranked, scored{index: ix, score: s.score(candidate)})
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("scorer: no surviving candidates to rank")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	decision := &engine.RankingDecision{
		Order:  make([]int, len(ranked)),
		Scores: make([]float64, len(ranked)),
	}
	for pos, r := range ranked {
		decision.Order[pos] = r.index
		decision.Scores[pos] = r.score
	}
	if len(ranked) > 1 {
		decision.TieForBest = decision.Scores[0]-decision.Scores[1] < s.TieEpsilon
	}
	return decision, nil
}

// score computes a single candidate's trial score.
func (s *ProductivityScorer) score(candidate *engine.Candidate) float64 {
	works := candidate.Stats.Works
	if works == 0 {
		works = 1
	}
	productivity := float64(candidate.Stats.Advances) / float64(works)

	score := baseScore + productivity
	if candidate.Stats.ReachedEOF {
		score += s.EOFBonus
	}
	return score
}
