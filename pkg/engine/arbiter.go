package engine

import "context"

// rankAndCommit applies the scorer's verdict: installs the winner, selects a
// backup for blocking zero-result winners, and runs the cache-commit policy.
// Called only when the trial ended without total failure.
func (m *MultiPlan) rankAndCommit(ctx context.Context) error {
	decision, err := m.opts.Scorer.Rank(m.candidates)
	if err != nil {
		return NewInternalError("plan ranking failed", err).WithCode(ErrCodeScorerFailed)
	}
	if err := decision.Validate(); err != nil {
		return NewInternalError("scorer produced an invalid decision", err).WithCode(ErrCodeScorerFailed)
	}
	if w := decision.WinnerIndex(); w < 0 || w >= len(m.candidates) {
		return NewInternalError("scorer picked an out-of-range winner", nil).WithCode(ErrCodeScorerFailed)
	}

	m.decision = decision
	m.bestIdx = decision.WinnerIndex()
	best := m.candidates[m.bestIdx]

	m.log.Debug().
		Int("winner", m.bestIdx).
		Str("plan", best.Solution.PlanSummary).
		Float64("score", decision.Scores[0]).
		Msg("winning plan chosen")

	// A blocking winner that produced nothing during the trial gets a
	// non-blocking safety net: the first such candidate in registration
	// order. If none qualifies, no backup is installed.
	m.backupIdx = noSuchPlan
	if best.Solution.Blocking && best.Buffered() == 0 {
		for ix, candidate := range m.candidates {
			if !candidate.Solution.Blocking {
				m.log.Debug().Int("candidate", ix).Msg("installing backup plan for blocking winner")
				m.backupIdx = ix
				break
			}
		}
	}

	m.commitToCache(ctx, best)

	if best.Buffered() > 0 {
		m.state = StateDrainingBuffer
	} else {
		m.state = StatePullingFresh
	}
	return nil
}

// commitToCache applies the caching policy and, when it allows, hands the
// ordered solutions and the decision to the plan cache. A cache write
// failure is logged but never fails the query.
func (m *MultiPlan) commitToCache(ctx context.Context, best *Candidate) {
	if m.opts.Cache == nil {
		return
	}

	decision := m.decision

	canCache := m.opts.Mode == CacheAlways
	if m.opts.Mode == CacheSometimes {
		// Cache unless one of the special cases below applies.
		canCache = true

		if decision.TieForBest {
			// The winner tied with the runner-up; the choice carries no
			// signal worth persisting.
			canCache = false
			m.log.Info().
				Str("winner", best.Solution.PlanSummary).
				Float64("winner_score", decision.Scores[0]).
				Float64("runner_up_score", decision.Scores[1]).
				Msg("winning plan tied with runner-up, not caching")
		}

		if best.Buffered() == 0 {
			// The winner produced no results during the trial.
			canCache = false
			m.log.Info().
				Str("winner", best.Solution.PlanSummary).
				Float64("winner_score", decision.Scores[0]).
				Msg("winning plan had zero results, not caching")
		}
	}

	if !canCache || !m.opts.Cacheable(m.opts.Shape) {
		return
	}

	// Order solutions best to worst for the cache.
	solutions := make([]*Solution, 0, len(decision.Order))
	for _, ix := range decision.Order {
		solutions = append(solutions, m.candidates[ix].Solution)
	}

	// A partial cache entry is worse than none: if even one solution lacks
	// cache metadata, skip caching for this decision.
	for _, sol := range solutions {
		if sol.CacheData == nil {
			m.log.Debug().
				Str("plan", sol.PlanSummary).
				Msg("not caching query because a solution has no cache data")
			return
		}
	}

	if err := m.opts.Cache.Put(ctx, m.opts.Shape, solutions, decision, m.opts.Clock()); err != nil {
		m.log.Warn().Err(err).Msg("plan cache write failed")
	}
}
