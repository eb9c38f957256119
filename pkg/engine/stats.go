package engine

import "time"

// CandidateSnapshot is the per-candidate slice of a trial snapshot.
type CandidateSnapshot struct {
	// Index is the candidate's registration index.
	Index int `json:"index"`

	// PlanSummary describes the candidate's strategy.
	PlanSummary string `json:"plan_summary"`

	// Blocking mirrors the solution's blocking flag.
	Blocking bool `json:"blocking"`

	// Stats are the trial counters.
	Stats CandidateStats `json:"stats"`

	// Buffered is the number of produced-but-unreturned results.
	Buffered int `json:"buffered"`

	// Failed reports whether this candidate failed.
	Failed bool `json:"failed"`

	// Score is the scorer's score for this candidate, zero before ranking.
	Score float64 `json:"score"`
}

// TrialStats is the diagnostics snapshot exposed for observability tooling:
// per-candidate work/advance/yield counters, the chosen indices, and the
// budgets in effect.
type TrialStats struct {
	// TrialID uniquely identifies this trial.
	TrialID string `json:"trial_id"`

	// Shape is the canonical query shape key.
	Shape string `json:"shape"`

	// State is the dispatcher's current state.
	State DispatchState `json:"state"`

	// WinnerIndex is the winning candidate's index, -1 before ranking.
	WinnerIndex int `json:"winner_index"`

	// BackupIndex is the backup candidate's index, -1 when none is in
	// effect.
	BackupIndex int `json:"backup_index"`

	// GlobalFailure is true only when every candidate failed.
	GlobalFailure bool `json:"global_failure"`

	// Budget is the trial budget computed for this execution.
	Budget TrialBudget `json:"budget"`

	// TotalWorks counts all work units spent across candidates during the
	// trial.
	TotalWorks uint64 `json:"total_works"`

	// TrialDuration is how long the trial period took.
	TrialDuration time.Duration `json:"trial_duration"`

	// Candidates holds one snapshot per registered candidate, in
	// registration order.
	Candidates []CandidateSnapshot `json:"candidates"`

	// Decision is the ranking decision, nil before the trial completes.
	Decision *RankingDecision `json:"decision,omitempty"`
}

// Snapshot captures the current diagnostics state. Safe to call at any
// point in the lifecycle, including after failure.
func (m *MultiPlan) Snapshot() TrialStats {
	stats := TrialStats{
		TrialID:       m.trialID,
		Shape:         m.opts.Shape.Key,
		State:         m.state,
		WinnerIndex:   m.bestIdx,
		BackupIndex:   m.backupIdx,
		GlobalFailure: m.failure && m.failureCount == len(m.candidates),
		Budget:        m.budget,
		TotalWorks:    m.totalWorks,
		TrialDuration: m.trialTime,
		Candidates:    make([]CandidateSnapshot, 0, len(m.candidates)),
		Decision:      m.decision,
	}

	scores := make(map[int]float64)
	if m.decision != nil {
		for pos, ix := range m.decision.Order {
			scores[ix] = m.decision.Scores[pos]
		}
	}

	for ix, candidate := range m.candidates {
		stats.Candidates = append(stats.Candidates, CandidateSnapshot{
			Index:       ix,
			PlanSummary: candidate.Solution.PlanSummary,
			Blocking:    candidate.Solution.Blocking,
			Stats:       candidate.Stats,
			Buffered:    candidate.Buffered(),
			Failed:      candidate.failed,
			Score:       scores[ix],
		})
	}
	return stats
}
