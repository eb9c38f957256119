package engine

import (
	"context"

	"github.com/planarena/planarena/pkg/workspace"
)

// PickBest runs the trial period: every non-failed candidate is advanced by
// one unit of work per round, in registration order, until the work budget
// is exhausted, a candidate completes, a candidate saturates its result
// buffer, or every candidate has failed. On success the winner is installed
// and the ranking decision is (policy permitting) committed to the plan
// cache; subsequent calls go through Work.
//
// The returned error is nil on success, a conflict error when a candidate
// required a yield the policy disallows, an interrupt error when a
// suspension failed, or a candidate-class error when all plans failed.
func (m *MultiPlan) PickBest(ctx context.Context, yieldPolicy YieldPolicy) error {
	if len(m.candidates) == 0 {
		return NewInternalError("no candidate plans registered", nil).WithCode(ErrCodeNoCandidates)
	}
	if m.BestPlanChosen() {
		return NewInternalError("best plan already chosen", nil).WithCode(ErrCodeInternal)
	}

	m.budget = TrialBudget{
		MaxWorkUnits: TrialWorkBudget(m.opts.WorkFloor, m.opts.CollectionFraction, m.opts.CollectionRecords),
		MaxResults:   TrialResultBudget(m.opts.MaxResults, m.opts.Limit),
	}
	m.trialStart = m.opts.Clock()
	defer func() {
		m.trialTime = m.opts.Clock().Sub(m.trialStart)
	}()

	m.log.Debug().
		Int("candidates", len(m.candidates)).
		Int("max_work_units", m.budget.MaxWorkUnits).
		Int("max_results", m.budget.MaxResults).
		Msg("starting plan trial")

	// Work the plans, stopping when a plan hits EOF or returns some fixed
	// number of results.
	for ix := 0; ix < m.budget.MaxWorkUnits; ix++ {
		moreToDo, err := m.workAllCandidates(ctx, yieldPolicy)
		if err != nil {
			return err
		}
		if !moreToDo {
			break
		}
	}

	if m.failure {
		m.state = StateFailed
		cause := m.FailureStatus()
		return NewCandidateError("all candidate plans failed", cause).WithCode(ErrCodeAllPlansFailed)
	}

	return m.rankAndCommit(ctx)
}

// workAllCandidates performs one round: one unit of work for each non-failed
// candidate, in index order. It returns false when the trial should stop,
// either because a candidate completed or saturated its buffer (doneWorking)
// or because of a terminal failure. A non-nil error aborts the whole trial.
func (m *MultiPlan) workAllCandidates(ctx context.Context, yieldPolicy YieldPolicy) (bool, error) {
	doneWorking := false

	for ix, candidate := range m.candidates {
		if candidate.failed {
			continue
		}

		// Might need to yield between work calls due to the timer elapsing.
		if err := m.tryYield(ctx, yieldPolicy, candidate); err != nil {
			return false, err
		}

		status, id := candidate.Root.Work(ctx)
		candidate.Stats.Works++
		m.totalWorks++

		switch status {
		case StatusAdvanced:
			candidate.Stats.Advances++
			candidate.pushResult(id)

			// Once a plan returns enough results, stop working.
			if candidate.Buffered() >= m.budget.MaxResults {
				doneWorking = true
			}

		case StatusEOF:
			// First plan to hit EOF wins automatically. Stop evaluating
			// other plans; ranking is still what decides.
			candidate.Stats.ReachedEOF = true
			m.log.Debug().Int("candidate", ix).Msg("candidate reached eof, ending trial")
			doneWorking = true

		case StatusNeedYield:
			if !yieldPolicy.CanAutoYield() {
				return false, NewConflictError("write conflict during trial and auto-yield is disallowed", nil).
					WithCode(ErrCodeWriteConflict).
					WithPlan(candidate.Solution.PlanSummary)
			}
			yieldPolicy.ForceYield()
			candidate.Stats.Yields++
			if err := m.tryYield(ctx, yieldPolicy, candidate); err != nil {
				return false, err
			}

		case StatusNeedTime:
			// Nothing new yet; move on to the next candidate.

		case StatusFailure:
			// Mark this candidate as failed but keep executing the others.
			// The trial as a whole only fails when every candidate fails.
			candidate.MarkFailed()
			m.failureCount++
			m.recordFailure(candidate.WS, id)
			m.log.Debug().
				Int("candidate", ix).
				Str("plan", candidate.Solution.PlanSummary).
				Msg("candidate plan failed during trial")

			if m.failureCount == len(m.candidates) {
				m.failure = true
				return false, nil
			}
		}
	}

	return !doneWorking, nil
}

// tryYield consults the yield policy and suspends when it signals. A failed
// resume poisons the whole trial: the interrupt's diagnostic is stored as a
// status member and returned as a fatal error.
func (m *MultiPlan) tryYield(ctx context.Context, yieldPolicy YieldPolicy, candidate *Candidate) error {
	if !yieldPolicy.ShouldYield() {
		return nil
	}
	candidate.Stats.Yields++
	if err := yieldPolicy.Yield(ctx); err != nil {
		m.failure = true
		m.state = StateFailed
		ierr := NewInterruptError("operation interrupted during yield", err).WithCode(ErrCodeInterrupted)
		m.statusMemberOf(m.candidates[0].WS, ierr)
		return ierr
	}
	return nil
}

// statusMemberOf allocates a status member in the given workspace carrying
// err and records it as the current failure diagnostic.
func (m *MultiPlan) statusMemberOf(ws *workspace.Workspace, err error) workspace.MemberID {
	id := ws.AllocStatus(err)
	m.recordFailure(ws, id)
	return id
}
