package engine

import (
	"context"
	"fmt"

	"github.com/planarena/planarena/pkg/workspace"
)

// DispatchState is the steady-state dispatcher's position in its lifecycle.
type DispatchState string

const (
	// StateAwaitingWinner means the trial has not completed; Work is not
	// yet legal.
	StateAwaitingWinner DispatchState = "awaiting_winner"

	// StateDrainingBuffer means results buffered during the trial are being
	// returned, oldest first.
	StateDrainingBuffer DispatchState = "draining_buffer"

	// StatePullingFresh means the winner's plan is being worked for new
	// results.
	StatePullingFresh DispatchState = "pulling_fresh"

	// StateUsingBackup means the original winner failed and the backup plan
	// is serving the query. No further swap is possible.
	StateUsingBackup DispatchState = "using_backup"

	// StateExhausted means the winner completed; terminal.
	StateExhausted DispatchState = "exhausted"

	// StateFailed means the active plan failed with no backup; terminal.
	StateFailed DispatchState = "failed"
)

// IsTerminal returns true if the state is final.
func (s DispatchState) IsTerminal() bool {
	return s == StateExhausted || s == StateFailed
}

// Validate checks if the dispatch state is valid.
func (s DispatchState) Validate() error {
	switch s {
	case StateAwaitingWinner, StateDrainingBuffer, StatePullingFresh,
		StateUsingBackup, StateExhausted, StateFailed:
		return nil
	default:
		return fmt.Errorf("invalid dispatch state: %s", s)
	}
}

// State returns the dispatcher's current state.
func (m *MultiPlan) State() DispatchState {
	return m.state
}

// EOF reports whether the query has no more data: true once the winner is
// exhausted or the operation has failed. A dispatcher with a non-empty
// buffer is never exhausted, even if the underlying plan already completed.
func (m *MultiPlan) EOF() bool {
	if m.failure {
		return true
	}
	if !m.BestPlanChosen() {
		return false
	}
	return m.state.IsTerminal()
}

// Work serves one result in steady state: buffered trial results first, in
// insertion order, then fresh results pulled from the winner's plan. A
// winner that fails while a backup is installed is swapped out
// transparently (and its cache entry evicted); a failure with no backup is
// terminal. StatusNeedYield propagates to the caller with state unchanged.
func (m *MultiPlan) Work(ctx context.Context) (WorkStatus, workspace.MemberID) {
	switch m.state {
	case StateAwaitingWinner:
		err := NewInternalError("work requested before a winner was chosen", nil).WithCode(ErrCodeNoWinner)
		if len(m.candidates) == 0 {
			return StatusFailure, workspace.InvalidID
		}
		m.failure = true
		m.state = StateFailed
		return StatusFailure, m.statusMemberOf(m.candidates[0].WS, err)

	case StateFailed:
		return StatusFailure, m.failureID

	case StateExhausted:
		return StatusEOF, workspace.InvalidID

	case StateDrainingBuffer:
		best := m.candidates[m.bestIdx]
		id := best.popResult()
		if best.Buffered() == 0 {
			m.state = StatePullingFresh
		}
		return StatusAdvanced, id

	case StatePullingFresh:
		return m.pullFresh(ctx, true)

	case StateUsingBackup:
		// Identical to pulling fresh, but the one backup swap has already
		// been consumed.
		return m.pullFresh(ctx, false)
	}

	return StatusFailure, m.statusMemberOf(m.candidates[0].WS,
		NewInternalError("dispatcher in unknown state", nil).WithCode(ErrCodeInternal))
}

// pullFresh requests one unit of work from the active plan and applies the
// steady-state transition rules.
func (m *MultiPlan) pullFresh(ctx context.Context, allowSwap bool) (WorkStatus, workspace.MemberID) {
	best := m.candidates[m.bestIdx]
	status, id := best.Root.Work(ctx)

	switch status {
	case StatusAdvanced:
		if m.HasBackup() {
			m.log.Debug().Msg("blocking winner became unblocked, dropping backup plan")
			m.backupIdx = noSuchPlan
		}
		return StatusAdvanced, id

	case StatusEOF:
		m.state = StateExhausted
		return StatusEOF, workspace.InvalidID

	case StatusFailure:
		if allowSwap && m.HasBackup() {
			return m.swapToBackup(ctx)
		}
		m.failure = true
		m.state = StateFailed
		m.recordFailure(best.WS, id)
		return StatusFailure, id
	}

	// NeedYield and NeedTime propagate unchanged; the caller owns the
	// suspend-and-retry protocol.
	return status, id
}

// swapToBackup evicts the failed winner's cache entry (best effort), makes
// the backup the active plan, and immediately attempts one unit of work
// from it.
func (m *MultiPlan) swapToBackup(ctx context.Context) (WorkStatus, workspace.MemberID) {
	m.log.Debug().
		Int("backup", m.backupIdx).
		Msg("best plan errored out, switching to backup")

	// The cached entry described a choice that just proved bad; drop it so
	// future executions replan. Failure to evict is not itself fatal.
	if m.opts.Cache != nil {
		if err := m.opts.Cache.Evict(ctx, m.opts.Shape); err != nil {
			m.log.Warn().Err(err).Msg("failed to evict plan cache entry for failed winner")
		}
	}

	m.bestIdx = m.backupIdx
	m.backupIdx = noSuchPlan
	m.state = StateUsingBackup

	return m.pullFresh(ctx, false)
}
