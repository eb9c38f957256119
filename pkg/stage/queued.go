package stage

import (
	"context"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/workspace"
)

// queuedOutcome is one scripted step of a QueuedStage.
type queuedOutcome struct {
	status engine.WorkStatus
	value  interface{}
	err    error
}

// QueuedStage replays a scripted sequence of work outcomes. It exists to
// drive the trial executor through exact scenarios: every push corresponds
// to one future Work call, and an exhausted script reports EOF forever.
type QueuedStage struct {
	ws    *workspace.Workspace
	queue []queuedOutcome
}

// NewQueued creates a queued stage producing into ws.
func NewQueued(ws *workspace.Workspace) *QueuedStage {
	return &QueuedStage{ws: ws}
}

// PushValue schedules a StatusAdvanced outcome carrying value.
func (q *QueuedStage) PushValue(value interface{}) *QueuedStage {
	q.queue = append(q.queue, queuedOutcome{status: engine.StatusAdvanced, value: value})
	return q
}

// PushNeedTime schedules a StatusNeedTime outcome.
func (q *QueuedStage) PushNeedTime() *QueuedStage {
	q.queue = append(q.queue, queuedOutcome{status: engine.StatusNeedTime})
	return q
}

// PushNeedYield schedules a StatusNeedYield outcome.
func (q *QueuedStage) PushNeedYield() *QueuedStage {
	q.queue = append(q.queue, queuedOutcome{status: engine.StatusNeedYield})
	return q
}

// PushFailure schedules a StatusFailure outcome carrying err as the
// diagnostic.
func (q *QueuedStage) PushFailure(err error) *QueuedStage {
	q.queue = append(q.queue, queuedOutcome{status: engine.StatusFailure, err: err})
	return q
}

// Work implements engine.PlanRoot.
func (q *QueuedStage) Work(ctx context.Context) (engine.WorkStatus, workspace.MemberID) {
	if len(q.queue) == 0 {
		return engine.StatusEOF, workspace.InvalidID
	}
	next := q.queue[0]
	q.queue = q.queue[1:]

	switch next.status {
	case engine.StatusAdvanced:
		return engine.StatusAdvanced, q.ws.Alloc(next.value)
	case engine.StatusFailure:
		return engine.StatusFailure, q.ws.AllocStatus(next.err)
	default:
		return next.status, workspace.InvalidID
	}
}

// Close implements engine.PlanRoot.
func (q *QueuedStage) Close() error {
	return nil
}
