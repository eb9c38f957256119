package stage

import (
	"context"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/workspace"
)

// LimitStage passes through its child's results and reports EOF once n have
// been returned.
type LimitStage struct {
	child     engine.PlanRoot
	remaining int
}

// NewLimit creates a limit of n over child.
func NewLimit(child engine.PlanRoot, n int) *LimitStage {
	return &LimitStage{child: child, remaining: n}
}

// Work implements engine.PlanRoot.
func (l *LimitStage) Work(ctx context.Context) (engine.WorkStatus, workspace.MemberID) {
	if l.remaining <= 0 {
		return engine.StatusEOF, workspace.InvalidID
	}
	status, id := l.child.Work(ctx)
	if status == engine.StatusAdvanced {
		l.remaining--
	}
	return status, id
}

// Close implements engine.PlanRoot.
func (l *LimitStage) Close() error {
	return l.child.Close()
}
