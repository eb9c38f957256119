package stage

import (
	"context"
	"sort"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/workspace"
)

// Less orders two produced values for a SortStage.
type Less func(a, b interface{}) bool

// SortStage is a blocking stage: it consumes its child completely before
// emitting anything, so a solution rooted in one has a blocking initial
// phase and produces no results for the entire loading phase.
type SortStage struct {
	ws     *workspace.Workspace
	child  engine.PlanRoot
	less   Less
	loaded []interface{}
	sorted bool
	pos    int
}

// NewSort creates a sort over child's output, producing into ws. The child
// must produce into the same workspace.
func NewSort(ws *workspace.Workspace, child engine.PlanRoot, less Less) *SortStage {
	return &SortStage{ws: ws, child: child, less: less}
}

// Work implements engine.PlanRoot. During loading, each call forwards one
// unit of work to the child and reports StatusNeedTime; once the child is
// exhausted the buffered values are sorted and emitted one per call.
func (s *SortStage) Work(ctx context.Context) (engine.WorkStatus, workspace.MemberID) {
	if !s.sorted {
		status, id := s.child.Work(ctx)
		switch status {
		case engine.StatusAdvanced:
			value, ok := s.ws.Get(id)
			if !ok {
				return engine.StatusFailure, s.ws.AllocStatus(
					engine.NewInternalError("sort child produced an unresolvable member", nil))
			}
			s.ws.Free(id)
			s.loaded = append(s.loaded, value)
			return engine.StatusNeedTime, workspace.InvalidID

		case engine.StatusEOF:
			sort.SliceStable(s.loaded, func(i, j int) bool {
				return s.less(s.loaded[i], s.loaded[j])
			})
			s.sorted = true
			return engine.StatusNeedTime, workspace.InvalidID

		default:
			// NeedTime, NeedYield, and Failure all propagate unchanged.
			return status, id
		}
	}

	if s.pos >= len(s.loaded) {
		return engine.StatusEOF, workspace.InvalidID
	}
	value := s.loaded[s.pos]
	s.pos++
	return engine.StatusAdvanced, s.ws.Alloc(value)
}

// Close implements engine.PlanRoot.
func (s *SortStage) Close() error {
	return s.child.Close()
}
