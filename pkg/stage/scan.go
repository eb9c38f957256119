package stage

import (
	"context"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/workspace"
)

// Record is one document in an in-memory record set.
type Record map[string]interface{}

// Filter decides whether a scanned record matches the query predicate.
type Filter func(Record) bool

// ScanStage walks an in-memory record set one record per unit of work,
// applying an optional filter. Non-matching records consume a work unit and
// report StatusNeedTime, the same accounting a storage scan would have.
type ScanStage struct {
	ws      *workspace.Workspace
	records []Record
	filter  Filter
	pos     int
}

// NewScan creates a scan over records, producing into ws. A nil filter
// matches everything.
func NewScan(ws *workspace.Workspace, records []Record, filter Filter) *ScanStage {
	return &ScanStage{ws: ws, records: records, filter: filter}
}

// Work implements engine.PlanRoot.
func (s *ScanStage) Work(ctx context.Context) (engine.WorkStatus, workspace.MemberID) {
	if s.pos >= len(s.records) {
		return engine.StatusEOF, workspace.InvalidID
	}
	record := s.records[s.pos]
	s.pos++

	if s.filter != nil && !s.filter(record) {
		return engine.StatusNeedTime, workspace.InvalidID
	}
	return engine.StatusAdvanced, s.ws.Alloc(record)
}

// Close implements engine.PlanRoot.
func (s *ScanStage) Close() error {
	return nil
}
