// Package workspace provides the intermediate-result store that plan stages
// use to hand results to one another. Stages never exchange values directly;
// a producing stage allocates a member, stores the value, and passes the
// member ID upward. Failure diagnostics travel the same way: a failing stage
// allocates a status member carrying its error, so the consumer can resolve
// the diagnostic from the ID it already holds.
package workspace

import "fmt"

// MemberID identifies a single member within a Workspace.
type MemberID uint64

// InvalidID is the sentinel for "no member". Stages return it alongside any
// work outcome that carries no result.
const InvalidID MemberID = 0

// member is a single slot in the workspace. Exactly one of value or status
// is meaningful, depending on how the member was allocated.
type member struct {
	value  interface{}
	status error
}

// Workspace is an arena of members keyed by MemberID. It is owned by exactly
// one candidate plan and is not safe for concurrent use; the execution model
// is single-threaded per query.
type Workspace struct {
	members map[MemberID]*member
	next    MemberID
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{
		members: make(map[MemberID]*member),
		next:    InvalidID + 1,
	}
}

// Alloc stores a result value and returns its member ID.
func (w *Workspace) Alloc(value interface{}) MemberID {
	id := w.next
	w.next++
	w.members[id] = &member{value: value}
	return id
}

// AllocStatus stores a failure diagnostic and returns its member ID.
// The returned ID resolves through StatusOf, not Get.
func (w *Workspace) AllocStatus(status error) MemberID {
	id := w.next
	w.next++
	w.members[id] = &member{status: status}
	return id
}

// Get returns the value stored under id. The second return is false when the
// ID is unknown or refers to a status member.
func (w *Workspace) Get(id MemberID) (interface{}, bool) {
	m, ok := w.members[id]
	if !ok || m.status != nil {
		return nil, false
	}
	return m.value, true
}

// StatusOf returns the failure diagnostic stored under id, or an error
// describing the lookup failure if the ID does not refer to a status member.
func (w *Workspace) StatusOf(id MemberID) error {
	m, ok := w.members[id]
	if !ok {
		return fmt.Errorf("workspace: no member with id %d", id)
	}
	if m.status == nil {
		return fmt.Errorf("workspace: member %d is not a status member", id)
	}
	return m.status
}

// Free releases the member with the given ID. Freeing an unknown ID is a
// no-op.
func (w *Workspace) Free(id MemberID) {
	delete(w.members, id)
}

// Len returns the number of live members.
func (w *Workspace) Len() int {
	return len(w.members)
}
