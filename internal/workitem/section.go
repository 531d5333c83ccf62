package workitem

import (
	"time"

	"github.com/google/uuid"
)

// Section is an opaque content block attached to a WorkItem (spec.md 3).
// It generalizes the teacher's separate work_session/task_note/task_criteria
// tables into one shape distinguished by Format (SPEC_FULL.md C.3); the
// core never interprets Content, only persists and cascades it.
type Section struct {
	ID         uuid.UUID
	EntityKind Kind
	EntityID   uuid.UUID
	Title      string
	Content    string
	// Format names the opaque content shape: "note", "criteria", "session",
	// "template" or any caller-defined value. The core never branches on it.
	Format    string
	Ordinal   int
	Tags      []string
	CreatedAt time.Time
}

// RoleTransition is the append-only audit record for a status change
// (spec.md 3). It is produced once per successful transition and never
// mutated afterward.
type RoleTransition struct {
	ID         uuid.UUID
	EntityID   uuid.UUID
	EntityKind Kind
	FromRole   Role
	ToRole     Role
	FromStatus string
	ToStatus   string
	Trigger    Trigger
	// Summary is the item's summary at the instant of transition, recorded
	// so later audits don't need to join against current, possibly-changed
	// state.
	Summary string
	// Automatic marks a transition the Cascade Engine drove rather than a
	// direct caller request (spec.md 4.6's CascadeEvent.automatic).
	Automatic bool
	Timestamp time.Time
}
