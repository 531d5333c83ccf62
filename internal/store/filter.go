package store

import "github.com/google/uuid"

// Filter narrows a List query (spec.md 4.1). Zero-value fields are not
// applied; empty slices/strings mean "no constraint", matching the
// teacher's FilterCombined idiom of optional *pointer style narrowing
// (internal/repository/task_repository.go FilterCombined) generalized to
// the tagged-variant WorkItem.
type Filter struct {
	Tags             []string
	StatusInclude    []string
	StatusExclude    []string
	PriorityInclude  []string
	PriorityExclude  []string
	ParentID         *uuid.UUID
	// HasNoParent, when true, scopes the list to root items of the given
	// kind (ParentID IS NULL). Ignored when ParentID is set.
	HasNoParent bool
	TextQuery   string

	Limit  int
	Offset int
}
