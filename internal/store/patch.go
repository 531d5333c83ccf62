package store

import (
	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Patch carries the partial field update accepted by Update (spec.md 4.1).
// Only non-nil fields are written. Status is set exclusively by
// internal/executor as part of a validated transition (spec.md 3: "Status
// changes are never direct; they flow through triggers") — internal/api
// never accepts it from a direct field-update request.
type Patch struct {
	Title       *string
	Description *string
	Summary     *string
	Priority    *workitem.Priority
	Complexity  *int

	// ParentID is a double pointer: nil means "leave unchanged"; a pointer
	// to a nil *uuid.UUID means "clear the parent"; a pointer to a non-nil
	// *uuid.UUID means "set to this parent".
	ParentID **uuid.UUID
	Tags      *[]string

	RequiresVerification *bool

	Status *string
}

// ClearParent produces the ParentID value that removes an item's parent.
func ClearParent() **uuid.UUID {
	var nilID *uuid.UUID
	return &nilID
}

// SetParent produces the ParentID value that assigns id as the new parent.
func SetParent(id uuid.UUID) **uuid.UUID {
	p := &id
	return &p
}
