package workitem

import (
	"errors"
	"fmt"
)

// Field validation sentinel errors, in the style of the teacher's
// internal/models/validation.go.
var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrSummaryTooLong    = errors.New("summary exceeds 500 characters")
	ErrInvalidPriority   = errors.New("invalid priority: must be high, medium, or low")
	ErrInvalidComplexity = errors.New("invalid complexity: must be between 1 and 10")
	ErrInvalidKind       = errors.New("invalid kind: must be project, feature, or task")
	ErrInvalidParent     = errors.New("invalid parent: kind mismatch for hierarchy")
)

const maxSummaryLength = 500

// ValidateTitle enforces "required, non-empty" (spec.md 3).
func ValidateTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// ValidateSummary enforces the 500-character bound (spec.md 3). An empty
// summary is allowed here; the Terminal-role requirement is enforced by the
// Transition Validator (spec.md 4.4), not at field-write time.
func ValidateSummary(summary string) error {
	if len(summary) > maxSummaryLength {
		return fmt.Errorf("%w: got %d characters", ErrSummaryTooLong, len(summary))
	}
	return nil
}

// ValidatePriority validates the Feature/Task priority enum.
func ValidatePriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidPriority, p)
	}
	return nil
}

// ValidateComplexity validates the Task-only 1..10 range.
func ValidateComplexity(c int) error {
	if c < 1 || c > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidComplexity, c)
	}
	return nil
}

// ValidateParent enforces invariant 1 (parent integrity) at the kind level;
// callers still need to verify the referenced id actually exists and has
// the claimed kind (internal/store does that against the database).
func ValidateParent(child Kind, parentKind Kind, hasParent bool) error {
	if child == KindProject {
		if hasParent {
			return fmt.Errorf("%w: project cannot have a parent", ErrInvalidParent)
		}
		return nil
	}
	if !hasParent {
		return nil // Feature/Task may have a nil parent.
	}
	if !ValidParentKind(child, parentKind) {
		return fmt.Errorf("%w: %s cannot have parent kind %s", ErrInvalidParent, child, parentKind)
	}
	return nil
}
