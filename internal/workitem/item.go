package workitem

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the Feature/Task priority enum (spec.md 3).
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// DefaultComplexity is applied to a Task when none is supplied at creation.
const DefaultComplexity = 5

// WorkItem is the shared header for Project, Feature and Task, carrying
// kind-specific fields as optional pointers the way a tagged-variant arm
// would in a language with sum types (spec.md 9).
type WorkItem struct {
	ID          uuid.UUID
	Kind        Kind
	ParentID    *uuid.UUID
	Title       string
	Description string
	Summary     string
	Status      string
	// Role is derived from Status via the active Flow Configuration at
	// read time (spec.md invariant 3); it is never the write-of-record.
	Role Role

	Priority             *Priority // Feature, Task
	Complexity            *int      // Task only, 1..10
	RequiresVerification bool      // Feature, Task

	Tags []string

	Version    int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DisplayKey produces a short, human-addressable label for CLI output,
// mirroring the teacher's E01/E01-F02/T-E01-F02-003 key ergonomics without
// making it the authoritative identifier (SPEC_FULL.md C.2). It is computed,
// never persisted.
func (w WorkItem) DisplayKey() string {
	short := w.ID.String()[:8]
	switch w.Kind {
	case KindProject:
		return "P-" + short
	case KindFeature:
		return "F-" + short
	default:
		return "T-" + short
	}
}

// NormalizedTags lowercases and trims tags for flow-selection and filtering,
// per spec.md's "lowercase canonicalised" requirement.
func NormalizedTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		nt := normalizeTag(t)
		if nt == "" || seen[nt] {
			continue
		}
		seen[nt] = true
		out = append(out, nt)
	}
	return out
}

func normalizeTag(t string) string {
	b := []byte(t)
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == ' ' || c == '\t' || c == '\n' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}

// HasAllTags reports whether item carries every tag in selector — the
// subset test the Flow Configuration uses for flow selection (spec.md 4.3).
func HasAllTags(itemTags, selector []string) bool {
	if len(selector) == 0 {
		return true
	}
	set := make(map[string]bool, len(itemTags))
	for _, t := range itemTags {
		set[t] = true
	}
	for _, s := range selector {
		if !set[s] {
			return false
		}
	}
	return true
}
