package workitem

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType is the dependency relationship kind. IsBlockedBy is accepted on
// the external surface but never stored: NormalizeEdge (below), called by
// internal/store, rewrites IsBlockedBy(a,b) to Blocks(b,a) before
// persistence, per the recommended
// interpretation in spec.md 9 ("Open questions").
type EdgeType string

const (
	EdgeBlocks      EdgeType = "blocks"
	EdgeIsBlockedBy EdgeType = "is_blocked_by"
	EdgeRelatesTo   EdgeType = "relates_to"
)

func (e EdgeType) Valid() bool {
	switch e {
	case EdgeBlocks, EdgeIsBlockedBy, EdgeRelatesTo:
		return true
	default:
		return false
	}
}

// StoredEdgeType is the subset of EdgeType values the Entity Store persists
// (IsBlockedBy is always normalized away before it reaches this point).
type StoredEdgeType string

const (
	StoredBlocks    StoredEdgeType = "blocks"
	StoredRelatesTo StoredEdgeType = "relates_to"
)

// Dependency is a directed edge between two Tasks (spec.md 3).
type Dependency struct {
	ID         uuid.UUID
	FromTaskID uuid.UUID
	ToTaskID   uuid.UUID
	Type       StoredEdgeType
	// UnblockAt gates when ToTaskID may start: the source (FromTaskID)
	// must reach or pass this role. Nil means the default, Terminal.
	UnblockAt *Role
	CreatedAt time.Time
}

// EffectiveUnblockAt returns the configured UnblockAt role, defaulting to
// Terminal when unset (spec.md 3: "default semantics = terminal role").
func (d Dependency) EffectiveUnblockAt() Role {
	if d.UnblockAt != nil {
		return *d.UnblockAt
	}
	return RoleTerminal
}

// NormalizeEdge rewrites an IsBlockedBy(from,to) request into the
// Blocks(to,from) edge the store actually persists, and passes Blocks/
// RelatesTo through unchanged.
func NormalizeEdge(edgeType EdgeType, from, to uuid.UUID) (stored StoredEdgeType, normFrom, normTo uuid.UUID) {
	switch edgeType {
	case EdgeIsBlockedBy:
		return StoredBlocks, to, from
	case EdgeRelatesTo:
		return StoredRelatesTo, from, to
	default:
		return StoredBlocks, from, to
	}
}

// Direction is used by neighbor queries (spec.md 4.5).
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionAll      Direction = "all"
)
