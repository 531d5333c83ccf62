// Package depgraph implements the Dependency Graph Service (spec.md 4.5).
// It holds no state of its own — every function is a pure computation over
// edges and nodes the caller (internal/store, internal/api) already
// loaded from the Entity Store, per spec.md 4.5: "Maintains no internal
// state; pure computations over the Entity Store."
//
// The cycle-detection core is grounded on the teacher's
// internal/dependency/detector.go three-colour DFS; the topological/
// critical-path/bottleneck analysis has no teacher analog and is written
// fresh in the same DFS-over-adjacency-list idiom.
package depgraph

import "github.com/google/uuid"

// Edge is a normalized Blocks edge: From blocks To, i.e. To cannot proceed
// until From satisfies the edge's unblockAt role. RelatesTo edges never
// appear here — they carry no ordering constraint and are ignored by the
// graph service (spec.md 4.5).
type Edge struct {
	From uuid.UUID
	To   uuid.UUID
}

// Node carries the metadata the analysis needs beyond an edge list —
// complexity for deterministic tie-breaking (spec.md 4.5: "chain ...
// Tie-break: lower complexity first, then id lexical").
type Node struct {
	ID         uuid.UUID
	Complexity int
}

func buildAdjacency(edges []Edge) map[uuid.UUID][]uuid.UUID {
	adj := make(map[uuid.UUID][]uuid.UUID)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		if _, ok := adj[e.To]; !ok {
			adj[e.To] = nil // ensure node exists as a key even with no outgoing edges
		}
	}
	return adj
}

func buildReverseAdjacency(edges []Edge) map[uuid.UUID][]uuid.UUID {
	radj := make(map[uuid.UUID][]uuid.UUID)
	for _, e := range edges {
		radj[e.To] = append(radj[e.To], e.From)
	}
	return radj
}
