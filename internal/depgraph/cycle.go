package depgraph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
)

type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully processed
)

// DetectCycle runs a three-colour DFS over existing ∪ pending edges
// together (spec.md 9: "build an in-memory adjacency view over (existing ∪
// pending-batch) edges, run a single three-colour DFS; only persist if DFS
// completes without revisiting a gray node"). It returns a CycleDetected
// apierr.Error carrying the offending path when a cycle is found.
func DetectCycle(existing, pending []Edge) error {
	all := make([]Edge, 0, len(existing)+len(pending))
	all = append(all, existing...)
	all = append(all, pending...)
	adj := buildAdjacency(all)

	colors := make(map[uuid.UUID]color, len(adj))
	var path []uuid.UUID

	// A deterministic start order isn't required for correctness (a cycle
	// exists or it doesn't); nodes are visited in Go map iteration order,
	// so the reported cycle path may differ between calls.
	nodes := make([]uuid.UUID, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}

	var dfs func(node uuid.UUID) []uuid.UUID
	dfs = func(node uuid.UUID) []uuid.UUID {
		colors[node] = gray
		path = append(path, node)

		for _, next := range adj[node] {
			switch colors[next] {
			case gray:
				// Found the cycle: slice path from where `next` first
				// appears through to the current node, closing the loop.
				start := 0
				for i, n := range path {
					if n == next {
						start = i
						break
					}
				}
				cycle := append(append([]uuid.UUID{}, path[start:]...), next)
				return cycle
			case white:
				if cyc := dfs(next); cyc != nil {
					return cyc
				}
			}
		}

		path = path[:len(path)-1]
		colors[node] = black
		return nil
	}

	for _, n := range nodes {
		if colors[n] == white {
			if cyc := dfs(n); cyc != nil {
				return apierr.New(apierr.KindCycleDetected,
					fmt.Sprintf("adding this batch would create a cycle: %v", cyc),
					map[string]interface{}{"path": cyc})
			}
		}
	}
	return nil
}

// NewEdge is a batch-creation candidate edge checked for duplicates against
// itself and the existing graph (spec.md 4.5).
type NewEdge struct {
	Edge
	Type string
}

// DetectDuplicates enforces "(fromTaskId, toTaskId, type) must be unique"
// within a batch and against existing edges (spec.md 4.5).
func DetectDuplicates(existing []NewEdge, pending []NewEdge) error {
	seen := make(map[string]bool, len(existing))
	key := func(e NewEdge) string {
		return e.From.String() + "|" + e.To.String() + "|" + e.Type
	}
	for _, e := range existing {
		seen[key(e)] = true
	}
	for _, e := range pending {
		k := key(e)
		if seen[k] {
			return apierr.New(apierr.KindDuplicateEdge,
				fmt.Sprintf("edge %s->%s (%s) already exists", e.From, e.To, e.Type),
				map[string]interface{}{"from": e.From, "to": e.To, "type": e.Type})
		}
		seen[k] = true
	}
	return nil
}
