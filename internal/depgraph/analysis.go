package depgraph

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// DefaultBottleneckThreshold is the fan-out at or above which a node is
// reported as a bottleneck (spec.md 4.5).
const DefaultBottleneckThreshold = 3

// NeighborResult is the response to findByTaskId (spec.md 4.5).
type NeighborResult struct {
	Incoming []uuid.UUID
	Outgoing []uuid.UUID
}

// Neighbors returns the immediate neighbors of id over edges, filtered to
// direction.
func Neighbors(edges []Edge, id uuid.UUID, direction workitem.Direction) NeighborResult {
	var res NeighborResult
	for _, e := range edges {
		if e.From == id && (direction == workitem.DirectionOutgoing || direction == workitem.DirectionAll) {
			res.Outgoing = append(res.Outgoing, e.To)
		}
		if e.To == id && (direction == workitem.DirectionIncoming || direction == workitem.DirectionAll) {
			res.Incoming = append(res.Incoming, e.From)
		}
	}
	return res
}

// ParallelGroup is a set of tasks at the same topological level (spec.md 4.5).
type ParallelGroup struct {
	Depth   int
	Members []uuid.UUID
}

// Analysis is the result of a full graph traversal from a starting task
// (spec.md 4.5, "neighborsOnly = false").
type Analysis struct {
	Chain          []uuid.UUID
	Depth          int
	CriticalPath   []uuid.UUID
	Bottlenecks    []uuid.UUID
	Parallelizable []ParallelGroup
}

// Analyze computes chain/depth/criticalPath/bottlenecks/parallelizable
// groups for the subgraph reachable from start by following outgoing
// (Blocks) edges. nodes must include metadata (complexity) for every id
// that can appear in edges. bottleneckThreshold<=0 uses the default.
func Analyze(nodes map[uuid.UUID]Node, edges []Edge, start uuid.UUID, bottleneckThreshold int) Analysis {
	if bottleneckThreshold <= 0 {
		bottleneckThreshold = DefaultBottleneckThreshold
	}

	reachable := reachableFrom(edges, start)
	reachableEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if reachable[e.From] && reachable[e.To] {
			reachableEdges = append(reachableEdges, e)
		}
	}

	chain := topoOrder(reachable, reachableEdges, nodes)
	levels, preds := longestPathLevels(chain, reachableEdges)

	depth := 0
	var deepest uuid.UUID
	for id, lvl := range levels {
		if lvl > depth || (lvl == depth && isZero(deepest)) {
			depth = lvl
			deepest = id
		}
	}
	critical := reconstructPath(deepest, preds)

	bottlenecks := fanOutBottlenecks(reachableEdges, bottleneckThreshold, chain)

	groups := groupByLevel(levels, chain)

	return Analysis{
		Chain:          chain,
		Depth:          depth,
		CriticalPath:   critical,
		Bottlenecks:    bottlenecks,
		Parallelizable: groups,
	}
}

func isZero(id uuid.UUID) bool { return id == uuid.Nil }

func reachableFrom(edges []Edge, start uuid.UUID) map[uuid.UUID]bool {
	adj := buildAdjacency(edges)
	seen := map[uuid.UUID]bool{start: true}
	queue := []uuid.UUID{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range adj[n] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// topoOrder produces a deterministic topological ordering of reachable
// nodes via Kahn's algorithm, breaking ties by lower complexity then id
// lexical (spec.md 4.5).
func topoOrder(reachable map[uuid.UUID]bool, edges []Edge, nodes map[uuid.UUID]Node) []uuid.UUID {
	indegree := make(map[uuid.UUID]int, len(reachable))
	for id := range reachable {
		indegree[id] = 0
	}
	adj := buildAdjacency(edges)
	for _, e := range edges {
		indegree[e.To]++
	}

	less := func(a, b uuid.UUID) bool {
		ca, cb := complexityOf(nodes, a), complexityOf(nodes, b)
		if ca != cb {
			return ca < cb
		}
		return a.String() < b.String()
	}

	ready := make([]uuid.UUID, 0)
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]uuid.UUID, 0, len(reachable))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var newlyReady []uuid.UUID
		for _, next := range adj[n] {
			indegree[next]--
			if indegree[next] == 0 {
				newlyReady = append(newlyReady, next)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return less(newlyReady[i], newlyReady[j]) })
		ready = append(ready, newlyReady...)
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
	}
	return order
}

func complexityOf(nodes map[uuid.UUID]Node, id uuid.UUID) int {
	if n, ok := nodes[id]; ok {
		return n.Complexity
	}
	return workitem.DefaultComplexity
}

// longestPathLevels computes, for each node in topo order, the length of
// the longest path reaching it (its "level") and a predecessor map for
// critical-path reconstruction.
func longestPathLevels(order []uuid.UUID, edges []Edge) (map[uuid.UUID]int, map[uuid.UUID]uuid.UUID) {
	radj := buildReverseAdjacency(edges)
	levels := make(map[uuid.UUID]int, len(order))
	preds := make(map[uuid.UUID]uuid.UUID, len(order))

	for _, id := range order {
		best := 0
		var bestPred uuid.UUID
		for _, p := range radj[id] {
			if levels[p]+1 > best {
				best = levels[p] + 1
				bestPred = p
			}
		}
		levels[id] = best
		if best > 0 {
			preds[id] = bestPred
		}
	}
	return levels, preds
}

func reconstructPath(end uuid.UUID, preds map[uuid.UUID]uuid.UUID) []uuid.UUID {
	if isZero(end) {
		return nil
	}
	var rev []uuid.UUID
	cur := end
	for {
		rev = append(rev, cur)
		p, ok := preds[cur]
		if !ok {
			break
		}
		cur = p
	}
	// reverse
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

func fanOutBottlenecks(edges []Edge, threshold int, order []uuid.UUID) []uuid.UUID {
	fanout := make(map[uuid.UUID]int)
	for _, e := range edges {
		fanout[e.From]++
	}
	var result []uuid.UUID
	for _, id := range order {
		if fanout[id] >= threshold {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return fanout[result[i]] > fanout[result[j]]
	})
	return result
}

func groupByLevel(levels map[uuid.UUID]int, order []uuid.UUID) []ParallelGroup {
	byLevel := make(map[int][]uuid.UUID)
	for _, id := range order {
		lvl := levels[id]
		byLevel[lvl] = append(byLevel[lvl], id)
	}
	depths := make([]int, 0, len(byLevel))
	for d := range byLevel {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	groups := make([]ParallelGroup, 0, len(depths))
	for _, d := range depths {
		groups = append(groups, ParallelGroup{Depth: d, Members: byLevel[d]})
	}
	return groups
}
