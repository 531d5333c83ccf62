package depgraph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCycle_NoCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	existing := []Edge{{From: a, To: b}}
	pending := []Edge{{From: b, To: c}}
	require.NoError(t, DetectCycle(existing, pending))
}

func TestDetectCycle_DirectCycle(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	existing := []Edge{{From: a, To: b}}
	pending := []Edge{{From: b, To: a}}

	err := DetectCycle(existing, pending)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindCycleDetected))
}

func TestDetectCycle_TransitiveCycleAcrossBatch(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	existing := []Edge{{From: a, To: b}, {From: b, To: c}}
	pending := []Edge{{From: c, To: a}}

	err := DetectCycle(existing, pending)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindCycleDetected))
}

func TestDetectDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	existing := []NewEdge{{Edge: Edge{From: a, To: b}, Type: "blocks"}}

	err := DetectDuplicates(existing, []NewEdge{{Edge: Edge{From: a, To: b}, Type: "blocks"}})
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindDuplicateEdge))

	err = DetectDuplicates(existing, []NewEdge{{Edge: Edge{From: a, To: b}, Type: "relates_to"}})
	assert.NoError(t, err, "same pair with a different edge type is not a duplicate")
}

func TestDetectDuplicates_WithinPendingBatch(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	pending := []NewEdge{
		{Edge: Edge{From: a, To: b}, Type: "blocks"},
		{Edge: Edge{From: a, To: b}, Type: "blocks"},
	}
	err := DetectDuplicates(nil, pending)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindDuplicateEdge))
}

func TestNeighbors(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	edges := []Edge{{From: a, To: b}, {From: c, To: b}}

	res := Neighbors(edges, b, workitem.DirectionAll)
	assert.ElementsMatch(t, []uuid.UUID{a, c}, res.Incoming)
	assert.Empty(t, res.Outgoing)

	res = Neighbors(edges, a, workitem.DirectionOutgoing)
	assert.Equal(t, []uuid.UUID{b}, res.Outgoing)
	assert.Empty(t, res.Incoming)
}

// Linear chain a->b->c->d: depth 3, single critical path, no bottlenecks,
// every node its own parallel group.
func TestAnalyze_LinearChain(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	nodes := map[uuid.UUID]Node{
		a: {ID: a, Complexity: 1}, b: {ID: b, Complexity: 1},
		c: {ID: c, Complexity: 1}, d: {ID: d, Complexity: 1},
	}
	edges := []Edge{{From: a, To: b}, {From: b, To: c}, {From: c, To: d}}

	analysis := Analyze(nodes, edges, a, 0)
	assert.Equal(t, 3, analysis.Depth)
	assert.Equal(t, []uuid.UUID{a, b, c, d}, analysis.CriticalPath)
	assert.Len(t, analysis.Chain, 4)
	assert.Empty(t, analysis.Bottlenecks)
	assert.Len(t, analysis.Parallelizable, 4)
}

// Fan-out a->{b,c,d}: a has fan-out 3, meets the default bottleneck
// threshold, and b/c/d share parallel level 1.
func TestAnalyze_FanOutBottleneck(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	nodes := map[uuid.UUID]Node{
		a: {ID: a}, b: {ID: b}, c: {ID: c}, d: {ID: d},
	}
	edges := []Edge{{From: a, To: b}, {From: a, To: c}, {From: a, To: d}}

	analysis := Analyze(nodes, edges, a, 0)
	require.Len(t, analysis.Bottlenecks, 1)
	assert.Equal(t, a, analysis.Bottlenecks[0])

	require.Len(t, analysis.Parallelizable, 2)
	assert.Equal(t, 0, analysis.Parallelizable[0].Depth)
	assert.ElementsMatch(t, []uuid.UUID{a}, analysis.Parallelizable[0].Members)
	assert.ElementsMatch(t, []uuid.UUID{b, c, d}, analysis.Parallelizable[1].Members)
}
