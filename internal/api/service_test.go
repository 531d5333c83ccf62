package api

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/batchwrite"
	"github.com/jwwelbor/taskflow/internal/flowconfig"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/test"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := test.NewDB(t)
	flows := flowconfig.NewDefaultService()
	return New(store.New(db, flows), flows)
}

func createTask(t *testing.T, svc *Service, title string) uuid.UUID {
	t.Helper()
	resp := svc.ManageContainer(context.Background(), ManageContainerRequest{
		Operation: "create",
		Kind:      workitem.KindTask,
		Items:     []ItemInput{{Title: title, Summary: title + " summary"}},
	})
	if !resp.Success {
		t.Fatalf("create task %s: %v", title, resp.Error)
	}
	result := resp.Data.(*batchwrite.Result)
	return result.Applied[0]
}

// TestBatchCycleRejection covers scenario S3: a batch of dependency edges
// that would introduce a cycle is rejected atomically, leaving no partial
// edges persisted.
func TestBatchCycleRejection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := createTask(t, svc, "A")
	b := createTask(t, svc, "B")
	c := createTask(t, svc, "C")

	resp := svc.ManageDependencies(ctx, ManageDependenciesRequest{
		Operation: "create",
		Edges:     []EdgeInput{{From: a, To: b, Type: workitem.EdgeBlocks}},
	})
	if !resp.Success {
		t.Fatalf("seed edge a->b: %v", resp.Error)
	}

	cycleResp := svc.ManageDependencies(ctx, ManageDependenciesRequest{
		Operation: "create",
		Edges: []EdgeInput{
			{From: b, To: c, Type: workitem.EdgeBlocks},
			{From: c, To: a, Type: workitem.EdgeBlocks},
		},
	})
	if cycleResp.Success {
		t.Fatalf("expected batch b->c, c->a to be rejected, got success: %+v", cycleResp)
	}
	if cycleResp.Error == nil || cycleResp.Error.Code != string(apierr.KindCycleDetected) {
		t.Fatalf("expected CycleDetected, got %+v", cycleResp.Error)
	}

	neighbors := svc.QueryDependencies(ctx, QueryDependenciesRequest{TaskID: a, NeighborsOnly: true, Direction: workitem.DirectionIncoming})
	deps, _ := neighbors.Data.([]*workitem.Dependency)
	if len(deps) != 0 {
		t.Fatalf("expected no incoming edges persisted on task A after the rejected cycle, got %d", len(deps))
	}

	neighborsC := svc.QueryDependencies(ctx, QueryDependenciesRequest{TaskID: c, NeighborsOnly: true, Direction: workitem.DirectionIncoming})
	depsC, _ := neighborsC.Data.([]*workitem.Dependency)
	if len(depsC) != 0 {
		t.Fatalf("expected the batch's b->c edge not to be persisted after the rejected cycle, got %d incoming on task C", len(depsC))
	}
}

// TestFanOutPatternAndDuplicateRejection covers scenario S5: a fan-out
// pattern over 3 tasks creates 2 edges atomically; repeating it fails with
// DuplicateEdge and persists nothing new.
func TestFanOutPatternAndDuplicateRejection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	source := createTask(t, svc, "Source")
	t1 := createTask(t, svc, "T1")
	t2 := createTask(t, svc, "T2")

	resp := svc.ManageDependencies(ctx, ManageDependenciesRequest{
		Operation: "create",
		Pattern:   "fan-out",
		TaskIDs:   []uuid.UUID{source, t1, t2},
	})
	if !resp.Success {
		t.Fatalf("fan-out create: %v", resp.Error)
	}
	deps, _ := resp.Data.([]*workitem.Dependency)
	if len(deps) != 2 {
		t.Fatalf("expected 2 fan-out edges, got %d", len(deps))
	}

	repeat := svc.ManageDependencies(ctx, ManageDependenciesRequest{
		Operation: "create",
		Pattern:   "fan-out",
		TaskIDs:   []uuid.UUID{source, t1, t2},
	})
	if repeat.Success {
		t.Fatalf("expected repeating the fan-out pattern to fail, got success")
	}
	if repeat.Error == nil || repeat.Error.Code != string(apierr.KindDuplicateEdge) {
		t.Fatalf("expected DuplicateEdge, got %+v", repeat.Error)
	}

	neighbors := svc.QueryDependencies(ctx, QueryDependenciesRequest{TaskID: source, NeighborsOnly: true, Direction: workitem.DirectionOutgoing})
	outgoing, _ := neighbors.Data.([]*workitem.Dependency)
	if len(outgoing) != 2 {
		t.Fatalf("expected exactly the original 2 outgoing edges after the rejected repeat, got %d", len(outgoing))
	}
}

// TestManageSections covers the Section create/list/delete surface
// (SPEC_FULL.md C.3): sections attach to a task, list back in ordinal
// order, and a deleted section no longer appears.
func TestManageSections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	taskID := createTask(t, svc, "Task with sections")

	createResp := svc.ManageSections(ctx, ManageSectionsRequest{
		Operation: "create",
		Sections: []SectionInput{
			{EntityKind: workitem.KindTask, EntityID: taskID, Title: "Notes", Content: "first", Format: "note", Ordinal: 1},
			{EntityKind: workitem.KindTask, EntityID: taskID, Title: "Criteria", Content: "second", Format: "criteria", Ordinal: 0},
		},
	})
	if !createResp.Success {
		t.Fatalf("create sections: %v", createResp.Error)
	}

	listResp := svc.QuerySections(ctx, taskID)
	if !listResp.Success {
		t.Fatalf("list sections: %v", listResp.Error)
	}
	sections, _ := listResp.Data.([]*workitem.Section)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Title != "Criteria" || sections[1].Title != "Notes" {
		t.Fatalf("expected sections ordered by ordinal (Criteria, Notes), got (%s, %s)", sections[0].Title, sections[1].Title)
	}

	deleteResp := svc.ManageSections(ctx, ManageSectionsRequest{Operation: "delete", IDs: []uuid.UUID{sections[0].ID}})
	if !deleteResp.Success {
		t.Fatalf("delete section: %v", deleteResp.Error)
	}

	afterDelete := svc.QuerySections(ctx, taskID)
	remaining, _ := afterDelete.Data.([]*workitem.Section)
	if len(remaining) != 1 || remaining[0].Title != "Notes" {
		t.Fatalf("expected only Notes to remain after delete, got %+v", remaining)
	}
}
