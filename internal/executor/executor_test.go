package executor

import (
	"context"
	"testing"

	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/cascade"
	"github.com/jwwelbor/taskflow/internal/flowconfig"
	"github.com/jwwelbor/taskflow/internal/lockmgr"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/test"
	"github.com/jwwelbor/taskflow/internal/transition"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

const testSession = "test-session"

func newHarness(t *testing.T) (*store.Store, *Executor) {
	t.Helper()
	db := test.NewDB(t)
	flows := flowconfig.NewDefaultService()
	st := store.New(db, flows)
	locks := lockmgr.New()
	validator := transition.New(flows, st)
	cascadeEngine := cascade.New(st, cascade.DefaultMaxDepth)
	exec := New(st, locks, validator, cascadeEngine)
	return st, exec
}

func mustCreate(t *testing.T, st *store.Store, item *workitem.WorkItem) *workitem.WorkItem {
	t.Helper()
	if err := st.CreateBatch(context.Background(), []*workitem.WorkItem{item}); err != nil {
		t.Fatalf("create %s: %v", item.Title, err)
	}
	got, err := st.Get(context.Background(), item.Kind, item.ID)
	if err != nil {
		t.Fatalf("get %s: %v", item.Title, err)
	}
	return got
}

// TestLinearCompletionCascade covers scenario S1: two sibling tasks under a
// feature under a project both completing cascades the feature, then the
// project, to completed.
func TestLinearCompletionCascade(t *testing.T) {
	st, exec := newHarness(t)
	ctx := context.Background()

	project := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindProject, Title: "Project", Summary: "proj summary", Status: "planning"})
	feature := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindFeature, Title: "Feature", ParentID: &project.ID, Summary: "feat summary", Status: "planning"})
	taskA := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "Task A", ParentID: &feature.ID, Summary: "a summary", Status: "pending"})
	taskB := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "Task B", ParentID: &feature.ID, Summary: "b summary", Status: "pending"})

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskA.ID, workitem.TriggerStart, testSession); err != nil {
		t.Fatalf("start task A: %v", err)
	}
	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskB.ID, workitem.TriggerStart, testSession); err != nil {
		t.Fatalf("start task B: %v", err)
	}

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskA.ID, workitem.TriggerComplete, testSession); err != nil {
		t.Fatalf("complete task A: %v", err)
	}
	feat, err := st.Get(ctx, workitem.KindFeature, feature.ID)
	if err != nil {
		t.Fatalf("get feature: %v", err)
	}
	if feat.Status == "completed" {
		t.Fatalf("feature completed early, with task B still open")
	}

	result, err := exec.ApplyTransition(ctx, workitem.KindTask, taskB.ID, workitem.TriggerComplete, testSession)
	if err != nil {
		t.Fatalf("complete task B: %v", err)
	}
	if len(result.CascadeEvents) != 1 {
		t.Fatalf("expected one cascade event (feature), got %d", len(result.CascadeEvents))
	}
	featEvent := result.CascadeEvents[0]
	if !featEvent.Applied || featEvent.TargetID != feature.ID {
		t.Fatalf("expected feature to cascade-complete, got %+v", featEvent)
	}
	if len(featEvent.ChildCascades) != 1 || !featEvent.ChildCascades[0].Applied || featEvent.ChildCascades[0].TargetID != project.ID {
		t.Fatalf("expected feature's completion to cascade the project, got %+v", featEvent.ChildCascades)
	}

	feat, err = st.Get(ctx, workitem.KindFeature, feature.ID)
	if err != nil {
		t.Fatalf("get feature: %v", err)
	}
	if feat.Status != "completed" {
		t.Fatalf("expected feature completed, got %q", feat.Status)
	}
	proj, err := st.Get(ctx, workitem.KindProject, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if proj.Status != "completed" {
		t.Fatalf("expected project completed, got %q", proj.Status)
	}
}

// TestEarlyUnblockViaUnblockAtReview covers scenario S2: task B is blocked
// by task A with unblockAt=review; it unblocks as soon as A reaches
// in_review, without waiting for A to complete.
func TestEarlyUnblockViaUnblockAtReview(t *testing.T) {
	st, exec := newHarness(t)
	ctx := context.Background()

	taskA := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "Task A", Summary: "a summary", Status: "pending"})
	taskB := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "Task B", Summary: "b summary", Status: "pending"})

	reviewRole := workitem.RoleReview
	if _, err := st.CreateDependenciesBatch(ctx, []store.DependencyRequest{
		{From: taskA.ID, To: taskB.ID, Type: workitem.EdgeBlocks, UnblockAt: &reviewRole},
	}); err != nil {
		t.Fatalf("create dependency: %v", err)
	}

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskB.ID, workitem.TriggerStart, testSession); !apierr.Is(err, apierr.KindBlockedBy) {
		t.Fatalf("expected BlockedBy starting task B before A reaches review, got %v", err)
	}

	// Task A: pending -> in_progress.
	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskA.ID, workitem.TriggerStart, testSession); err != nil {
		t.Fatalf("start task A: %v", err)
	}
	// Task A: in_progress -> in_review (start advances along the sequence).
	resultA, err := exec.ApplyTransition(ctx, workitem.KindTask, taskA.ID, workitem.TriggerStart, testSession)
	if err != nil {
		t.Fatalf("advance task A to review: %v", err)
	}
	if resultA.NewStatus != "in_review" {
		t.Fatalf("expected task A in in_review, got %q", resultA.NewStatus)
	}

	found := false
	for _, id := range resultA.UnblockedTasks {
		if id == taskB.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected task B to be reported unblocked once A reached review, got %+v", resultA.UnblockedTasks)
	}

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, taskB.ID, workitem.TriggerStart, testSession); err != nil {
		t.Fatalf("expected task B startable once A reached review, got %v", err)
	}
}

// TestMissingSummaryBlocksCompletion covers scenario S4: a task entering a
// Terminal status without a summary is rejected, with its version left
// untouched for a retry once the summary is set.
func TestMissingSummaryBlocksCompletion(t *testing.T) {
	st, exec := newHarness(t)
	ctx := context.Background()

	task := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "No summary yet", Status: "pending"})
	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, task.ID, workitem.TriggerStart, testSession); err != nil {
		t.Fatalf("start task: %v", err)
	}

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, task.ID, workitem.TriggerComplete, testSession); !apierr.Is(err, apierr.KindMissingSummary) {
		t.Fatalf("expected MissingSummary completing a task with no summary, got %v", err)
	}

	reloaded, err := st.Get(ctx, workitem.KindTask, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if reloaded.Version != 2 {
		t.Fatalf("expected version to still be 2 (only the start transition applied), got %d", reloaded.Version)
	}

	summary := "done"
	if _, err := st.Update(ctx, workitem.KindTask, task.ID, reloaded.Version, store.Patch{Summary: &summary}); err != nil {
		t.Fatalf("set summary: %v", err)
	}

	if _, err := exec.ApplyTransition(ctx, workitem.KindTask, task.ID, workitem.TriggerComplete, testSession); err != nil {
		t.Fatalf("expected completion to succeed once summary is set, got %v", err)
	}
}

// TestVersionConflictRetry covers scenario S6: a write against a stale
// expectedVersion fails with VersionMismatch; re-reading the current
// version and retrying succeeds.
func TestVersionConflictRetry(t *testing.T) {
	st, _ := newHarness(t)
	ctx := context.Background()

	task := mustCreate(t, st, &workitem.WorkItem{Kind: workitem.KindTask, Title: "Racy task", Status: "pending"})

	newTitle := "First writer"
	if _, err := st.Update(ctx, workitem.KindTask, task.ID, task.Version, store.Patch{Title: &newTitle}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	staleTitle := "Second writer, stale"
	_, err := st.Update(ctx, workitem.KindTask, task.ID, task.Version, store.Patch{Title: &staleTitle})
	if !apierr.Is(err, apierr.KindVersionMismatch) {
		t.Fatalf("expected VersionMismatch writing against a stale version, got %v", err)
	}

	current, err := st.Get(ctx, workitem.KindTask, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	retryTitle := "Second writer, retried"
	updated, err := st.Update(ctx, workitem.KindTask, task.ID, current.Version, store.Patch{Title: &retryTitle})
	if err != nil {
		t.Fatalf("retry update: %v", err)
	}
	if updated.Title != retryTitle {
		t.Fatalf("expected retried title to stick, got %q", updated.Title)
	}
}
