package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/batchwrite"
	"github.com/jwwelbor/taskflow/internal/cascade"
	"github.com/jwwelbor/taskflow/internal/depgraph"
	"github.com/jwwelbor/taskflow/internal/executor"
	"github.com/jwwelbor/taskflow/internal/flowconfig"
	"github.com/jwwelbor/taskflow/internal/lockmgr"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/transition"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Service is the single entry point the tool surface calls; it owns every
// core component and exposes one method per command family in spec.md 6.
type Service struct {
	Store     *store.Store
	Flows     *flowconfig.Service
	Locks     *lockmgr.Manager
	Validator *transition.Validator
	Cascade   *cascade.Engine
	Executor  *executor.Executor
	Batch     *batchwrite.Coordinator
}

// New wires the full stack: Entity Store -> Flow Configuration -> Lock
// Manager -> Transition Validator -> Cascade Engine -> Transition Executor
// -> Batch Write Coordinator, the same dependency order spec.md 2's data
// flow diagram describes.
func New(st *store.Store, flows *flowconfig.Service) *Service {
	locks := lockmgr.New()
	validator := transition.New(flows, st)
	cascadeEngine := cascade.New(st, cascade.DefaultMaxDepth)
	exec := executor.New(st, locks, validator, cascadeEngine)
	batch := batchwrite.New(st, locks, cascadeEngine)
	return &Service{Store: st, Flows: flows, Locks: locks, Validator: validator, Cascade: cascadeEngine, Executor: exec, Batch: batch}
}

// --- ManageContainer (spec.md 6) ----------------------------------------

// ItemInput is one item of a ManageContainer create/update request.
type ItemInput struct {
	ID                   uuid.UUID
	ExpectedVersion      int64
	Title                string
	Description          string
	Summary              string
	Priority             *workitem.Priority
	Complexity           *int
	ParentID             *uuid.UUID
	ClearParent          bool
	Tags                 []string
	RequiresVerification *bool
}

// ManageContainerRequest models ManageContainer (spec.md 6).
type ManageContainerRequest struct {
	Operation        string // "create", "update", "delete"
	Kind             workitem.Kind
	Items            []ItemInput
	IDs              []uuid.UUID
	Cascade          bool
	PerItemReporting bool
	Session          string
}

// ManageContainer dispatches to the Batch Write Coordinator.
func (s *Service) ManageContainer(ctx context.Context, req ManageContainerRequest) *Response {
	switch req.Operation {
	case "create":
		items := make([]*workitem.WorkItem, 0, len(req.Items))
		for _, in := range req.Items {
			item := &workitem.WorkItem{
				ID:                   in.ID,
				Kind:                 req.Kind,
				Title:                in.Title,
				Description:          in.Description,
				Summary:              in.Summary,
				Priority:             in.Priority,
				Complexity:           in.Complexity,
				ParentID:             in.ParentID,
				Tags:                 workitem.NormalizedTags(in.Tags),
				RequiresVerification: in.RequiresVerification != nil && *in.RequiresVerification,
			}
			item.Status = initialStatus(s.Flows, req.Kind, item.Tags)
			items = append(items, item)
		}
		result, err := s.Batch.CreateBatch(ctx, req.Kind, items, req.Session, req.PerItemReporting)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("created %d of %d %s item(s)", len(result.Applied), len(items), req.Kind), result)

	case "update":
		reqs := make([]batchwrite.UpdateRequest, 0, len(req.Items))
		for _, in := range req.Items {
			patch := store.Patch{}
			if in.Title != "" {
				patch.Title = &in.Title
			}
			patch.Description = &in.Description
			patch.Summary = &in.Summary
			patch.Priority = in.Priority
			patch.Complexity = in.Complexity
			if in.ClearParent {
				patch.ParentID = store.ClearParent()
			} else if in.ParentID != nil {
				patch.ParentID = store.SetParent(*in.ParentID)
			}
			if in.Tags != nil {
				patch.Tags = &in.Tags
			}
			patch.RequiresVerification = in.RequiresVerification
			reqs = append(reqs, batchwrite.UpdateRequest{ID: in.ID, ExpectedVersion: in.ExpectedVersion, Patch: patch})
		}
		result, err := s.Batch.UpdateBatch(ctx, req.Kind, reqs, req.Session, req.PerItemReporting)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("updated %d of %d %s item(s)", len(result.Applied), len(reqs), req.Kind), result)

	case "delete":
		result, err := s.Batch.DeleteBatch(ctx, req.Kind, req.IDs, req.Cascade, req.Session, req.PerItemReporting)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("deleted %d of %d %s item(s)", len(result.Applied), len(req.IDs), req.Kind), result)

	default:
		return fail(apierr.New(apierr.KindValidation, fmt.Sprintf("unknown ManageContainer operation %q", req.Operation), nil))
	}
}

func initialStatus(flows *flowconfig.Service, kind workitem.Kind, tags []string) string {
	seq, err := flows.SequenceFor(kind, tags)
	if err != nil || len(seq) == 0 {
		return ""
	}
	return seq[0]
}

// --- RequestTransition (spec.md 6) --------------------------------------

// TransitionRequest is one entry of a RequestTransition call.
type TransitionRequest struct {
	EntityKind workitem.Kind
	ID         uuid.UUID
	Trigger    workitem.Trigger
	Session    string
}

// RequestTransition applies one or more transitions via the Executor.
func (s *Service) RequestTransition(ctx context.Context, requests []TransitionRequest) *Response {
	if len(requests) == 1 {
		r := requests[0]
		result, err := s.Executor.ApplyTransition(ctx, r.EntityKind, r.ID, r.Trigger, r.Session)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("%s %s transitioned %s -> %s", r.EntityKind, r.ID, result.PreviousStatus, result.NewStatus), result)
	}

	results := make([]*executor.TransitionResult, 0, len(requests))
	for _, r := range requests {
		result, err := s.Executor.ApplyTransition(ctx, r.EntityKind, r.ID, r.Trigger, r.Session)
		if err != nil {
			return fail(fmt.Errorf("transition %s %s: %w", r.EntityKind, r.ID, err))
		}
		results = append(results, result)
	}
	return ok(fmt.Sprintf("applied %d transition(s)", len(results)), results)
}

// --- ManageDependencies (spec.md 6) -------------------------------------

// EdgeInput is one explicit edge of a ManageDependencies create request.
type EdgeInput struct {
	From, To  uuid.UUID
	Type      workitem.EdgeType
	UnblockAt *workitem.Role
}

// ManageDependenciesRequest models ManageDependencies (spec.md 6),
// including the linear/fan-out/fan-in pattern shortcuts.
type ManageDependenciesRequest struct {
	Operation string // "create", "delete"
	Edges     []EdgeInput
	Pattern   string // "", "linear", "fan-out", "fan-in"
	TaskIDs   []uuid.UUID
	IDs       []uuid.UUID
	Session   string
}

// ManageDependencies creates or deletes dependency edges, expanding pattern
// shortcuts into explicit edges first (spec.md 6).
func (s *Service) ManageDependencies(ctx context.Context, req ManageDependenciesRequest) *Response {
	switch req.Operation {
	case "create":
		edges := req.Edges
		if req.Pattern != "" {
			expanded, err := expandPattern(req.Pattern, req.TaskIDs)
			if err != nil {
				return fail(err)
			}
			edges = expanded
		}
		reqs := make([]store.DependencyRequest, 0, len(edges))
		for _, e := range edges {
			reqs = append(reqs, store.DependencyRequest{From: e.From, To: e.To, Type: e.Type, UnblockAt: e.UnblockAt})
		}
		deps, err := s.Store.CreateDependenciesBatch(ctx, reqs)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("created %d dependency edge(s)", len(deps)), deps)

	case "delete":
		for _, id := range req.IDs {
			if err := s.Store.DeleteDependency(ctx, id); err != nil {
				return fail(err)
			}
		}
		return ok(fmt.Sprintf("deleted %d dependency edge(s)", len(req.IDs)), req.IDs)

	default:
		return fail(apierr.New(apierr.KindValidation, fmt.Sprintf("unknown ManageDependencies operation %q", req.Operation), nil))
	}
}

// expandPattern turns a pattern shortcut into explicit Blocks edges
// (spec.md 6): "linear" chains taskIds[0]->taskIds[1]->...; "fan-out" has
// taskIds[0] block every other id; "fan-in" has every other id block
// taskIds[len-1].
func expandPattern(pattern string, taskIDs []uuid.UUID) ([]EdgeInput, error) {
	if len(taskIDs) < 2 {
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("pattern %q requires at least 2 taskIds", pattern), nil)
	}
	var edges []EdgeInput
	switch pattern {
	case "linear":
		for i := 0; i < len(taskIDs)-1; i++ {
			edges = append(edges, EdgeInput{From: taskIDs[i], To: taskIDs[i+1], Type: workitem.EdgeBlocks})
		}
	case "fan-out":
		source := taskIDs[0]
		for _, target := range taskIDs[1:] {
			edges = append(edges, EdgeInput{From: source, To: target, Type: workitem.EdgeBlocks})
		}
	case "fan-in":
		target := taskIDs[len(taskIDs)-1]
		for _, source := range taskIDs[:len(taskIDs)-1] {
			edges = append(edges, EdgeInput{From: source, To: target, Type: workitem.EdgeBlocks})
		}
	default:
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown dependency pattern %q", pattern), nil)
	}
	return edges, nil
}

// --- ManageSections (spec.md 3, SPEC_FULL.md C.3) ------------------------

// SectionInput is one section of a ManageSections create request.
type SectionInput struct {
	EntityKind workitem.Kind
	EntityID   uuid.UUID
	Title      string
	Content    string
	Format     string
	Ordinal    int
	Tags       []string
}

// ManageSectionsRequest models the create/delete surface over the opaque
// Section content blocks attached to a WorkItem (spec.md 3: "the core
// manipulates sections only as opaque payloads").
type ManageSectionsRequest struct {
	Operation string // "create", "delete"
	Sections  []SectionInput
	IDs       []uuid.UUID
}

// ManageSections creates or deletes Section rows. Template expansion into
// Content is the tool surface's responsibility (spec.md 1); the core only
// persists and cascades the opaque payload.
func (s *Service) ManageSections(ctx context.Context, req ManageSectionsRequest) *Response {
	switch req.Operation {
	case "create":
		created := make([]*workitem.Section, 0, len(req.Sections))
		for _, in := range req.Sections {
			sec := &workitem.Section{
				EntityKind: in.EntityKind,
				EntityID:   in.EntityID,
				Title:      in.Title,
				Content:    in.Content,
				Format:     in.Format,
				Ordinal:    in.Ordinal,
				Tags:       workitem.NormalizedTags(in.Tags),
			}
			if err := s.Store.CreateSection(ctx, sec); err != nil {
				return fail(err)
			}
			created = append(created, sec)
		}
		return ok(fmt.Sprintf("created %d section(s)", len(created)), created)

	case "delete":
		for _, id := range req.IDs {
			if err := s.Store.DeleteSection(ctx, id); err != nil {
				return fail(err)
			}
		}
		return ok(fmt.Sprintf("deleted %d section(s)", len(req.IDs)), req.IDs)

	default:
		return fail(apierr.New(apierr.KindValidation, fmt.Sprintf("unknown ManageSections operation %q", req.Operation), nil))
	}
}

// QuerySections lists every Section attached to entityID, ordered by Ordinal.
func (s *Service) QuerySections(ctx context.Context, entityID uuid.UUID) *Response {
	sections, err := s.Store.ListSections(ctx, entityID)
	if err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("found %d section(s)", len(sections)), sections)
}

// --- Query commands (spec.md 6), read-only ------------------------------

// QueryContainer lists items of kind matching filter.
func (s *Service) QueryContainer(ctx context.Context, kind workitem.Kind, filter store.Filter) *Response {
	items, err := s.Store.List(ctx, kind, filter)
	if err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("found %d %s item(s)", len(items), kind), items)
}

// QueryDependenciesRequest models QueryDependencies (spec.md 4.5, 6).
type QueryDependenciesRequest struct {
	TaskID              uuid.UUID
	NeighborsOnly       bool
	Direction           workitem.Direction
	TypeFilter          *workitem.StoredEdgeType
	BottleneckThreshold int
}

// QueryDependencies answers a neighbor query or a full graph traversal
// (spec.md 4.5) depending on NeighborsOnly.
func (s *Service) QueryDependencies(ctx context.Context, req QueryDependenciesRequest) *Response {
	if req.NeighborsOnly {
		deps, err := s.Store.FindDependenciesByTask(ctx, req.TaskID, req.Direction, req.TypeFilter)
		if err != nil {
			return fail(err)
		}
		return ok(fmt.Sprintf("found %d neighbor edge(s)", len(deps)), deps)
	}

	blocks, _, err := s.Store.AllDependencyEdges(ctx)
	if err != nil {
		return fail(err)
	}
	nodes, err := s.taskNodes(ctx, blocks)
	if err != nil {
		return fail(err)
	}
	analysis := depgraph.Analyze(nodes, blocks, req.TaskID, req.BottleneckThreshold)
	return ok(fmt.Sprintf("analyzed %d reachable task(s)", len(analysis.Chain)), analysis)
}

func (s *Service) taskNodes(ctx context.Context, edges []depgraph.Edge) (map[uuid.UUID]depgraph.Node, error) {
	ids := make(map[uuid.UUID]bool)
	for _, e := range edges {
		ids[e.From] = true
		ids[e.To] = true
	}
	nodes := make(map[uuid.UUID]depgraph.Node, len(ids))
	for id := range ids {
		item, err := s.Store.Get(ctx, workitem.KindTask, id)
		if err != nil {
			return nil, err
		}
		complexity := workitem.DefaultComplexity
		if item.Complexity != nil {
			complexity = *item.Complexity
		}
		nodes[id] = depgraph.Node{ID: id, Complexity: complexity}
	}
	return nodes, nil
}

// QueryRoleTransitions returns entityID's audit log, optionally bounded to
// [since, until).
func (s *Service) QueryRoleTransitions(ctx context.Context, entityID uuid.UUID, since, until time.Time) *Response {
	history, err := s.Store.ListRoleTransitions(ctx, entityID, since, until)
	if err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("found %d role transition(s)", len(history)), history)
}

// GetNextStatus previews what `start` would resolve to for (kind, status,
// tags) without mutating anything (spec.md 6).
func (s *Service) GetNextStatus(ctx context.Context, kind workitem.Kind, status string, tags []string) *Response {
	seq, err := s.Flows.SequenceFor(kind, tags)
	if err != nil {
		return fail(err)
	}
	idx := -1
	for i, st := range seq {
		if st == status {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(seq)-1 {
		return ok(fmt.Sprintf("%s has no next status", status), map[string]interface{}{"next": nil, "sequence": seq})
	}
	return ok(fmt.Sprintf("next status after %s is %s", status, seq[idx+1]), map[string]interface{}{"next": seq[idx+1], "sequence": seq})
}
