// Package cascade implements the Cascade Engine (spec.md 4.6): after a
// transition is written, it detects whether the transitioned entity's
// siblings are now all Terminal and, if so, drives the parent's `complete`
// trigger through the Transition Executor; it also detects tasks unblocked
// by the transition.
//
// Recursion is delegated back through the Transition Executor rather than
// implemented as direct self-recursion here (spec.md 9 "Cascade recursion
// vs iteration": the depth cap must stay observable and fan-out
// reproducible) — TransitionApplier.ApplyCascadeTransition is the
// Executor's own applyTransition, called one level up with depth+1, so the
// same lock-acquire/validate/write/audit/cascade pipeline governs every
// level of the hierarchy uniformly, the same "are all siblings terminal"
// computation the teacher's internal/status/derivation.go
// DeriveFeatureStatus/DeriveEpicStatus perform, just evaluated bottom-up
// on completion instead of top-down on reopen.
package cascade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// DefaultMaxDepth caps cascade recursion (spec.md 4.6).
const DefaultMaxDepth = 3

// CascadeEvent records one attempted automatic transition (spec.md 4.6).
type CascadeEvent struct {
	TargetKind    workitem.Kind
	TargetID      uuid.UUID
	FromStatus    string
	ToStatus      string
	Applied       bool
	Automatic     bool
	Error         string
	ChildCascades []CascadeEvent
}

// TransitionApplier is the subset of internal/executor.Executor the
// Cascade Engine drives recursively. Defined here (rather than imported
// from internal/executor) to avoid a package cycle: internal/executor
// imports internal/cascade, not the other way around.
type TransitionApplier interface {
	ApplyCascadeTransition(ctx context.Context, kind workitem.Kind, id uuid.UUID, trigger workitem.Trigger, session string, depth int) (fromStatus, toStatus string, childEvents []CascadeEvent, unblocked []uuid.UUID, err error)
}

// Engine is the Cascade Engine.
type Engine struct {
	store    *store.Store
	applier  TransitionApplier
	maxDepth int
}

// New builds an Engine. applier is nil-able at construction time only
// because internal/executor constructs itself and the Engine together;
// SetApplier must be called before Run (see internal/executor.New).
func New(st *store.Store, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Engine{store: st, maxDepth: maxDepth}
}

// SetApplier wires the Transition Executor this Engine recurses through.
func (e *Engine) SetApplier(applier TransitionApplier) {
	e.applier = applier
}

// Run evaluates cascade propagation and unblock detection for item, which
// must already reflect its newly-written status/role (the caller writes
// before invoking Run, per spec.md 4.7 step 7). fromRole is item's role
// immediately before this transition, needed for unblock detection's
// "previously failed on this edge specifically" check (spec.md 4.6).
// depth is the current cascade recursion depth (0 for a directly-requested
// transition).
func (e *Engine) Run(ctx context.Context, item *workitem.WorkItem, fromRole workitem.Role, session string, depth int) ([]CascadeEvent, []uuid.UUID, error) {
	var events []CascadeEvent
	var unblocked []uuid.UUID

	if item.Kind == workitem.KindTask {
		ub, err := e.detectUnblocked(ctx, item, fromRole)
		if err != nil {
			return nil, nil, err
		}
		unblocked = ub
	}

	if item.Role == workitem.RoleTerminal && item.ParentID != nil {
		event, err := e.EvaluateParent(ctx, *item.ParentID, session, depth)
		if err != nil {
			return nil, nil, err
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	return events, dedupeIDs(unblocked), nil
}

// EvaluateParent checks whether parentID's children are now all Terminal
// and, if so, drives its `complete` trigger through the Executor. It is
// exported so internal/batchwrite can trigger the same sibling-completion
// check after a delete that has no "transitioned item" of its own (spec.md
// 4.8: "any implicit cascade ... is evaluated via the Cascade Engine after
// commit").
func (e *Engine) EvaluateParent(ctx context.Context, parentID uuid.UUID, session string, depth int) (*CascadeEvent, error) {
	parent, err := e.store.GetAny(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Role == workitem.RoleTerminal {
		return nil, nil
	}

	siblings, err := e.store.ChildrenRoles(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.Role != workitem.RoleTerminal {
			return nil, nil
		}
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	if depth >= e.maxDepth {
		return &CascadeEvent{
			TargetKind: parent.Kind,
			TargetID:   parent.ID,
			FromStatus: parent.Status,
			Applied:    false,
			Automatic:  true,
			Error:      fmt.Sprintf("max cascade depth %d reached", e.maxDepth),
		}, nil
	}

	fromStatus, toStatus, childEvents, _, applyErr := e.applier.ApplyCascadeTransition(ctx, parent.Kind, parent.ID, workitem.TriggerComplete, session, depth+1)
	event := &CascadeEvent{
		TargetKind:    parent.Kind,
		TargetID:      parent.ID,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		Applied:       applyErr == nil,
		Automatic:     true,
		ChildCascades: childEvents,
	}
	if applyErr != nil {
		event.FromStatus = parent.Status
		event.Error = applyErr.Error()
	}
	return event, nil
}

// detectUnblocked implements spec.md 4.6's unblock detection: for each
// outgoing Blocks edge of item whose unblockAt gate item's transition just
// satisfied (and did not satisfy before), check whether the downstream
// task's full dependency gate now passes.
func (e *Engine) detectUnblocked(ctx context.Context, item *workitem.WorkItem, fromRole workitem.Role) ([]uuid.UUID, error) {
	blocksType := workitem.StoredBlocks
	outgoing, err := e.store.FindDependenciesByTask(ctx, item.ID, workitem.DirectionOutgoing, &blocksType)
	if err != nil {
		return nil, err
	}

	var unblocked []uuid.UUID
	for _, edge := range outgoing {
		gate := edge.EffectiveUnblockAt()
		if fromRole.AtLeast(gate) || !item.Role.AtLeast(gate) {
			continue // not flipped by this transition
		}
		satisfied, err := e.allIncomingSatisfied(ctx, edge.ToTaskID)
		if err != nil {
			return nil, err
		}
		if satisfied {
			unblocked = append(unblocked, edge.ToTaskID)
		}
	}
	return unblocked, nil
}

func (e *Engine) allIncomingSatisfied(ctx context.Context, taskID uuid.UUID) (bool, error) {
	blocksType := workitem.StoredBlocks
	incoming, err := e.store.FindDependenciesByTask(ctx, taskID, workitem.DirectionIncoming, &blocksType)
	if err != nil {
		return false, err
	}
	for _, dep := range incoming {
		source, err := e.store.Get(ctx, workitem.KindTask, dep.FromTaskID)
		if err != nil {
			return false, err
		}
		if !source.Role.AtLeast(dep.EffectiveUnblockAt()) {
			return false, nil
		}
	}
	return true, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
