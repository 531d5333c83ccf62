// Package executor implements the Transition Executor (spec.md 4.7): it
// orchestrates the Lock Manager, Transition Validator, Entity Store and
// Cascade Engine into the single operation the rest of the system calls to
// move an entity from one status to another.
//
// Grounded on the teacher's internal/repository/task_repository.go
// UpdateStatus/ReopenTaskWithAutoBlock control flow: a transaction-backed
// write, a history-table append in the same operation, and cascading side
// effects triggered from the same call.
package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/cascade"
	"github.com/jwwelbor/taskflow/internal/lockmgr"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/transition"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// TransitionResult is the full effect set of one applyTransition call
// (spec.md 4.7 step 9).
type TransitionResult struct {
	PreviousStatus string
	NewStatus      string
	PreviousRole   workitem.Role
	NewRole        workitem.Role
	ActiveFlow     string
	FlowSequence   []string
	FlowPosition   int
	CascadeEvents  []cascade.CascadeEvent
	UnblockedTasks []uuid.UUID
}

// Executor is the Transition Executor.
type Executor struct {
	store     *store.Store
	locks     *lockmgr.Manager
	validator *transition.Validator
	cascade   *cascade.Engine
}

// New wires an Executor and registers it as cascadeEngine's
// TransitionApplier, closing the recursive loop described in
// internal/cascade's package doc.
func New(st *store.Store, locks *lockmgr.Manager, validator *transition.Validator, cascadeEngine *cascade.Engine) *Executor {
	e := &Executor{store: st, locks: locks, validator: validator, cascade: cascadeEngine}
	cascadeEngine.SetApplier(e)
	return e
}

// ApplyTransition is the public entry point (spec.md 4.7): resolve and
// apply trigger against (entityKind, id) on behalf of session.
func (e *Executor) ApplyTransition(ctx context.Context, kind workitem.Kind, id uuid.UUID, trigger workitem.Trigger, session string) (*TransitionResult, error) {
	return e.applyAtDepth(ctx, kind, id, trigger, session, false, 0)
}

// ApplyCascadeTransition implements cascade.TransitionApplier: the Cascade
// Engine calls back into the Executor to drive a parent's automatic
// `complete` transition, one recursion level deeper.
func (e *Executor) ApplyCascadeTransition(ctx context.Context, kind workitem.Kind, id uuid.UUID, trigger workitem.Trigger, session string, depth int) (fromStatus, toStatus string, childEvents []cascade.CascadeEvent, unblocked []uuid.UUID, err error) {
	result, err := e.applyAtDepth(ctx, kind, id, trigger, session, true, depth)
	if err != nil {
		return "", "", nil, nil, err
	}
	return result.PreviousStatus, result.NewStatus, result.CascadeEvents, result.UnblockedTasks, nil
}

const maxVersionRetries = 2

func (e *Executor) applyAtDepth(ctx context.Context, kind workitem.Kind, id uuid.UUID, trigger workitem.Trigger, session string, automatic bool, depth int) (*TransitionResult, error) {
	lock, err := e.locks.Acquire(lockmgr.Key{Kind: kind, ID: id}, session, 0)
	if err != nil {
		return nil, err
	}
	defer e.locks.Release(lock)

	var item *workitem.WorkItem
	var resolved *transition.Transition

	for attempt := 0; ; attempt++ {
		item, err = e.store.Get(ctx, kind, id)
		if err != nil {
			return nil, err
		}

		resolved, err = e.validator.Resolve(ctx, item, trigger)
		if err != nil {
			return nil, err
		}

		status := resolved.ToStatus
		updated, err := e.store.Update(ctx, kind, id, item.Version, store.Patch{Status: &status})
		if err == nil {
			item = updated
			break
		}
		if apierr.Is(err, apierr.KindVersionMismatch) {
			if attempt >= maxVersionRetries-1 {
				return nil, apierr.New(apierr.KindContended,
					fmt.Sprintf("%s %s could not be updated after %d attempts due to concurrent writers", kind, id, maxVersionRetries), nil)
			}
			continue
		}
		return nil, err
	}

	rt := &workitem.RoleTransition{
		EntityID:   id,
		EntityKind: kind,
		FromRole:   resolved.FromRole,
		ToRole:     resolved.ToRole,
		FromStatus: resolved.FromStatus,
		ToStatus:   resolved.ToStatus,
		Trigger:    trigger,
		Summary:    item.Summary,
		Automatic:  automatic,
	}
	if err := e.store.AppendRoleTransition(ctx, rt); err != nil {
		return nil, fmt.Errorf("append role transition: %w", err)
	}

	cascadeEvents, unblocked, err := e.cascade.Run(ctx, item, resolved.FromRole, session, depth)
	if err != nil {
		return nil, fmt.Errorf("cascade: %w", err)
	}

	return &TransitionResult{
		PreviousStatus: resolved.FromStatus,
		NewStatus:      resolved.ToStatus,
		PreviousRole:   resolved.FromRole,
		NewRole:        resolved.ToRole,
		ActiveFlow:     resolved.ActiveFlow,
		FlowSequence:   resolved.Sequence,
		FlowPosition:   resolved.FlowPosition,
		CascadeEvents:  cascadeEvents,
		UnblockedTasks: unblocked,
	}, nil
}
