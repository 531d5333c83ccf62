// Package batchwrite implements the Batch Write Coordinator (spec.md 4.8):
// multi-item create/update/delete against a single entity kind, locked in
// canonical order, committed together, with either all-or-nothing or
// per-item error reporting.
//
// Grounded on the teacher's internal/repository/task_repository.go
// BulkCreate's multi-row transactional write; the concurrent static
// validation phase is grounded on the wider example pack's errgroup
// fan-out idiom (golang.org/x/sync/errgroup).
package batchwrite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/cascade"
	"github.com/jwwelbor/taskflow/internal/lockmgr"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is N from spec.md 4.8.
const MaxBatchSize = 100

// Rejected describes one item a per-item-reporting batch declined to apply.
type Rejected struct {
	Index int
	ID    uuid.UUID
	Error string
}

// Result is the response shape of every batch operation (spec.md 4.8).
type Result struct {
	Applied        []uuid.UUID
	Rejected       []Rejected
	ModifiedIDs    []uuid.UUID
	CascadeEvents  []cascade.CascadeEvent
	UnblockedTasks []uuid.UUID
}

// Coordinator is the Batch Write Coordinator.
type Coordinator struct {
	store   *store.Store
	locks   *lockmgr.Manager
	cascade *cascade.Engine
}

// New builds a Coordinator.
func New(st *store.Store, locks *lockmgr.Manager, cascadeEngine *cascade.Engine) *Coordinator {
	return &Coordinator{store: st, locks: locks, cascade: cascadeEngine}
}

// UpdateRequest is one item of an updateBatch call.
type UpdateRequest struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Patch           store.Patch
}

// CreateBatch validates and persists items for kind (spec.md 4.8). Every
// item must already carry Kind == kind.
func (c *Coordinator) CreateBatch(ctx context.Context, kind workitem.Kind, items []*workitem.WorkItem, session string, perItemReporting bool) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}
	if len(items) > MaxBatchSize {
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("batch of %d items exceeds the %d-item limit", len(items), MaxBatchSize), nil)
	}

	keys := make([]lockmgr.Key, 0, len(items))
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		keys = append(keys, lockmgr.Key{Kind: kind, ID: item.ID})
		if item.ParentID != nil {
			keys = append(keys, lockmgr.Key{Kind: parentKindGuess(kind), ID: *item.ParentID})
		}
	}
	locks, err := c.locks.AcquireMany(keys, session, 0)
	if err != nil {
		return nil, err
	}
	defer c.locks.ReleaseAll(locks)

	validItems, rejected := staticValidateCreate(items)
	if len(rejected) > 0 && !perItemReporting {
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("batch create rejected %d of %d items", len(rejected), len(items)), map[string]interface{}{"rejected": rejected})
	}

	if err := c.store.CreateBatch(ctx, validItems); err != nil {
		return nil, err
	}

	applied := make([]uuid.UUID, 0, len(validItems))
	for _, item := range validItems {
		applied = append(applied, item.ID)
	}
	return &Result{Applied: applied, Rejected: rejected, ModifiedIDs: applied}, nil
}

// UpdateBatch applies direct field patches to each request (spec.md 4.8).
// Status is never part of a batch patch: status only moves through
// internal/executor's trigger-resolved transitions (spec.md 3).
func (c *Coordinator) UpdateBatch(ctx context.Context, kind workitem.Kind, requests []UpdateRequest, session string, perItemReporting bool) (*Result, error) {
	if len(requests) == 0 {
		return &Result{}, nil
	}
	if len(requests) > MaxBatchSize {
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("batch of %d items exceeds the %d-item limit", len(requests), MaxBatchSize), nil)
	}
	for _, r := range requests {
		if r.Patch.Status != nil {
			return nil, apierr.New(apierr.KindValidation, "status cannot be set via a direct batch update; use RequestTransition", nil)
		}
	}

	keys := make([]lockmgr.Key, 0, len(requests))
	for _, r := range requests {
		keys = append(keys, lockmgr.Key{Kind: kind, ID: r.ID})
	}
	locks, err := c.locks.AcquireMany(keys, session, 0)
	if err != nil {
		return nil, err
	}
	defer c.locks.ReleaseAll(locks)

	var applied, modified []uuid.UUID
	var rejected []Rejected
	for i, r := range requests {
		item, err := c.store.Update(ctx, kind, r.ID, r.ExpectedVersion, r.Patch)
		if err != nil {
			if !perItemReporting {
				return nil, err
			}
			rejected = append(rejected, Rejected{Index: i, ID: r.ID, Error: err.Error()})
			continue
		}
		applied = append(applied, item.ID)
		modified = append(modified, item.ID)
	}
	return &Result{Applied: applied, Rejected: rejected, ModifiedIDs: modified}, nil
}

// DeleteBatch removes items (spec.md 4.8), cascading per-item if cascade is
// set, and evaluates any parent completion the deletions now satisfy.
func (c *Coordinator) DeleteBatch(ctx context.Context, kind workitem.Kind, ids []uuid.UUID, cascadeDelete bool, session string, perItemReporting bool) (*Result, error) {
	if len(ids) == 0 {
		return &Result{}, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("batch of %d items exceeds the %d-item limit", len(ids), MaxBatchSize), nil)
	}

	keys := make([]lockmgr.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, lockmgr.Key{Kind: kind, ID: id})
	}
	locks, err := c.locks.AcquireMany(keys, session, 0)
	if err != nil {
		return nil, err
	}
	defer c.locks.ReleaseAll(locks)

	parents := make(map[uuid.UUID]bool)
	var applied, modified []uuid.UUID
	var rejected []Rejected
	for i, id := range ids {
		item, getErr := c.store.Get(ctx, kind, id)
		if getErr == nil && item.ParentID != nil {
			parents[*item.ParentID] = true
		}
		_, err := c.store.Delete(ctx, kind, id, cascadeDelete)
		if err != nil {
			if !perItemReporting {
				return nil, err
			}
			rejected = append(rejected, Rejected{Index: i, ID: id, Error: err.Error()})
			continue
		}
		applied = append(applied, id)
		modified = append(modified, id)
	}

	var events []cascade.CascadeEvent
	for parentID := range parents {
		event, err := c.cascade.EvaluateParent(ctx, parentID, session, 0)
		if err != nil {
			return nil, fmt.Errorf("evaluate parent cascade for %s: %w", parentID, err)
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	return &Result{Applied: applied, Rejected: rejected, ModifiedIDs: modified, CascadeEvents: events}, nil
}

// staticValidateCreate runs per-item field validation concurrently
// (errgroup, grounded on the wider example pack's fan-out idiom) and
// splits items into the valid set to persist and the rejected set to
// report, preserving input order for the valid set.
func staticValidateCreate(items []*workitem.WorkItem) ([]*workitem.WorkItem, []Rejected) {
	errs := make([]error, len(items))
	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			errs[i] = validateStatic(item)
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]*workitem.WorkItem, 0, len(items))
	var rejected []Rejected
	for i, item := range items {
		if errs[i] != nil {
			rejected = append(rejected, Rejected{Index: i, ID: item.ID, Error: errs[i].Error()})
			continue
		}
		valid = append(valid, item)
	}
	return valid, rejected
}

func validateStatic(item *workitem.WorkItem) error {
	if err := workitem.ValidateTitle(item.Title); err != nil {
		return err
	}
	if err := workitem.ValidateSummary(item.Summary); err != nil {
		return err
	}
	if item.Priority != nil {
		if err := workitem.ValidatePriority(*item.Priority); err != nil {
			return err
		}
	}
	if item.Complexity != nil {
		if err := workitem.ValidateComplexity(*item.Complexity); err != nil {
			return err
		}
	}
	return nil
}

// parentKindGuess returns the parent kind that would lock canonically
// ahead of kind in the hierarchy (Project before Feature before Task);
// exact kind mismatches are caught later by store.CreateBatch's parent
// existence/kind check, this only needs to pick a key that sorts
// correctly in lockmgr.AcquireMany's canonical order.
func parentKindGuess(kind workitem.Kind) workitem.Kind {
	switch kind {
	case workitem.KindTask:
		return workitem.KindFeature
	default:
		return workitem.KindProject
	}
}
