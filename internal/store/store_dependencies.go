package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/depgraph"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// GetDependency loads a single dependency edge by id.
func (s *Store) GetDependency(ctx context.Context, id uuid.UUID) (*workitem.Dependency, error) {
	row := s.db.QueryRowContext(ctx, selectDependencySQL+" WHERE id = ?", id.String())
	dep, err := scanDependency(row)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("dependency %s not found", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency %s: %w", id, err)
	}
	return dep, nil
}

// AllDependencyEdges loads every persisted (normalized) edge, used by
// internal/depgraph for cycle detection and analysis (spec.md 4.5: "pure
// computations over the Entity Store").
func (s *Store) AllDependencyEdges(ctx context.Context) ([]depgraph.Edge, []depgraph.NewEdge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT from_task_id, to_task_id, edge_type FROM dependencies")
	if err != nil {
		return nil, nil, fmt.Errorf("load dependency edges: %w", err)
	}
	defer rows.Close()

	var blocks []depgraph.Edge
	var all []depgraph.NewEdge
	for rows.Next() {
		var fromStr, toStr, edgeType string
		if err := rows.Scan(&fromStr, &toStr, &edgeType); err != nil {
			return nil, nil, fmt.Errorf("load dependency edges: scan: %w", err)
		}
		from, to := uuid.MustParse(fromStr), uuid.MustParse(toStr)
		all = append(all, depgraph.NewEdge{Edge: depgraph.Edge{From: from, To: to}, Type: edgeType})
		if edgeType == string(workitem.StoredBlocks) {
			blocks = append(blocks, depgraph.Edge{From: from, To: to})
		}
	}
	return blocks, all, rows.Err()
}

// FindDependenciesByTask returns the dependency edges touching id in the
// given direction, optionally filtered to typeFilter (spec.md 4.5
// "Neighbor query").
func (s *Store) FindDependenciesByTask(ctx context.Context, id uuid.UUID, direction workitem.Direction, typeFilter *workitem.StoredEdgeType) ([]*workitem.Dependency, error) {
	query := selectDependencySQL + " WHERE "
	var args []interface{}
	switch direction {
	case workitem.DirectionIncoming:
		query += "to_task_id = ?"
		args = append(args, id.String())
	case workitem.DirectionOutgoing:
		query += "from_task_id = ?"
		args = append(args, id.String())
	default:
		query += "(from_task_id = ? OR to_task_id = ?)"
		args = append(args, id.String(), id.String())
	}
	if typeFilter != nil {
		query += " AND edge_type = ?"
		args = append(args, string(*typeFilter))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find dependencies for %s: %w", id, err)
	}
	defer rows.Close()

	var deps []*workitem.Dependency
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("find dependencies for %s: scan: %w", id, err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// CreateDependenciesBatch validates and persists a set of edges atomically
// (spec.md 4.5): `fromTaskId != toTaskId`, both tasks exist, no duplicate
// edge, and the combined graph stays acyclic. IsBlockedBy requests are
// normalized to Blocks before the duplicate and cycle checks run (spec.md
// 9, Open Question #1).
func (s *Store) CreateDependenciesBatch(ctx context.Context, requests []DependencyRequest) ([]*workitem.Dependency, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create dependencies: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existingBlocks, existingAll, err := s.allEdgesTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	pendingBlocks := make([]depgraph.Edge, 0, len(requests))
	pendingAll := make([]depgraph.NewEdge, 0, len(requests))
	deps := make([]*workitem.Dependency, 0, len(requests))
	now := time.Now().UTC()

	for _, req := range requests {
		if req.From == req.To {
			return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("fromTaskId and toTaskId must differ (%s)", req.From), nil)
		}
		for _, tid := range [2]uuid.UUID{req.From, req.To} {
			exists, kind, err := itemExists(ctx, tx, tid)
			if err != nil {
				return nil, fmt.Errorf("create dependencies: %w", err)
			}
			if !exists || kind != workitem.KindTask {
				return nil, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("task %s not found", tid), nil)
			}
		}

		storedType, from, to := workitem.NormalizeEdge(req.Type, req.From, req.To)
		dep := &workitem.Dependency{
			ID:         uuid.New(),
			FromTaskID: from,
			ToTaskID:   to,
			Type:       storedType,
			UnblockAt:  req.UnblockAt,
			CreatedAt:  now,
		}
		deps = append(deps, dep)

		if storedType == workitem.StoredBlocks {
			pendingBlocks = append(pendingBlocks, depgraph.Edge{From: from, To: to})
		}
		pendingAll = append(pendingAll, depgraph.NewEdge{Edge: depgraph.Edge{From: from, To: to}, Type: string(storedType)})
	}

	if err := depgraph.DetectDuplicates(existingAll, pendingAll); err != nil {
		return nil, err
	}
	if err := depgraph.DetectCycle(existingBlocks, pendingBlocks); err != nil {
		return nil, err
	}

	for _, dep := range deps {
		var unblockAt interface{}
		if dep.UnblockAt != nil {
			unblockAt = dep.UnblockAt.String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (id, from_task_id, to_task_id, edge_type, unblock_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			dep.ID.String(), dep.FromTaskID.String(), dep.ToTaskID.String(), string(dep.Type), unblockAt, dep.CreatedAt); err != nil {
			return nil, fmt.Errorf("create dependencies: insert %s: %w", dep.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create dependencies: commit: %w", err)
	}
	return deps, nil
}

// DeleteDependency removes a single edge by id.
func (s *Store) DeleteDependency(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dependencies WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete dependency %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dependency %s: %w", id, err)
	}
	if n == 0 {
		return apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("dependency %s not found", id), nil)
	}
	return nil
}

// DependencyRequest is the pre-normalization input to CreateDependenciesBatch.
type DependencyRequest struct {
	From, To  uuid.UUID
	Type      workitem.EdgeType
	UnblockAt *workitem.Role
}

const selectDependencySQL = `SELECT id, from_task_id, to_task_id, edge_type, unblock_at, created_at FROM dependencies`

func scanDependency(row scanner) (*workitem.Dependency, error) {
	var idStr, fromStr, toStr, edgeType string
	var unblockAt sql.NullString
	var createdAt time.Time
	if err := row.Scan(&idStr, &fromStr, &toStr, &edgeType, &unblockAt, &createdAt); err != nil {
		return nil, err
	}
	dep := &workitem.Dependency{
		ID:         uuid.MustParse(idStr),
		FromTaskID: uuid.MustParse(fromStr),
		ToTaskID:   uuid.MustParse(toStr),
		Type:       workitem.StoredEdgeType(edgeType),
		CreatedAt:  createdAt,
	}
	if unblockAt.Valid {
		role, err := workitem.ParseRole(unblockAt.String)
		if err != nil {
			return nil, err
		}
		dep.UnblockAt = &role
	}
	return dep, nil
}

func (s *Store) allEdgesTx(ctx context.Context, tx *sql.Tx) ([]depgraph.Edge, []depgraph.NewEdge, error) {
	rows, err := tx.QueryContext(ctx, "SELECT from_task_id, to_task_id, edge_type FROM dependencies")
	if err != nil {
		return nil, nil, fmt.Errorf("load dependency edges: %w", err)
	}
	defer rows.Close()

	var blocks []depgraph.Edge
	var all []depgraph.NewEdge
	for rows.Next() {
		var fromStr, toStr, edgeType string
		if err := rows.Scan(&fromStr, &toStr, &edgeType); err != nil {
			return nil, nil, fmt.Errorf("load dependency edges: scan: %w", err)
		}
		from, to := uuid.MustParse(fromStr), uuid.MustParse(toStr)
		all = append(all, depgraph.NewEdge{Edge: depgraph.Edge{From: from, To: to}, Type: edgeType})
		if edgeType == string(workitem.StoredBlocks) {
			blocks = append(blocks, depgraph.Edge{From: from, To: to})
		}
	}
	return blocks, all, rows.Err()
}
