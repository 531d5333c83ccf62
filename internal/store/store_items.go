package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Get loads a single WorkItem by kind and id, deriving Role at read time
// (invariant 3). Mirrors the teacher's GetByID (internal/repository/
// task_repository.go): single SELECT, sql.ErrNoRows -> ResourceNotFound.
func (s *Store) Get(ctx context.Context, kind workitem.Kind, id uuid.UUID) (*workitem.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, selectItemSQL+" WHERE kind = ? AND id = ?", string(kind), id.String())
	item, err := s.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if err := s.deriveRole(item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetAny loads a WorkItem by id alone, for callers (the Cascade Engine)
// that know an id but not its kind ahead of time.
func (s *Store) GetAny(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, selectItemSQL+" WHERE id = ?", id.String())
	item, err := s.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("item %s not found", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if err := s.deriveRole(item); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns items of kind matching filter, ordered modifiedAt desc with
// id as a tiebreak (spec.md 4.1).
func (s *Store) List(ctx context.Context, kind workitem.Kind, filter Filter) ([]*workitem.WorkItem, error) {
	query := selectItemSQL + " WHERE kind = ?"
	args := []interface{}{string(kind)}

	for _, st := range filter.StatusInclude {
		query += " AND status = ?"
		args = append(args, st)
	}
	for _, st := range filter.StatusExclude {
		query += " AND status != ?"
		args = append(args, st)
	}
	for _, p := range filter.PriorityInclude {
		query += " AND priority = ?"
		args = append(args, p)
	}
	for _, p := range filter.PriorityExclude {
		query += " AND (priority IS NULL OR priority != ?)"
		args = append(args, p)
	}
	if filter.ParentID != nil {
		query += " AND parent_id = ?"
		args = append(args, filter.ParentID.String())
	} else if filter.HasNoParent {
		query += " AND parent_id IS NULL"
	}
	if filter.TextQuery != "" {
		query += " AND (title LIKE ? OR description LIKE ?)"
		like := "%" + filter.TextQuery + "%"
		args = append(args, like, like)
	}

	query += " ORDER BY modified_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var items []*workitem.WorkItem
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: scan: %w", kind, err)
		}
		if len(filter.Tags) > 0 && !workitem.HasAllTags(item.Tags, filter.Tags) {
			continue
		}
		if err := s.deriveRole(item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateBatch inserts items in one transaction, all-or-nothing (spec.md
// 4.1). Items without an ID are assigned one, and a Task without a
// Complexity is given workitem.DefaultComplexity. An item whose ParentID
// references another item earlier in the same batch is resolved against
// that batch-assigned id; a forward or missing reference fails the whole
// batch with a ValidationError, matching the teacher's transactional
// BulkCreate (internal/repository/task_repository.go).
func (s *Store) CreateBatch(ctx context.Context, items []*workitem.WorkItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create batch: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seenInBatch := make(map[uuid.UUID]bool, len(items))
	now := time.Now().UTC()

	for _, item := range items {
		if item.Kind == workitem.KindTask && item.Complexity == nil {
			c := workitem.DefaultComplexity
			item.Complexity = &c
		}
		if err := validateItemFields(item); err != nil {
			return err
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.ParentID != nil {
			if !seenInBatch[*item.ParentID] {
				exists, parentKind, err := itemExists(ctx, tx, *item.ParentID)
				if err != nil {
					return fmt.Errorf("create batch: check parent: %w", err)
				}
				if !exists {
					return apierr.New(apierr.KindValidation, fmt.Sprintf("item %s references unknown or not-yet-created parent %s", item.ID, *item.ParentID), map[string]interface{}{"id": item.ID, "parentId": *item.ParentID})
				}
				if !workitem.ValidParentKind(item.Kind, parentKind) {
					return apierr.New(apierr.KindValidation, fmt.Sprintf("item %s (%s) cannot have parent kind %s", item.ID, item.Kind, parentKind), nil)
				}
			}
		}
		item.Version = 1
		item.CreatedAt = now
		item.ModifiedAt = now

		if err := insertItem(ctx, tx, item); err != nil {
			return fmt.Errorf("create batch: insert %s: %w", item.ID, err)
		}
		seenInBatch[item.ID] = true
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create batch: commit: %w", err)
	}
	return nil
}

// Update applies patch to the item at id if its stored version equals
// expectedVersion, bumping version by exactly one (spec.md 4.1, invariant
// 7). VersionMismatch/NotFound map the same way the teacher's optimistic
// paths do, generalized from the teacher's last-write-wins Update.
func (s *Store) Update(ctx context.Context, kind workitem.Kind, id uuid.UUID, expectedVersion int64, patch Patch) (*workitem.WorkItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update %s: begin tx: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectItemSQL+" WHERE kind = ? AND id = ?", string(kind), id.String())
	item, err := s.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	if item.Version != expectedVersion {
		return nil, apierr.New(apierr.KindVersionMismatch, fmt.Sprintf("expected version %d, current version %d", expectedVersion, item.Version), map[string]interface{}{"expected": expectedVersion, "current": item.Version})
	}

	applyPatch(item, patch)
	item.Version = expectedVersion + 1
	item.ModifiedAt = time.Now().UTC()

	if err := validateItemFields(item); err != nil {
		return nil, err
	}
	if err := updateItem(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update %s: commit: %w", id, err)
	}
	if err := s.deriveRole(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item. Without cascade, it fails with HasChildren if the
// item has Features/Tasks or dependency edges; with cascade, descendants
// and dependency edges are cleaned up first (spec.md 3 "Destruction").
func (s *Store) Delete(ctx context.Context, kind workitem.Kind, id uuid.UUID, cascade bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete %s: begin tx: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	hasChildren, err := hasDescendants(ctx, tx, kind, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	if hasChildren && !cascade {
		return false, apierr.New(apierr.KindHasChildren, fmt.Sprintf("%s %s has children; pass cascade to force delete", kind, id), nil)
	}

	if cascade {
		if err := deleteDescendants(ctx, tx, kind, id); err != nil {
			return false, fmt.Errorf("delete %s: cascade: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM dependencies WHERE from_task_id = ? OR to_task_id = ?", id.String(), id.String()); err != nil {
		return false, fmt.Errorf("delete %s: dependencies: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE entity_id = ?", id.String()); err != nil {
		return false, fmt.Errorf("delete %s: sections: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM work_items WHERE kind = ? AND id = ?", string(kind), id.String())
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return false, apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete %s: commit: %w", id, err)
	}
	return true, nil
}

// ChildrenRoles returns the current role of every direct child of parent
// (Feature/Task under a Project, Task under a Feature), used by the
// Cascade Engine's sibling-completion check (spec.md 4.6) and the
// Transition Validator's optional child-completion gate (spec.md 4.4.5).
func (s *Store) ChildrenRoles(ctx context.Context, parentID uuid.UUID) ([]*workitem.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, selectItemSQL+" WHERE parent_id = ?", parentID.String())
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parentID, err)
	}
	defer rows.Close()

	var children []*workitem.WorkItem
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("children of %s: scan: %w", parentID, err)
		}
		if err := s.deriveRole(item); err != nil {
			return nil, err
		}
		children = append(children, item)
	}
	return children, rows.Err()
}

// --- helpers -----------------------------------------------------------

const selectItemSQL = `SELECT id, kind, parent_id, title, description, summary, status, priority, complexity, requires_verification, tags, version, created_at, modified_at FROM work_items`

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanItem(row scanner) (*workitem.WorkItem, error) {
	var (
		idStr, kindStr, status, tagsJSON string
		parentIDStr                      sql.NullString
		title, description, summary      string
		priority                         sql.NullString
		complexity                       sql.NullInt64
		requiresVerification             int64
		version                          int64
		createdAt, modifiedAt            time.Time
	)
	if err := row.Scan(&idStr, &kindStr, &parentIDStr, &title, &description, &summary, &status, &priority, &complexity, &requiresVerification, &tagsJSON, &version, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}

	item := &workitem.WorkItem{
		ID:                   uuid.MustParse(idStr),
		Kind:                 workitem.Kind(kindStr),
		Title:                title,
		Description:          description,
		Summary:              summary,
		Status:               status,
		RequiresVerification: requiresVerification != 0,
		Version:              version,
		CreatedAt:            createdAt,
		ModifiedAt:           modifiedAt,
	}
	if parentIDStr.Valid {
		pid := uuid.MustParse(parentIDStr.String)
		item.ParentID = &pid
	}
	if priority.Valid {
		p := workitem.Priority(priority.String)
		item.Priority = &p
	}
	if complexity.Valid {
		c := int(complexity.Int64)
		item.Complexity = &c
	}
	var tags []string
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	item.Tags = tags
	return item, nil
}

func (s *Store) deriveRole(item *workitem.WorkItem) error {
	role, err := s.flows.RoleOf(item.Kind, item.Status)
	if err != nil {
		return err
	}
	item.Role = role
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item *workitem.WorkItem) error {
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var parentID interface{}
	if item.ParentID != nil {
		parentID = item.ParentID.String()
	}
	var priority interface{}
	if item.Priority != nil {
		priority = string(*item.Priority)
	}
	var complexity interface{}
	if item.Complexity != nil {
		complexity = *item.Complexity
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_items (id, kind, parent_id, title, description, summary, status, priority, complexity, requires_verification, tags, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(), string(item.Kind), parentID, item.Title, item.Description, item.Summary, item.Status,
		priority, complexity, boolToInt(item.RequiresVerification), string(tagsJSON), item.Version, item.CreatedAt, item.ModifiedAt)
	return err
}

func updateItem(ctx context.Context, tx *sql.Tx, item *workitem.WorkItem) error {
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var parentID interface{}
	if item.ParentID != nil {
		parentID = item.ParentID.String()
	}
	var priority interface{}
	if item.Priority != nil {
		priority = string(*item.Priority)
	}
	var complexity interface{}
	if item.Complexity != nil {
		complexity = *item.Complexity
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE work_items SET parent_id=?, title=?, description=?, summary=?, status=?, priority=?, complexity=?, requires_verification=?, tags=?, version=?, modified_at=?
		WHERE id = ?`,
		parentID, item.Title, item.Description, item.Summary, item.Status, priority, complexity,
		boolToInt(item.RequiresVerification), string(tagsJSON), item.Version, item.ModifiedAt, item.ID.String())
	return err
}

func applyPatch(item *workitem.WorkItem, patch Patch) {
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Summary != nil {
		item.Summary = *patch.Summary
	}
	if patch.Priority != nil {
		p := *patch.Priority
		item.Priority = &p
	}
	if patch.Complexity != nil {
		c := *patch.Complexity
		item.Complexity = &c
	}
	if patch.ParentID != nil {
		item.ParentID = *patch.ParentID
	}
	if patch.Tags != nil {
		item.Tags = workitem.NormalizedTags(*patch.Tags)
	}
	if patch.RequiresVerification != nil {
		item.RequiresVerification = *patch.RequiresVerification
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
}

func validateItemFields(item *workitem.WorkItem) error {
	if err := workitem.ValidateTitle(item.Title); err != nil {
		return apierr.New(apierr.KindValidation, err.Error(), nil)
	}
	if err := workitem.ValidateSummary(item.Summary); err != nil {
		return apierr.New(apierr.KindValidation, err.Error(), nil)
	}
	if item.Priority != nil {
		if err := workitem.ValidatePriority(*item.Priority); err != nil {
			return apierr.New(apierr.KindValidation, err.Error(), nil)
		}
	}
	if item.Complexity != nil {
		if err := workitem.ValidateComplexity(*item.Complexity); err != nil {
			return apierr.New(apierr.KindValidation, err.Error(), nil)
		}
	}
	return nil
}

func itemExists(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, workitem.Kind, error) {
	var kindStr string
	err := tx.QueryRowContext(ctx, "SELECT kind FROM work_items WHERE id = ?", id.String()).Scan(&kindStr)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, workitem.Kind(kindStr), nil
}

func hasDescendants(ctx context.Context, tx *sql.Tx, kind workitem.Kind, id uuid.UUID) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_items WHERE parent_id = ?", id.String()).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if kind == workitem.KindTask {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM dependencies WHERE from_task_id = ? OR to_task_id = ?", id.String(), id.String()).Scan(&n); err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return false, nil
}

func deleteDescendants(ctx context.Context, tx *sql.Tx, kind workitem.Kind, id uuid.UUID) error {
	rows, err := tx.QueryContext(ctx, "SELECT id, kind FROM work_items WHERE parent_id = ?", id.String())
	if err != nil {
		return err
	}
	var children []struct {
		id   uuid.UUID
		kind workitem.Kind
	}
	for rows.Next() {
		var idStr, kindStr string
		if err := rows.Scan(&idStr, &kindStr); err != nil {
			rows.Close()
			return err
		}
		children = append(children, struct {
			id   uuid.UUID
			kind workitem.Kind
		}{uuid.MustParse(idStr), workitem.Kind(kindStr)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range children {
		if err := deleteDescendants(ctx, tx, c.kind, c.id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM dependencies WHERE from_task_id = ? OR to_task_id = ?", c.id.String(), c.id.String()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE entity_id = ?", c.id.String()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM work_items WHERE id = ?", c.id.String()); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
