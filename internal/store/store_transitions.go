package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// AppendRoleTransition writes an append-only audit record (spec.md 4.1).
// RoleTransition rows are never updated or deleted by a normal delete,
// only left in place when their owning entity is force-deleted (DESIGN.md
// Open Question #3).
func (s *Store) AppendRoleTransition(ctx context.Context, rt *workitem.RoleTransition) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	if rt.Timestamp.IsZero() {
		rt.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_transitions (id, entity_id, entity_kind, from_role, to_role, from_status, to_status, trigger, summary, automatic, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID.String(), rt.EntityID.String(), string(rt.EntityKind), rt.FromRole.String(), rt.ToRole.String(),
		rt.FromStatus, rt.ToStatus, string(rt.Trigger), rt.Summary, boolToInt(rt.Automatic), rt.Timestamp)
	if err != nil {
		return fmt.Errorf("append role transition for %s: %w", rt.EntityID, err)
	}
	return nil
}

// ListRoleTransitions returns the chronological audit log for entityID,
// optionally bounded to [since, until) (spec.md 4.1). Zero values leave
// that bound open.
func (s *Store) ListRoleTransitions(ctx context.Context, entityID uuid.UUID, since, until time.Time) ([]*workitem.RoleTransition, error) {
	query := `SELECT id, entity_id, entity_kind, from_role, to_role, from_status, to_status, trigger, summary, automatic, timestamp
		FROM role_transitions WHERE entity_id = ?`
	args := []interface{}{entityID.String()}
	if !since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, since)
	}
	if !until.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, until)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list role transitions for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []*workitem.RoleTransition
	for rows.Next() {
		rt, err := scanRoleTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("list role transitions for %s: scan: %w", entityID, err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// HasEnteredRole reports whether entityID's audit log ever recorded a
// transition whose ToRole is role, used by the Transition Validator's
// verification gate (spec.md 4.4.3: "the entity must have passed review,
// typically that role Review was previously entered in the audit trail").
func (s *Store) HasEnteredRole(ctx context.Context, entityID uuid.UUID, role workitem.Role) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM role_transitions WHERE entity_id = ? AND to_role = ?", entityID.String(), role.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has entered role for %s: %w", entityID, err)
	}
	return n > 0, nil
}

func scanRoleTransition(row scanner) (*workitem.RoleTransition, error) {
	var idStr, entityIDStr, kindStr, fromRole, toRole, trigger string
	var summary string
	var automatic int64
	var timestamp time.Time
	rt := &workitem.RoleTransition{}
	if err := row.Scan(&idStr, &entityIDStr, &kindStr, &fromRole, &toRole, &rt.FromStatus, &rt.ToStatus, &trigger, &summary, &automatic, &timestamp); err != nil {
		return nil, err
	}
	rt.ID = uuid.MustParse(idStr)
	rt.EntityID = uuid.MustParse(entityIDStr)
	rt.EntityKind = workitem.Kind(kindStr)
	rt.Trigger = workitem.Trigger(trigger)
	rt.Summary = summary
	rt.Automatic = automatic != 0
	rt.Timestamp = timestamp

	from, err := workitem.ParseRole(fromRole)
	if err != nil {
		return nil, err
	}
	rt.FromRole = from
	to, err := workitem.ParseRole(toRole)
	if err != nil {
		return nil, err
	}
	rt.ToRole = to
	return rt, nil
}
