package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// CreateSection persists a Section. The core treats Content as opaque
// (spec.md 3: "the core manipulates sections only as opaque payloads");
// template expansion into Content is the tool surface's responsibility.
func (s *Store) CreateSection(ctx context.Context, sec *workitem.Section) error {
	if sec.ID == uuid.Nil {
		sec.ID = uuid.New()
	}
	if sec.CreatedAt.IsZero() {
		sec.CreatedAt = time.Now().UTC()
	}
	tagsJSON, err := json.Marshal(sec.Tags)
	if err != nil {
		return fmt.Errorf("create section: encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sections (id, entity_kind, entity_id, title, content, format, ordinal, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sec.ID.String(), string(sec.EntityKind), sec.EntityID.String(), sec.Title, sec.Content, sec.Format, sec.Ordinal, string(tagsJSON), sec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// ListSections returns every Section attached to entityID, ordered by
// Ordinal.
func (s *Store) ListSections(ctx context.Context, entityID uuid.UUID) ([]*workitem.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, title, content, format, ordinal, tags, created_at
		FROM sections WHERE entity_id = ? ORDER BY ordinal ASC`, entityID.String())
	if err != nil {
		return nil, fmt.Errorf("list sections for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []*workitem.Section
	for rows.Next() {
		var idStr, kindStr, entityIDStr, tagsJSON string
		sec := &workitem.Section{}
		if err := rows.Scan(&idStr, &kindStr, &entityIDStr, &sec.Title, &sec.Content, &sec.Format, &sec.Ordinal, &tagsJSON, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list sections for %s: scan: %w", entityID, err)
		}
		sec.ID = uuid.MustParse(idStr)
		sec.EntityKind = workitem.Kind(kindStr)
		sec.EntityID = uuid.MustParse(entityIDStr)
		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &sec.Tags); err != nil {
				return nil, fmt.Errorf("list sections for %s: decode tags: %w", entityID, err)
			}
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// DeleteSection removes a single section by id.
func (s *Store) DeleteSection(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sections WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete section %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete section %s: %w", id, err)
	}
	if n == 0 {
		return apierr.New(apierr.KindResourceNotFound, fmt.Sprintf("section %s not found", id), nil)
	}
	return nil
}
