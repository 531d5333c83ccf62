package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB initializes the SQLite database with the complete schema and
// returns a raw *sql.DB. internal/store and internal/cli both consume this
// directly rather than through a backend-abstraction interface — the
// engine only ever runs against SQLite.
func InitDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := configureSQLite(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	if err := CreateSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return sqlDB, nil
}

// configureSQLite sets the PRAGMAs the engine relies on for correctness
// (foreign keys) and acceptable concurrent write behavior (WAL + busy_timeout).
func configureSQLite(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -64000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	var fkEnabled int
	if err := sqlDB.QueryRow("PRAGMA foreign_keys;").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign_keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign_keys not enabled")
	}

	return nil
}

// CreateSchema creates every table, index and trigger the Entity Store
// depends on. It is idempotent: safe to call against an already-initialized
// database.
func CreateSchema(sqlDB *sql.DB) error {
	schema := `
-- ============================================================================
-- Table: work_items
-- Shared header for the WorkItem tagged variant (Project | Feature | Task).
-- kind-specific fields (complexity, requires_verification) are nullable and
-- only meaningful for the kinds that declare them.
-- ============================================================================
CREATE TABLE IF NOT EXISTS work_items (
    id                     TEXT PRIMARY KEY,
    kind                   TEXT NOT NULL CHECK (kind IN ('project', 'feature', 'task')),
    parent_id              TEXT REFERENCES work_items(id) ON DELETE RESTRICT,
    title                  TEXT NOT NULL,
    description            TEXT NOT NULL DEFAULT '',
    summary                TEXT NOT NULL DEFAULT '',
    status                 TEXT NOT NULL,
    priority               TEXT CHECK (priority IN ('high', 'medium', 'low')),
    complexity             INTEGER CHECK (complexity IS NULL OR (complexity >= 1 AND complexity <= 10)),
    requires_verification  INTEGER NOT NULL DEFAULT 0,
    tags                   TEXT NOT NULL DEFAULT '[]',
    version                INTEGER NOT NULL DEFAULT 1,
    created_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    modified_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_work_items_kind ON work_items(kind);
CREATE INDEX IF NOT EXISTS idx_work_items_parent_id ON work_items(parent_id);
CREATE INDEX IF NOT EXISTS idx_work_items_status ON work_items(status);
CREATE INDEX IF NOT EXISTS idx_work_items_modified_at ON work_items(modified_at DESC, id);

-- ============================================================================
-- Table: dependencies
-- Stores Blocks and RelatesTo edges only; IsBlockedBy is normalised to Blocks
-- at write time (see internal/store).
-- ============================================================================
CREATE TABLE IF NOT EXISTS dependencies (
    id             TEXT PRIMARY KEY,
    from_task_id   TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
    to_task_id     TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
    edge_type      TEXT NOT NULL CHECK (edge_type IN ('blocks', 'relates_to')),
    unblock_at     TEXT,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    UNIQUE(from_task_id, to_task_id, edge_type),
    CHECK (from_task_id != to_task_id)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_from ON dependencies(from_task_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_to ON dependencies(to_task_id);

-- ============================================================================
-- Table: sections
-- Opaque content blocks attached to a WorkItem (notes, criteria, sessions,
-- template-expanded sections -- the core treats the payload as opaque).
-- ============================================================================
CREATE TABLE IF NOT EXISTS sections (
    id           TEXT PRIMARY KEY,
    entity_kind  TEXT NOT NULL CHECK (entity_kind IN ('project', 'feature', 'task')),
    entity_id    TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
    title        TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    format       TEXT NOT NULL DEFAULT 'text',
    ordinal      INTEGER NOT NULL DEFAULT 0,
    tags         TEXT NOT NULL DEFAULT '[]',
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sections_entity ON sections(entity_kind, entity_id, ordinal);

-- ============================================================================
-- Table: role_transitions
-- Append-only audit log. Never updated, only inserted; force-deletes of a
-- WorkItem leave these rows in place (see DESIGN.md open-question decision).
-- ============================================================================
CREATE TABLE IF NOT EXISTS role_transitions (
    id           TEXT PRIMARY KEY,
    entity_id    TEXT NOT NULL,
    entity_kind  TEXT NOT NULL CHECK (entity_kind IN ('project', 'feature', 'task')),
    from_role    TEXT NOT NULL,
    to_role      TEXT NOT NULL,
    from_status  TEXT NOT NULL,
    to_status    TEXT NOT NULL,
    trigger      TEXT NOT NULL,
    summary      TEXT,
    automatic    INTEGER NOT NULL DEFAULT 0,
    timestamp    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_role_transitions_entity ON role_transitions(entity_id, timestamp);

-- ============================================================================
-- Table: locks
-- Schema placeholder for the persisted-state layout spec.md Section 6
-- requires ("tables ... for work items, dependencies, sections, role
-- transitions, and locks"). internal/lockmgr's TTL table is in-process only
-- and never writes here; a multi-process deployment would need this table
-- kept in sync on acquire/release/expire, which is not implemented.
-- ============================================================================
CREATE TABLE IF NOT EXISTS locks (
    entity_kind  TEXT NOT NULL,
    entity_id    TEXT NOT NULL,
    session      TEXT NOT NULL,
    expires_at   TIMESTAMP NOT NULL,

    PRIMARY KEY (entity_kind, entity_id)
);
`

	if _, err := sqlDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}
