// Package store implements the Entity Store (spec.md 4.1): durable,
// versioned persistence of WorkItems, Dependencies, Sections and
// RoleTransitions over a *sql.DB, enforcing the invariants of spec.md 3.
//
// It follows the teacher's repository idiom (internal/repository/
// task_repository.go, epic_repository.go): context.Context first param,
// an explicit BeginTx/defer Rollback/Commit transaction per operation,
// sql.ErrNoRows mapped to a typed not-found error, fmt.Errorf("...: %w", ...)
// wrapping at each layer boundary.
package store

import (
	"database/sql"

	"github.com/jwwelbor/taskflow/internal/flowconfig"
)

// Store is the Entity Store. It owns no in-memory state of its own beyond a
// reference to the Flow Configuration it uses to derive Role on read
// (invariant 3: role is never independently stored), the same way the
// teacher's TaskRepository carries a *config.WorkflowConfig.
type Store struct {
	db    *sql.DB
	flows *flowconfig.Service
}

// New wraps an already-initialized database handle (see internal/db.InitDB)
// and the Flow Configuration service used to derive Role at read time.
func New(db *sql.DB, flows *flowconfig.Service) *Store {
	return &Store{db: db, flows: flows}
}
