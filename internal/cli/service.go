package cli

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jwwelbor/taskflow/internal/api"
	"github.com/jwwelbor/taskflow/internal/db"
	"github.com/jwwelbor/taskflow/internal/flowconfig"
	"github.com/jwwelbor/taskflow/internal/store"
)

var (
	// globalDB and globalService hold the shared database connection and
	// wired Service for every command, the same singleton-via-sync.Once
	// shape as the teacher's internal/cli/db_global.go GetDB.
	globalDB      *sql.DB
	globalService *api.Service

	serviceInitOnce sync.Once
	serviceInitErr  error
)

// GetService returns the global api.Service, initializing the database and
// the full engine stack on first call. This is the only function commands
// should call to reach the engine — mirrors the teacher's "GetDB is the
// ONLY function commands should call" contract.
func GetService() (*api.Service, error) {
	serviceInitOnce.Do(func() {
		globalDB, globalService, serviceInitErr = initService()
	})
	return globalService, serviceInitErr
}

func initService() (*sql.DB, *api.Service, error) {
	dbPath, err := GetDBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	sqlDB, err := db.InitDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	doc := flowconfig.Default()
	if cfgPath, err := GetFlowConfigPath(); err == nil && cfgPath != "" {
		loaded, loadErr := flowconfig.Load(cfgPath)
		if loadErr != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to load flow configuration %s: %w", cfgPath, loadErr)
		}
		doc = loaded
	}
	flows := flowconfig.NewService(doc)

	st := store.New(sqlDB, flows)
	svc := api.New(st, flows)
	return sqlDB, svc, nil
}

// CloseDB closes the global database connection. Safe to call multiple
// times; called automatically by RootCmd's PersistentPostRunE hook.
func CloseDB() error {
	if globalDB != nil {
		err := globalDB.Close()
		globalDB = nil
		globalService = nil
		serviceInitErr = nil
		serviceInitOnce = sync.Once{}
		return err
	}
	return nil
}

// ResetService clears the global service state. Test-only, mirrors the
// teacher's ResetDB.
func ResetService() {
	if globalDB != nil {
		globalDB.Close()
	}
	globalDB = nil
	globalService = nil
	serviceInitErr = nil
	serviceInitOnce = sync.Once{}
}
