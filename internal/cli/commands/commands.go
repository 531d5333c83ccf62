// Package commands implements the taskflow CLI subcommands: a thin surface
// over internal/api.Service exercising the engine end to end (create/query/
// transition work items, manage dependencies), grounded on the teacher's
// internal/cli/commands package layout (one file per entity/command group,
// cobra.Command vars registered from init()).
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/api"
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// cliSession is this process's lock-manager session token (spec.md 4.2:
// "a caller identified by an opaque session token"). One per CLI
// invocation is sufficient since a single command never runs concurrently
// with itself.
var cliSession = uuid.New().String()

const defaultTimeout = 30 * time.Second

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultTimeout)
}

func getService() (*api.Service, error) {
	svc, err := cli.GetService()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return svc, nil
}

// render prints resp either as JSON (--json) or as a human message,
// exiting non-zero on failure — the same shape as the teacher's
// cli.Error/os.Exit(2) convention on database/operation errors.
func render(resp *api.Response) error {
	if cli.GlobalConfig.JSON {
		if err := cli.OutputJSON(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		if !resp.Success {
			os.Exit(1)
		}
		return nil
	}

	if !resp.Success {
		cli.Error(resp.Message)
		if resp.Error != nil {
			cli.Info("code: %s", resp.Error.Code)
		}
		os.Exit(1)
		return nil
	}
	cli.Success(resp.Message)
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func parsePriority(s string) (*workitem.Priority, error) {
	if s == "" {
		return nil, nil
	}
	p := workitem.Priority(s)
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %q: must be high, medium, or low", s)
	}
	return &p, nil
}
