package commands

import (
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// projectCmd represents the project command group.
var projectCmd = containerCommands(workitem.KindProject, "project", "Manage projects")

func init() {
	cli.RootCmd.AddCommand(projectCmd)
}
