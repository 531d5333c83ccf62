package commands

import (
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// taskCmd represents the task command group.
var taskCmd = containerCommands(workitem.KindTask, "task", "Manage tasks")

func init() {
	cli.RootCmd.AddCommand(taskCmd)
}
