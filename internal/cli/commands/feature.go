package commands

import (
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// featureCmd represents the feature command group.
var featureCmd = containerCommands(workitem.KindFeature, "feature", "Manage features")

func init() {
	cli.RootCmd.AddCommand(featureCmd)
}
