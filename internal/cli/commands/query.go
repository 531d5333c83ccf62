package commands

import (
	"time"

	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/spf13/cobra"
)

// nextStatusCmd exposes GetNextStatus (spec.md 6): previews what `start`
// would resolve to for a given kind/status/tags without mutating anything.
var nextStatusCmd = &cobra.Command{
	Use:   "next-status <kind> <status>",
	Short: "Preview the next status `start` would resolve to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := workitem.ParseKind(args[0])
		if err != nil {
			return err
		}
		tags, _ := cmd.Flags().GetStringSlice("tags")
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.GetNextStatus(ctx, kind, args[1], tags)
		return render(resp)
	},
}

// historyCmd exposes QueryRoleTransitions (spec.md 4.1, 6): the append-only
// audit trail for one entity.
var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the role-transition audit log for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0])
		if err != nil {
			return err
		}
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.QueryRoleTransitions(ctx, id, time.Time{}, time.Time{})
		return render(resp)
	},
}

func init() {
	nextStatusCmd.Flags().StringSlice("tags", nil, "Tags used for flow selection")
	cli.RootCmd.AddCommand(nextStatusCmd, historyCmd)
}
