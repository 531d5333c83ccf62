package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/api"
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/spf13/cobra"
)

// depCmd represents the dependency command group (spec.md 4.5, 6:
// ManageDependencies/QueryDependencies), grounded on the teacher's
// dependency.go task-relationship commands, generalized to explicit edges
// plus the linear/fan-out/fan-in pattern shortcuts.
var depCmd = &cobra.Command{
	Use:     "dep",
	Short:   "Manage task dependencies",
	GroupID: "essentials",
}

func init() {
	cli.RootCmd.AddCommand(depCmd)
	depCmd.AddCommand(depCreateCmd, depDeleteCmd, depListCmd, depGraphCmd)
}

var (
	depFrom, depTo, depType, depUnblockAt string
	depPattern                             string
	depTaskIDs                             []string
)

var depCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create one dependency edge, or a pattern of edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		req := api.ManageDependenciesRequest{Operation: "create", Session: cliSession}

		if depPattern != "" {
			ids := make([]uuid.UUID, 0, len(depTaskIDs))
			for _, s := range depTaskIDs {
				id, err := parseUUID(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			req.Pattern = depPattern
			req.TaskIDs = ids
		} else {
			if depFrom == "" || depTo == "" {
				return fmt.Errorf("either --pattern with --task-ids, or --from and --to, is required")
			}
			from, err := parseUUID(depFrom)
			if err != nil {
				return err
			}
			to, err := parseUUID(depTo)
			if err != nil {
				return err
			}
			edgeType := workitem.EdgeType(depType)
			if edgeType == "" {
				edgeType = workitem.EdgeBlocks
			}
			if !edgeType.Valid() {
				return fmt.Errorf("invalid dependency type %q", depType)
			}
			var unblockAt *workitem.Role
			if depUnblockAt != "" {
				r, err := workitem.ParseRole(depUnblockAt)
				if err != nil {
					return err
				}
				unblockAt = &r
			}
			req.Edges = []api.EdgeInput{{From: from, To: to, Type: edgeType, UnblockAt: unblockAt}}
		}

		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.ManageDependencies(ctx, req)
		return render(resp)
	},
}

var depDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete dependency edges by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uuid.UUID, 0, len(args))
		for _, s := range args {
			id, err := parseUUID(s)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.ManageDependencies(ctx, api.ManageDependenciesRequest{Operation: "delete", IDs: ids, Session: cliSession})
		return render(resp)
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List a task's immediate dependency neighbors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0])
		if err != nil {
			return err
		}
		direction, _ := cmd.Flags().GetString("direction")
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.QueryDependencies(ctx, api.QueryDependenciesRequest{
			TaskID:        id,
			NeighborsOnly: true,
			Direction:     workitem.Direction(direction),
		})
		return render(resp)
	},
}

var depGraphCmd = &cobra.Command{
	Use:   "graph <task-id>",
	Short: "Analyze the reachable dependency graph from a task (chain, depth, critical path, bottlenecks, parallelizable groups)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0])
		if err != nil {
			return err
		}
		threshold, _ := cmd.Flags().GetInt("bottleneck-threshold")
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.QueryDependencies(ctx, api.QueryDependenciesRequest{
			TaskID:              id,
			NeighborsOnly:       false,
			BottleneckThreshold: threshold,
		})
		return render(resp)
	},
}

func init() {
	depCreateCmd.Flags().StringVar(&depFrom, "from", "", "Source task id")
	depCreateCmd.Flags().StringVar(&depTo, "to", "", "Target task id")
	depCreateCmd.Flags().StringVar(&depType, "type", "blocks", "Edge type: blocks, is_blocked_by, relates_to")
	depCreateCmd.Flags().StringVar(&depUnblockAt, "unblock-at", "", "Role the source must reach to unblock the target: queue, work, review, terminal")
	depCreateCmd.Flags().StringVar(&depPattern, "pattern", "", "Pattern shortcut: linear, fan-out, fan-in")
	depCreateCmd.Flags().StringSliceVar(&depTaskIDs, "task-ids", nil, "Task ids for --pattern, in pattern order")

	depListCmd.Flags().String("direction", "all", "incoming, outgoing, or all")
	depGraphCmd.Flags().Int("bottleneck-threshold", 3, "Minimum outgoing fan-out to flag a node as a bottleneck")
}
