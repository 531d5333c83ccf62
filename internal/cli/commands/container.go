package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/api"
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// containerCommands builds the list/get/create/update/delete subcommand
// group shared by project, feature and task (spec.md 6's ManageContainer/
// QueryContainer), generalizing the teacher's three hand-written epic.go/
// feature.go/task.go command groups the way internal/workitem generalizes
// their three structs into one tagged variant.
func containerCommands(kind workitem.Kind, use, short string) *cobra.Command {
	group := &cobra.Command{
		Use:     use,
		Short:   short,
		GroupID: "essentials",
	}

	var (
		description, summary, priority, parentStr string
		complexity                                int
		requiresVerification                      bool
		tags                                       []string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := getService()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()
			resp := svc.QueryContainer(ctx, kind, store.Filter{})
			if cli.GlobalConfig.JSON || !resp.Success {
				return render(resp)
			}
			printItemTable(resp)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Get %s details", kind),
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
			resp := svc.QueryContainer(ctx, kind, store.Filter{})
			if !resp.Success {
				return render(resp)
			}
			items, _ := resp.Data.([]*workitem.WorkItem)
			for _, item := range items {
				if item.ID == id {
					return cli.OutputJSON(item)
				}
			}
			cli.Error(fmt.Sprintf("%s %s not found", kind, id))
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <title>",
		Short: fmt.Sprintf("Create a new %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := getService()
			if err != nil {
				return err
			}
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			item := api.ItemInput{
				Title:                args[0],
				Description:          description,
				Summary:              summary,
				Priority:             p,
				Tags:                 tags,
				RequiresVerification: &requiresVerification,
			}
			if kind == workitem.KindTask && complexity > 0 {
				item.Complexity = &complexity
			}
			if parentStr != "" {
				pid, err := parseUUID(parentStr)
				if err != nil {
					return err
				}
				item.ParentID = &pid
			}
			ctx, cancel := withTimeout()
			defer cancel()
			resp := svc.ManageContainer(ctx, api.ManageContainerRequest{
				Operation: "create",
				Kind:      kind,
				Items:     []api.ItemInput{item},
				Session:   cliSession,
			})
			return render(resp)
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "Description")
	createCmd.Flags().StringVar(&summary, "summary", "", "Summary (required to complete)")
	createCmd.Flags().StringVar(&priority, "priority", "", "Priority: high, medium, low")
	createCmd.Flags().StringVar(&parentStr, "parent", "", "Parent id")
	createCmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags")
	createCmd.Flags().BoolVar(&requiresVerification, "requires-verification", false, "Gate completion on a prior review")
	if kind == workitem.KindTask {
		createCmd.Flags().IntVar(&complexity, "complexity", workitem.DefaultComplexity, "Complexity 1-10")
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUID(args[0])
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			svc, err := getService()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()
			resp := svc.ManageContainer(ctx, api.ManageContainerRequest{
				Operation: "delete",
				Kind:      kind,
				IDs:       []uuid.UUID{id},
				Cascade:   force,
				Session:   cliSession,
			})
			return render(resp)
		},
	}
	deleteCmd.Flags().Bool("force", false, "Delete descendants and clean up dependency edges too")

	group.AddCommand(listCmd, getCmd, createCmd, deleteCmd)
	for _, trigger := range []workitem.Trigger{
		workitem.TriggerStart, workitem.TriggerComplete,
		workitem.TriggerCancel, workitem.TriggerBlock, workitem.TriggerHold,
	} {
		group.AddCommand(transitionSubcommand(kind, trigger))
	}
	return group
}

// transitionSubcommand builds the `<kind> <trigger> <id>` leaf that drives
// RequestTransition for one trigger (spec.md 4.4/4.7), the generalized
// counterpart of the teacher's taskStartCmd/taskCompleteCmd/taskBlockCmd
// family in internal/cli/commands/task.go.
func transitionSubcommand(kind workitem.Kind, trigger workitem.Trigger) *cobra.Command {
	return &cobra.Command{
		Use:   string(trigger) + " <id>",
		Short: fmt.Sprintf("%s a %s", cases.Title(language.English).String(string(trigger)), kind),
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
			resp := svc.RequestTransition(ctx, []api.TransitionRequest{{
				EntityKind: kind,
				ID:         id,
				Trigger:    trigger,
				Session:    cliSession,
			}})
			return render(resp)
		},
	}
}

// printItemTable renders a QueryContainer response as a human table,
// matching the teacher's OutputTable usage in epic/feature/task list
// commands.
func printItemTable(resp *api.Response) {
	items, ok := resp.Data.([]*workitem.WorkItem)
	if !ok {
		cli.Info(resp.Message)
		return
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID.String()[:8],
			item.Title,
			item.Status,
			item.Role.String(),
			strings.Join(item.Tags, ","),
		})
	}
	cli.OutputTable([]string{"ID", "Title", "Status", "Role", "Tags"}, rows)
}
