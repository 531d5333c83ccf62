package commands

import (
	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/api"
	"github.com/jwwelbor/taskflow/internal/cli"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/spf13/cobra"
)

// sectionCmd represents the section command group (spec.md 3,
// SPEC_FULL.md C.3): create/list/delete over the opaque content blocks
// attached to a WorkItem, grounded on the teacher's per-entity command
// group shape.
var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Manage opaque content sections attached to a work item",
}

func init() {
	cli.RootCmd.AddCommand(sectionCmd)
	sectionCmd.AddCommand(sectionCreateCmd, sectionListCmd, sectionDeleteCmd)
}

var (
	sectionEntityKind, sectionTitle, sectionContent, sectionFormat string
	sectionOrdinal                                                 int
	sectionTags                                                    []string
)

var sectionCreateCmd = &cobra.Command{
	Use:   "create <entity-id>",
	Short: "Attach a section to a work item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityID, err := parseUUID(args[0])
		if err != nil {
			return err
		}
		kind, err := workitem.ParseKind(sectionEntityKind)
		if err != nil {
			return err
		}
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.ManageSections(ctx, api.ManageSectionsRequest{
			Operation: "create",
			Sections: []api.SectionInput{{
				EntityKind: kind,
				EntityID:   entityID,
				Title:      sectionTitle,
				Content:    sectionContent,
				Format:     sectionFormat,
				Ordinal:    sectionOrdinal,
				Tags:       sectionTags,
			}},
		})
		return render(resp)
	},
}

var sectionListCmd = &cobra.Command{
	Use:   "list <entity-id>",
	Short: "List the sections attached to a work item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityID, err := parseUUID(args[0])
		if err != nil {
			return err
		}
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout()
		defer cancel()
		resp := svc.QuerySections(ctx, entityID)
		return render(resp)
	},
}

var sectionDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete sections by id",
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
		resp := svc.ManageSections(ctx, api.ManageSectionsRequest{Operation: "delete", IDs: ids})
		return render(resp)
	},
}

func init() {
	sectionCreateCmd.Flags().StringVar(&sectionEntityKind, "kind", "", "Entity kind: project, feature, or task (required)")
	sectionCreateCmd.Flags().StringVar(&sectionTitle, "title", "", "Section title")
	sectionCreateCmd.Flags().StringVar(&sectionContent, "content", "", "Section content")
	sectionCreateCmd.Flags().StringVar(&sectionFormat, "format", "note", "Section format: note, criteria, session, template, ...")
	sectionCreateCmd.Flags().IntVar(&sectionOrdinal, "ordinal", 0, "Display ordinal among an entity's sections")
	sectionCreateCmd.Flags().StringSliceVar(&sectionTags, "tags", nil, "Tags for this section")
	_ = sectionCreateCmd.MarkFlagRequired("kind")
}
