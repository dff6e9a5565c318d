package cli

import (
	"github.com/spf13/cobra"

	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/pkg/pagination"
)

func newItemsCommand(open OpenFunc) *cobra.Command {
	itemsCmd := &cobra.Command{Use: "items", Short: "Item operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register an item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, _ := cmd.Flags().GetString("code")
			name, _ := cmd.Flags().GetString("name")
			qc, _ := cmd.Flags().GetBool("qc-required")
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				item, err := s.Items.Create(cmd.Context(), items.CreateItemInput{Code: code, Name: name, QCRequired: qc})
				if err != nil {
					return nil, err
				}
				return items.FromModel(item), nil
			})
		},
	}
	createCmd.Flags().String("code", "", "Unique item code")
	createCmd.Flags().String("name", "", "Item name")
	createCmd.Flags().Bool("qc-required", false, "New lots start in QUARANTINE")
	_ = createCmd.MarkFlagRequired("code")
	_ = createCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				page, err := s.Items.List(cmd.Context(), pagination.Params{Limit: limit, Cursor: cursor})
				if err != nil {
					return nil, err
				}
				out := make([]*items.ItemDTO, 0, len(page.Items))
				for i := range page.Items {
					out = append(out, items.FromModel(&page.Items[i]))
				}
				return pagination.Page[*items.ItemDTO]{Items: out, NextCursor: page.NextCursor}, nil
			})
		},
	}
	listCmd.Flags().Int("limit", pagination.DefaultLimit, "Page size")
	listCmd.Flags().String("cursor", "", "Cursor from a previous page")

	itemsCmd.AddCommand(createCmd, listCmd)
	return itemsCmd
}
