package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/angelmondragon/lotledger/pkg/pagination"
)

func newSummaryCommand(open OpenFunc) *cobra.Command {
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the stock position of an item (--item) or a lot (--lot)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			itemID, err := optionalUUIDFlag(cmd, "item")
			if err != nil {
				return err
			}
			lotID, err := optionalUUIDFlag(cmd, "lot")
			if err != nil {
				return err
			}
			if (itemID == nil) == (lotID == nil) {
				return fmt.Errorf("exactly one of --item or --lot is required")
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				if itemID != nil {
					return s.Stock.ItemSummary(cmd.Context(), nil, *itemID)
				}
				return s.Stock.LotSummary(cmd.Context(), nil, *lotID)
			})
		},
	}
	summaryCmd.Flags().String("item", "", "Item id")
	summaryCmd.Flags().String("lot", "", "Lot id")
	return summaryCmd
}

func newLedgerCommand(open OpenFunc) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "List ledger entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")
			input := ledger.ListInput{Params: pagination.Params{Limit: limit, Cursor: cursor}}
			var err error
			if input.ItemID, err = optionalUUIDFlag(cmd, "item"); err != nil {
				return err
			}
			if input.LotID, err = optionalUUIDFlag(cmd, "lot"); err != nil {
				return err
			}
			if input.ReservationID, err = optionalUUIDFlag(cmd, "reservation"); err != nil {
				return err
			}
			if raw, _ := cmd.Flags().GetString("type"); strings.TrimSpace(raw) != "" {
				txn, err := enums.ParseLedgerTxnType(validators.NormalizeEnum(raw))
				if err != nil {
					return err
				}
				input.TxnType = &txn
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				page, err := s.Ledger.List(cmd.Context(), input)
				if err != nil {
					return nil, err
				}
				return pagination.Page[*ledger.EntryDTO]{Items: ledger.FromModels(page.Items), NextCursor: page.NextCursor}, nil
			})
		},
	}
	ledgerCmd.Flags().String("item", "", "Filter by item id")
	ledgerCmd.Flags().String("lot", "", "Filter by lot id")
	ledgerCmd.Flags().String("reservation", "", "Filter by reservation id")
	ledgerCmd.Flags().String("type", "", "Filter by RECEIVE, RESERVE, UNRESERVE or ISSUE")
	ledgerCmd.Flags().Int("limit", pagination.DefaultLimit, "Page size")
	ledgerCmd.Flags().String("cursor", "", "Cursor from a previous page")
	return ledgerCmd
}

func newStatsCommand(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store-wide counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				return s.Stock.Stats(cmd.Context())
			})
		},
	}
}
