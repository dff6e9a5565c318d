package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/angelmondragon/lotledger/pkg/pagination"
)

func newLotsCommand(open OpenFunc) *cobra.Command {
	lotsCmd := &cobra.Command{Use: "lots", Short: "Lot operations"}

	qcCmd := &cobra.Command{
		Use:   "qc",
		Short: "Record a QC verdict (APPROVED or REJECTED) for a quarantined lot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lotID, err := uuidFlag(cmd, "lot")
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("status")
			status := enums.QCStatus(validators.NormalizeEnum(raw))
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				lot, err := s.Lots.UpdateQCStatus(cmd.Context(), lotID, status)
				if err != nil {
					return nil, err
				}
				return lots.FromModel(lot), nil
			})
		},
	}
	qcCmd.Flags().String("lot", "", "Lot id")
	qcCmd.Flags().String("status", "", "APPROVED or REJECTED")
	_ = qcCmd.MarkFlagRequired("lot")
	_ = qcCmd.MarkFlagRequired("status")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List lots, newest receipt first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			itemID, err := optionalUUIDFlag(cmd, "item")
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")
			input := lots.ListInput{ItemID: itemID, Params: pagination.Params{Limit: limit, Cursor: cursor}}
			if raw, _ := cmd.Flags().GetString("status"); strings.TrimSpace(raw) != "" {
				status := enums.QCStatus(validators.NormalizeEnum(raw))
				input.QCStatus = &status
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				page, err := s.Lots.List(cmd.Context(), input)
				if err != nil {
					return nil, err
				}
				out := make([]*lots.LotDTO, 0, len(page.Items))
				for i := range page.Items {
					out = append(out, lots.FromModel(&page.Items[i]))
				}
				return pagination.Page[*lots.LotDTO]{Items: out, NextCursor: page.NextCursor}, nil
			})
		},
	}
	listCmd.Flags().String("item", "", "Filter by item id")
	listCmd.Flags().String("status", "", "Filter by QC status")
	listCmd.Flags().Int("limit", pagination.DefaultLimit, "Page size")
	listCmd.Flags().String("cursor", "", "Cursor from a previous page")

	lotsCmd.AddCommand(qcCmd, listCmd)
	return lotsCmd
}

func newReceiveCommand(open OpenFunc) *cobra.Command {
	receiveCmd := &cobra.Command{
		Use:   "receive",
		Short: "Receive goods as a new lot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			itemID, err := uuidFlag(cmd, "item")
			if err != nil {
				return err
			}
			qty, err := qtyFlag(cmd)
			if err != nil {
				return err
			}
			code, _ := cmd.Flags().GetString("lot")
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				res, err := s.Lots.Receive(cmd.Context(), lots.ReceiveInput{ItemID: itemID, LotCode: code, Qty: qty})
				if err != nil {
					return nil, err
				}
				return lots.FromReceiveResult(res), nil
			})
		},
	}
	receiveCmd.Flags().String("item", "", "Item id")
	receiveCmd.Flags().String("lot", "", "Unique lot code")
	receiveCmd.Flags().String("qty", "", "Quantity received")
	_ = receiveCmd.MarkFlagRequired("item")
	_ = receiveCmd.MarkFlagRequired("lot")
	_ = receiveCmd.MarkFlagRequired("qty")
	return receiveCmd
}
