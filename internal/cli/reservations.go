package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/internal/reservations"
)

func newReserveCommand(open OpenFunc) *cobra.Command {
	reserveCmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve item quantity for a later issue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			itemID, err := uuidFlag(cmd, "item")
			if err != nil {
				return err
			}
			qty, err := qtyFlag(cmd)
			if err != nil {
				return err
			}
			input := reservations.ReserveInput{ItemID: itemID, Qty: qty}
			if ref, _ := cmd.Flags().GetString("reference"); strings.TrimSpace(ref) != "" {
				input.Reference = &ref
			}
			if key, _ := cmd.Flags().GetString("idempotency-key"); strings.TrimSpace(key) != "" {
				input.IdempotencyKey = &key
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				res, err := s.Reservations.Reserve(cmd.Context(), input)
				if err != nil {
					return nil, err
				}
				return reservations.FromReserveResult(res), nil
			})
		},
	}
	reserveCmd.Flags().String("item", "", "Item id")
	reserveCmd.Flags().String("qty", "", "Quantity to reserve")
	reserveCmd.Flags().String("reference", "", "Free-form caller reference")
	reserveCmd.Flags().String("idempotency-key", "", "Key that makes retries return the first reservation")
	_ = reserveCmd.MarkFlagRequired("item")
	_ = reserveCmd.MarkFlagRequired("qty")
	return reserveCmd
}

func newIssueCommand(open OpenFunc) *cobra.Command {
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an open reservation from approved lots, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuidFlag(cmd, "reservation")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				return s.Reservations.Issue(cmd.Context(), id)
			})
		},
	}
	issueCmd.Flags().String("reservation", "", "Reservation id")
	_ = issueCmd.MarkFlagRequired("reservation")
	return issueCmd
}

func newCancelCommand(open OpenFunc) *cobra.Command {
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an open reservation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuidFlag(cmd, "reservation")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(s *app.Services) (any, error) {
				res, err := s.Reservations.Cancel(cmd.Context(), id)
				if err != nil {
					return nil, err
				}
				return reservations.FromModel(res), nil
			})
		},
	}
	cancelCmd.Flags().String("reservation", "", "Reservation id")
	_ = cancelCmd.MarkFlagRequired("reservation")
	return cancelCmd
}
