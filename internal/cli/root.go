// Package cli contains the lotctl administrative commands. Commands talk to
// the database directly through the same services the API uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/lotledger/internal/app"
)

// OpenFunc opens the inventory services for one command run. The returned
// close func releases the underlying connections.
type OpenFunc func(ctx context.Context) (*app.Services, func(), error)

// NewRoot constructs the lotctl root command and registers every group.
func NewRoot(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "lotctl",
		Short:         "Lot-tracked inventory administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newItemsCommand(open),
		newLotsCommand(open),
		newReceiveCommand(open),
		newReserveCommand(open),
		newIssueCommand(open),
		newCancelCommand(open),
		newSummaryCommand(open),
		newLedgerCommand(open),
		newStatsCommand(open),
	)
	return root
}

// withServices opens the services, runs fn and closes them.
func withServices(cmd *cobra.Command, open OpenFunc, fn func(*app.Services) (any, error)) error {
	svcs, closeFn, err := open(cmd.Context())
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	out, err := fn(svcs)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}

// optionalUUIDFlag returns nil when the flag was left empty.
func optionalUUIDFlag(cmd *cobra.Command, name string) (*uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := uuidFlag(cmd, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func qtyFlag(cmd *cobra.Command) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString("qty")
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --qty: %w", err)
	}
	return qty, nil
}
