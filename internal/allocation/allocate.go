// Package allocation picks which QC-approved lots satisfy a quantity, oldest
// receipt first.
package allocation

import (
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotAvailability is one approved lot and what can still be issued from it.
type LotAvailability struct {
	LotID     uuid.UUID
	LotCode   string
	Available decimal.Decimal
}

// Allocation is the quantity taken from one lot.
type Allocation struct {
	LotID   uuid.UUID       `json:"lot_id"`
	LotCode string          `json:"lot_code"`
	Qty     decimal.Decimal `json:"qty"`
}

// Allocate walks lots in the given order taking min(available, remaining)
// from each until qty is covered. Lots with nothing available are skipped.
func Allocate(lots []LotAvailability, qty decimal.Decimal) ([]Allocation, error) {
	if !qty.IsPositive() {
		return nil, pkgerrors.ErrInvalidQty.Because("allocation qty must be greater than zero, got %s", qty)
	}
	if len(lots) == 0 {
		return nil, pkgerrors.ErrNoQCApprovedLot.Because("no qc-approved lot to allocate %s from", qty)
	}

	total := decimal.Zero
	for _, lot := range lots {
		if lot.Available.IsPositive() {
			total = total.Add(lot.Available)
		}
	}
	if total.LessThan(qty) {
		return nil, pkgerrors.ErrInsufficientApprovedStock.
			Because("approved lots cover %s of %s requested", total, qty).
			WithDetails(map[string]any{"approved_available": total.String(), "requested": qty.String()})
	}

	remaining := qty
	out := make([]Allocation, 0, len(lots))
	for _, lot := range lots {
		if remaining.IsZero() {
			break
		}
		if !lot.Available.IsPositive() {
			continue
		}
		take := decimal.Min(lot.Available, remaining)
		out = append(out, Allocation{LotID: lot.LotID, LotCode: lot.LotCode, Qty: take})
		remaining = remaining.Sub(take)
	}
	return out, nil
}

// Total sums allocated quantities.
func Total(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Qty)
	}
	return total
}
