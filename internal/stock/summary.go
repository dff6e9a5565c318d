package stock

import (
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemSummary is the derived stock position of one item.
type ItemSummary struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Received  decimal.Decimal `json:"received"`
	Issued    decimal.Decimal `json:"issued"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

// LotSummary is the derived stock position of one lot.
type LotSummary struct {
	LotID     uuid.UUID       `json:"lot_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	LotCode   string          `json:"lot_code"`
	QCStatus  enums.QCStatus  `json:"qc_status"`
	Received  decimal.Decimal `json:"received"`
	Reserved  decimal.Decimal `json:"reserved"`
	Issued    decimal.Decimal `json:"issued"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Available decimal.Decimal `json:"available"`
}

// Stats is the dashboard snapshot across the whole store.
type Stats struct {
	TotalItems        int64 `json:"total_items"`
	TotalLots         int64 `json:"total_lots"`
	ApprovedLots      int64 `json:"approved_lots"`
	QuarantineLots    int64 `json:"quarantine_lots"`
	RejectedLots      int64 `json:"rejected_lots"`
	OpenReservations  int64 `json:"open_reservations"`
	TotalTransactions int64 `json:"total_transactions"`
}

// SummarizeItem folds an item's ledger entries. openReserved is the total
// quantity of the item's OPEN reservations.
func SummarizeItem(itemID uuid.UUID, entries []models.LedgerEntry, openReserved decimal.Decimal) ItemSummary {
	received, issued := decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.TxnType {
		case enums.LedgerTxnReceive:
			received = received.Add(e.Qty)
		case enums.LedgerTxnIssue:
			issued = issued.Add(e.Qty)
		}
	}
	onHand := received.Sub(issued)
	return ItemSummary{
		ItemID:    itemID,
		Received:  received,
		Issued:    issued,
		OnHand:    onHand,
		Reserved:  openReserved,
		Available: onHand.Sub(openReserved),
	}
}

// SummarizeLot folds the ledger entries referencing one lot. Only APPROVED
// lots report availability.
func SummarizeLot(lot models.Lot, entries []models.LedgerEntry) LotSummary {
	received, issued, reserved := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.LotID == nil || *e.LotID != lot.ID {
			continue
		}
		switch e.TxnType {
		case enums.LedgerTxnReceive:
			received = received.Add(e.Qty)
		case enums.LedgerTxnIssue:
			issued = issued.Add(e.Qty)
		case enums.LedgerTxnReserve:
			reserved = reserved.Add(e.Qty)
		case enums.LedgerTxnUnreserve:
			reserved = reserved.Sub(e.Qty)
		}
	}
	onHand := received.Sub(issued)
	available := decimal.Zero
	if lot.QCStatus == enums.QCStatusApproved {
		available = decimal.Max(onHand.Sub(reserved), decimal.Zero)
	}
	return LotSummary{
		LotID:     lot.ID,
		ItemID:    lot.ItemID,
		LotCode:   lot.LotCode,
		QCStatus:  lot.QCStatus,
		Received:  received,
		Reserved:  reserved,
		Issued:    issued,
		OnHand:    onHand,
		Available: available,
	}
}

// IssuedByLot totals ISSUE entries per lot.
func IssuedByLot(entries []models.LedgerEntry) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range entries {
		if e.TxnType != enums.LedgerTxnIssue || e.LotID == nil {
			continue
		}
		totals[*e.LotID] = totals[*e.LotID].Add(e.Qty)
	}
	return totals
}

// SumQty totals reservation quantities.
func SumQty(reservations []models.Reservation) decimal.Decimal {
	total := decimal.Zero
	for _, r := range reservations {
		total = total.Add(r.Qty)
	}
	return total
}
