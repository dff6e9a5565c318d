package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
)

// EntryDTO exposes a ledger entry in API responses.
type EntryDTO struct {
	ID            uuid.UUID           `json:"id"`
	ItemID        uuid.UUID           `json:"item_id"`
	LotID         *uuid.UUID          `json:"lot_id"`
	ReservationID *uuid.UUID          `json:"reservation_id"`
	TxnType       enums.LedgerTxnType `json:"txn_type"`
	Qty           decimal.Decimal     `json:"qty"`
	Seq           int64               `json:"seq"`
	CreatedAt     time.Time           `json:"created_at"`
}

// FromModel maps the persisted entry into a DTO.
func FromModel(m *models.LedgerEntry) *EntryDTO {
	if m == nil {
		return nil
	}
	return &EntryDTO{
		ID:            m.ID,
		ItemID:        m.ItemID,
		LotID:         m.LotID,
		ReservationID: m.ReservationID,
		TxnType:       m.TxnType,
		Qty:           m.Qty,
		Seq:           m.Seq,
		CreatedAt:     m.CreatedAt,
	}
}

// FromModels maps a slice of entries, keeping order.
func FromModels(entries []models.LedgerEntry) []*EntryDTO {
	out := make([]*EntryDTO, 0, len(entries))
	for i := range entries {
		out = append(out, FromModel(&entries[i]))
	}
	return out
}
