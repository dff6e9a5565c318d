package lots

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
)

// LotDTO exposes a lot in API responses.
type LotDTO struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      uuid.UUID       `json:"item_id"`
	LotCode     string          `json:"lot_code"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	QCStatus    enums.QCStatus  `json:"qc_status"`
	ReceiptSeq  int64           `json:"receipt_seq"`
	ReceivedAt  time.Time       `json:"received_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ReceiveDTO is the API form of a ReceiveResult.
type ReceiveDTO struct {
	Lot         *LotDTO          `json:"lot"`
	LedgerEntry *ledger.EntryDTO `json:"ledger_entry"`
}

// FromModel maps the persisted lot into a DTO.
func FromModel(m *models.Lot) *LotDTO {
	if m == nil {
		return nil
	}
	return &LotDTO{
		ID:          m.ID,
		ItemID:      m.ItemID,
		LotCode:     m.LotCode,
		ReceivedQty: m.ReceivedQty,
		QCStatus:    m.QCStatus,
		ReceiptSeq:  m.ReceiptSeq,
		ReceivedAt:  m.ReceivedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromReceiveResult maps a receive outcome into its API form.
func FromReceiveResult(r *ReceiveResult) *ReceiveDTO {
	if r == nil {
		return nil
	}
	return &ReceiveDTO{
		Lot:         FromModel(&r.Lot),
		LedgerEntry: ledger.FromModel(&r.LedgerEntry),
	}
}
