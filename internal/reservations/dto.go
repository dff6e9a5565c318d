package reservations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
)

// ReservationDTO exposes a reservation in API responses. The idempotency key
// is never echoed back.
type ReservationDTO struct {
	ID        uuid.UUID               `json:"id"`
	ItemID    uuid.UUID               `json:"item_id"`
	Qty       decimal.Decimal         `json:"qty"`
	Status    enums.ReservationStatus `json:"status"`
	Reference *string                 `json:"reference,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	ClosedAt  *time.Time              `json:"closed_at,omitempty"`
}

// ReserveDTO is the API form of a ReserveResult.
type ReserveDTO struct {
	Reservation *ReservationDTO  `json:"reservation"`
	LedgerEntry *ledger.EntryDTO `json:"ledger_entry,omitempty"`
	Replayed    bool             `json:"replayed"`
}

// FromModel maps the persisted reservation into a DTO.
func FromModel(m *models.Reservation) *ReservationDTO {
	if m == nil {
		return nil
	}
	return &ReservationDTO{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Qty:       m.Qty,
		Status:    m.Status,
		Reference: m.Reference,
		CreatedAt: m.CreatedAt,
		ClosedAt:  m.ClosedAt,
	}
}

// FromReserveResult maps a reserve outcome into its API form.
func FromReserveResult(r *ReserveResult) *ReserveDTO {
	if r == nil {
		return nil
	}
	return &ReserveDTO{
		Reservation: FromModel(&r.Reservation),
		LedgerEntry: ledger.FromModel(r.LedgerEntry),
		Replayed:    r.Replayed,
	}
}
