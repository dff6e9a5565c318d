package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/lotledger/pkg/enums"
)

// Reservation claims item quantity against a future issue.
type Reservation struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ItemID         uuid.UUID               `gorm:"column:item_id;type:uuid;not null;index:reservations_item_status_idx,priority:1"`
	Qty            decimal.Decimal         `gorm:"column:qty;type:numeric(18,4);not null"`
	Status         enums.ReservationStatus `gorm:"column:status;type:text;not null;index:reservations_item_status_idx,priority:2"`
	Reference      *string                 `gorm:"column:reference"`
	IdempotencyKey *string                 `gorm:"column:idempotency_key;uniqueIndex:reservations_idempotency_key_key"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	ClosedAt       *time.Time              `gorm:"column:closed_at"`
}

func (Reservation) TableName() string { return "reservations" }

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
