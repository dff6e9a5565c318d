package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/lotledger/pkg/enums"
)

// LedgerEntry records an immutable inventory movement. Seq is the per-item
// append order.
type LedgerEntry struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID           `gorm:"column:item_id;type:uuid;not null;uniqueIndex:inventory_ledger_item_seq_key,priority:1"`
	LotID         *uuid.UUID          `gorm:"column:lot_id;type:uuid;index"`
	ReservationID *uuid.UUID          `gorm:"column:reservation_id;type:uuid;index"`
	TxnType       enums.LedgerTxnType `gorm:"column:txn_type;type:text;not null"`
	Qty           decimal.Decimal     `gorm:"column:qty;type:numeric(18,4);not null"`
	Seq           int64               `gorm:"column:seq;not null;uniqueIndex:inventory_ledger_item_seq_key,priority:2"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string { return "inventory_ledger" }

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
