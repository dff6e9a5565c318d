package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/lotledger/pkg/enums"
)

// Lot is one receipt of an item. ReceivedQty never changes after creation;
// ReceiptSeq orders an item's lots by arrival and drives FIFO allocation.
type Lot struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID      uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:inventory_lots_item_seq_key,priority:1"`
	LotCode     string          `gorm:"column:lot_code;not null;uniqueIndex:inventory_lots_lot_code_key"`
	ReceivedQty decimal.Decimal `gorm:"column:received_qty;type:numeric(18,4);not null"`
	QCStatus    enums.QCStatus  `gorm:"column:qc_status;type:text;not null"`
	ReceiptSeq  int64           `gorm:"column:receipt_seq;not null;uniqueIndex:inventory_lots_item_seq_key,priority:2"`
	ReceivedAt  time.Time       `gorm:"column:received_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Lot) TableName() string { return "inventory_lots" }

func (l *Lot) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
