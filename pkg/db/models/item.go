package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is a stock-keeping unit. Items are immutable once created.
type Item struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code       string    `gorm:"column:code;not null;uniqueIndex:items_code_key"`
	Name       string    `gorm:"column:name;not null"`
	QCRequired bool      `gorm:"column:qc_required;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
