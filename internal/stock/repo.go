package stock

import (
	"context"

	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationReader is the read side of the reservations table the
// aggregator needs.
type ReservationReader interface {
	WithTx(tx *gorm.DB) ReservationReader
	ListOpenByItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error)
	CountOpen(ctx context.Context) (int64, error)
}

type reservationReader struct {
	db *gorm.DB
}

func NewReservationReader(db *gorm.DB) ReservationReader {
	return &reservationReader{db: db}
}

func (r *reservationReader) WithTx(tx *gorm.DB) ReservationReader {
	if tx == nil {
		return r
	}
	return &reservationReader{db: tx}
}

func (r *reservationReader) ListOpenByItem(ctx context.Context, itemID uuid.UUID) ([]models.Reservation, error) {
	var rows []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusOpen).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reservationReader) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status = ?", enums.ReservationStatusOpen).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
