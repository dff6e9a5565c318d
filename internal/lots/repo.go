package lots

import (
	"context"

	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListParams filters the lot listing. Nil filters are ignored.
type ListParams struct {
	ItemID   *uuid.UUID
	QCStatus *enums.QCStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// Repository persists lots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lot *models.Lot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	FindByCode(ctx context.Context, code string) (*models.Lot, error)
	SetQCStatus(ctx context.Context, id uuid.UUID, status enums.QCStatus) error
	ListApprovedByItem(ctx context.Context, itemID uuid.UUID) ([]models.Lot, error)
	List(ctx context.Context, params ListParams) ([]models.Lot, error)
	CountByStatus(ctx context.Context) (map[enums.QCStatus]int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create stamps the next per-item receipt sequence and inserts the lot.
func (r *repository) Create(ctx context.Context, lot *models.Lot) error {
	var maxSeq int64
	if err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("item_id = ?", lot.ItemID).
		Select("COALESCE(MAX(receipt_seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	lot.ReceiptSeq = maxSeq + 1
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Lot, error) {
	var lot models.Lot
	if err := r.db.WithContext(ctx).First(&lot, "lot_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) SetQCStatus(ctx context.Context, id uuid.UUID, status enums.QCStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", id).
		Update("qc_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListApprovedByItem returns APPROVED lots in receipt order, the FIFO order
// used for allocation.
func (r *repository) ListApprovedByItem(ctx context.Context, itemID uuid.UUID) ([]models.Lot, error) {
	var lots []models.Lot
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND qc_status = ?", itemID, enums.QCStatusApproved).
		Order("receipt_seq ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Lot, error) {
	query := r.db.WithContext(ctx).Model(&models.Lot{})
	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.QCStatus != nil {
		query = query.Where("qc_status = ?", *params.QCStatus)
	}
	if params.Cursor != nil {
		query = query.Where("((received_at < ?) OR (received_at = ? AND id < ?))",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}
	var lots []models.Lot
	if err := query.
		Order("received_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

type statusCount struct {
	QCStatus enums.QCStatus `gorm:"column:qc_status"`
	Total    int64          `gorm:"column:total"`
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.QCStatus]int64, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Select("qc_status, COUNT(*) AS total").
		Group("qc_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.QCStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.QCStatus] = row.Total
	}
	return counts, nil
}
