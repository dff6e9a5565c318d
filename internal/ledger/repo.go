package ledger

import (
	"context"

	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListParams filters the cross-item ledger listing. Nil filters are ignored.
type ListParams struct {
	ItemID        *uuid.UUID
	LotID         *uuid.UUID
	ReservationID *uuid.UUID
	TxnType       *enums.LedgerTxnType
	Limit         int
	Cursor        *pagination.Cursor
}

// Repository manages persistence for ledger entries. Entries are write-once:
// there is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.LedgerEntry) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.LedgerEntry, error)
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]models.LedgerEntry, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.LedgerEntry, error)
	ListByItemAndType(ctx context.Context, itemID uuid.UUID, txnType enums.LedgerTxnType) ([]models.LedgerEntry, error)
	List(ctx context.Context, params ListParams) ([]models.LedgerEntry, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append assigns the next per-item sequence number and inserts the entry.
// Callers hold the item lock, so MAX+1 cannot race; the unique (item_id, seq)
// index rejects anything that slips through.
func (r *repository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	var maxSeq int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("item_id = ?", entry.ItemID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	entry.Seq = maxSeq + 1
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.LedgerEntry, error) {
	return r.listOrdered(ctx, "item_id = ?", itemID)
}

func (r *repository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]models.LedgerEntry, error) {
	return r.listOrdered(ctx, "lot_id = ?", lotID)
}

func (r *repository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.LedgerEntry, error) {
	return r.listOrdered(ctx, "reservation_id = ?", reservationID)
}

func (r *repository) ListByItemAndType(ctx context.Context, itemID uuid.UUID, txnType enums.LedgerTxnType) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND txn_type = ?", itemID, txnType).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) listOrdered(ctx context.Context, where string, id uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where(where, id).
		Order("item_id ASC").
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns the most recent entries first, fetching one extra row so the
// caller can tell whether another page exists.
func (r *repository) List(ctx context.Context, params ListParams) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.LotID != nil {
		query = query.Where("lot_id = ?", *params.LotID)
	}
	if params.ReservationID != nil {
		query = query.Where("reservation_id = ?", *params.ReservationID)
	}
	if params.TxnType != nil {
		query = query.Where("txn_type = ?", *params.TxnType)
	}
	if params.Cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
