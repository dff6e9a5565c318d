package ledger

import (
	"context"
	"fmt"

	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines operations that record and query ledger entries.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error)
	QueryByItem(ctx context.Context, itemID uuid.UUID) ([]models.LedgerEntry, error)
	QueryByLot(ctx context.Context, lotID uuid.UUID) ([]models.LedgerEntry, error)
	QueryByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.LedgerEntry, error)
	List(ctx context.Context, input ListInput) (pagination.Page[models.LedgerEntry], error)
	Count(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
}

// AppendInput captures the immutable data a ledger entry requires.
type AppendInput struct {
	ItemID        uuid.UUID           `json:"item_id"`
	LotID         *uuid.UUID          `json:"lot_id,omitempty"`
	ReservationID *uuid.UUID          `json:"reservation_id,omitempty"`
	TxnType       enums.LedgerTxnType `json:"txn_type"`
	Qty           decimal.Decimal     `json:"qty"`
}

// ListInput is the raw listing request from transports.
type ListInput struct {
	ItemID        *uuid.UUID
	LotID         *uuid.UUID
	ReservationID *uuid.UUID
	TxnType       *enums.LedgerTxnType
	pagination.Params
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Append validates input and writes it inside the caller's transaction. A nil
// tx appends outside any transaction.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ItemID:        input.ItemID,
		LotID:         input.LotID,
		ReservationID: input.ReservationID,
		TxnType:       input.TxnType,
		Qty:           input.Qty,
	}

	if err := s.repo.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, db.ClassifyError(fmt.Errorf("append %s entry: %w", input.TxnType, err))
	}
	return entry, nil
}

func validateAppend(input AppendInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !input.TxnType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger txn type %q", input.TxnType))
	}
	if err := ValidateQty(input.Qty, "ledger"); err != nil {
		return err
	}
	if input.TxnType.LotScoped() && (input.LotID == nil || *input.LotID == uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s entries require a lot id", input.TxnType))
	}
	if input.TxnType != enums.LedgerTxnReceive && (input.ReservationID == nil || *input.ReservationID == uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s entries require a reservation id", input.TxnType))
	}
	return nil
}

func (s *service) QueryByItem(ctx context.Context, itemID uuid.UUID) ([]models.LedgerEntry, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	entries, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return entries, nil
}

func (s *service) QueryByLot(ctx context.Context, lotID uuid.UUID) ([]models.LedgerEntry, error) {
	if lotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot id is required")
	}
	entries, err := s.repo.ListByLot(ctx, lotID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return entries, nil
}

func (s *service) QueryByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.LedgerEntry, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	entries, err := s.repo.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return entries, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[models.LedgerEntry], error) {
	if input.TxnType != nil && !input.TxnType.IsValid() {
		return pagination.Page[models.LedgerEntry]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger txn type %q", *input.TxnType))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return pagination.Page[models.LedgerEntry]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, ListParams{
		ItemID:        input.ItemID,
		LotID:         input.LotID,
		ReservationID: input.ReservationID,
		TxnType:       input.TxnType,
		Limit:         input.Limit,
		Cursor:        cursor,
	})
	if err != nil {
		return pagination.Page[models.LedgerEntry]{}, db.ClassifyError(err)
	}
	return pagination.Paginate(rows, input.Limit, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	}), nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, db.ClassifyError(err)
	}
	return count, nil
}
