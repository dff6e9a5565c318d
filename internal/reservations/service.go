package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/lotledger/internal/allocation"
	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/internal/stock"
	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/locks"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/metrics"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReserveInput claims qty of an item. IdempotencyKey makes retries return the
// original reservation.
type ReserveInput struct {
	ItemID         uuid.UUID       `json:"item_id" validate:"required"`
	Qty            decimal.Decimal `json:"qty"`
	Reference      *string         `json:"reference,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey *string         `json:"-"`
}

// ReserveResult carries the reservation and its RESERVE entry. Replayed is set
// when an idempotency key matched an earlier reservation; LedgerEntry is nil
// in that case.
type ReserveResult struct {
	Reservation models.Reservation
	LedgerEntry *models.LedgerEntry
	Replayed    bool
}

// IssueResult lists the lots an issue drew from, in FIFO order.
type IssueResult struct {
	ReservationID uuid.UUID               `json:"reservation_id"`
	ItemID        uuid.UUID               `json:"item_id"`
	Qty           decimal.Decimal         `json:"qty"`
	LotsIssued    []allocation.Allocation `json:"lots_issued"`
}

// ListInput is the raw listing request from transports.
type ListInput struct {
	ItemID *uuid.UUID
	Status *enums.ReservationStatus
	pagination.Params
}

// Service owns the reservation lifecycle: OPEN, then ISSUED or CANCELLED.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error)
	Issue(ctx context.Context, reservationID uuid.UUID) (*IssueResult, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	List(ctx context.Context, input ListInput) (pagination.Page[models.Reservation], error)
}

// ServiceParams groups the collaborators of the reservation service.
type ServiceParams struct {
	Tx         txRunner
	Locker     locks.Locker
	Repo       Repository
	Items      items.Repository
	Ledger     ledger.Service
	Stock      stock.Aggregator
	Allocation allocation.Engine
	Metrics    *metrics.InventoryMetrics
	Logger     *logger.Logger
}

type service struct {
	tx      txRunner
	locker  locks.Locker
	repo    Repository
	items   items.Repository
	ledger  ledger.Service
	stock   stock.Aggregator
	engine  allocation.Engine
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case p.Repo == nil:
		return nil, fmt.Errorf("reservation repository required")
	case p.Items == nil:
		return nil, fmt.Errorf("item repository required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Stock == nil:
		return nil, fmt.Errorf("stock aggregator required")
	case p.Allocation == nil:
		return nil, fmt.Errorf("allocation engine required")
	}
	return &service{
		tx:      p.Tx,
		locker:  p.Locker,
		repo:    p.Repo,
		items:   p.Items,
		ledger:  p.Ledger,
		stock:   p.Stock,
		engine:  p.Allocation,
		metrics: p.Metrics,
		logg:    p.Logger,
	}, nil
}

// Reserve checks available stock and that every OPEN reservation plus this
// one can still be issued from approved lots, then records the reservation.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (result *ReserveResult, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("reserve", started, err) }()

	if err := ledger.ValidateQty(input.Qty, "reserve"); err != nil {
		return nil, err
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	key := normalizeKey(input.IdempotencyKey)
	reference := normalizeKey(input.Reference)

	err = locks.With(ctx, s.locker, locks.ItemKey(input.ItemID), func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.items.WithTx(tx).FindByIDForUpdate(ctx, input.ItemID); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.ErrItemNotFound.Because("item %s not found", input.ItemID)
				}
				return db.ClassifyError(err)
			}

			repo := s.repo.WithTx(tx)
			if key != nil {
				existing, err := repo.FindByIdempotencyKey(ctx, *key)
				switch {
				case err == nil:
					if existing.ItemID != input.ItemID || !existing.Qty.Equal(input.Qty) {
						return pkgerrors.ErrIdempotencyKeyReused.Because("idempotency key %q was used for a different reservation", *key)
					}
					result = &ReserveResult{Reservation: *existing, Replayed: true}
					return nil
				case !db.IsNotFound(err):
					return db.ClassifyError(err)
				}
			}

			summary, err := s.stock.ItemSummary(ctx, tx, input.ItemID)
			if err != nil {
				return err
			}
			if summary.Available.LessThan(input.Qty) {
				return pkgerrors.ErrInsufficientStock.
					Because("available %s is less than requested %s", summary.Available, input.Qty).
					WithDetails(map[string]any{"available": summary.Available.String(), "requested": input.Qty.String()})
			}
			if _, err := s.engine.SelectLots(ctx, tx, input.ItemID, summary.Reserved.Add(input.Qty)); err != nil {
				return approvedShortfall(err, "approved lots cannot cover open reservations plus %s", input.Qty)
			}

			reservation := &models.Reservation{
				ItemID:         input.ItemID,
				Qty:            input.Qty,
				Status:         enums.ReservationStatusOpen,
				Reference:      reference,
				IdempotencyKey: key,
			}
			if err := repo.Create(ctx, reservation); err != nil {
				if key != nil && db.IsUniqueViolation(err, "") {
					return pkgerrors.ErrIdempotencyKeyReused.Because("idempotency key %q was used for a different reservation", *key)
				}
				return db.ClassifyError(err)
			}

			entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				ItemID:        input.ItemID,
				ReservationID: &reservation.ID,
				TxnType:       enums.LedgerTxnReserve,
				Qty:           input.Qty,
			})
			if err != nil {
				return err
			}
			result = &ReserveResult{Reservation: *reservation, LedgerEntry: entry}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && !result.Replayed {
		logCtx := s.logg.WithFields(s.logg.WithReservationID(ctx, result.Reservation.ID.String()), map[string]any{
			"item_id": result.Reservation.ItemID.String(),
			"qty":     result.Reservation.Qty.String(),
		})
		s.logg.Info(logCtx, "reservation.created")
	}
	return result, nil
}

// Issue converts an OPEN reservation into ISSUE entries against approved
// lots in FIFO order and releases the reservation.
func (s *service) Issue(ctx context.Context, reservationID uuid.UUID) (result *IssueResult, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("issue", started, err) }()

	current, err := s.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	err = locks.With(ctx, s.locker, locks.ItemKey(current.ItemID), func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			reservation, err := s.lockOpen(ctx, repo, reservationID)
			if err != nil {
				return err
			}

			allocations, err := s.engine.SelectLots(ctx, tx, reservation.ItemID, reservation.Qty)
			if err != nil {
				return approvedShortfall(err, "approved lots cannot cover reservation %s", reservation.ID)
			}

			for _, alloc := range allocations {
				lotID := alloc.LotID
				if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
					ItemID:        reservation.ItemID,
					LotID:         &lotID,
					ReservationID: &reservation.ID,
					TxnType:       enums.LedgerTxnIssue,
					Qty:           alloc.Qty,
				}); err != nil {
					return err
				}
			}
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				ItemID:        reservation.ItemID,
				ReservationID: &reservation.ID,
				TxnType:       enums.LedgerTxnUnreserve,
				Qty:           reservation.Qty,
			}); err != nil {
				return err
			}

			if err := s.close(ctx, repo, reservation.ID, enums.ReservationStatusIssued); err != nil {
				return err
			}
			result = &IssueResult{
				ReservationID: reservation.ID,
				ItemID:        reservation.ItemID,
				Qty:           reservation.Qty,
				LotsIssued:    allocations,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithReservationID(ctx, result.ReservationID.String()), map[string]any{
			"item_id": result.ItemID.String(),
			"qty":     result.Qty.String(),
			"lots":    len(result.LotsIssued),
		})
		s.logg.Info(logCtx, "reservation.issued")
	}
	return result, nil
}

// Cancel releases an OPEN reservation without issuing stock.
func (s *service) Cancel(ctx context.Context, reservationID uuid.UUID) (cancelled *models.Reservation, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("cancel", started, err) }()

	current, err := s.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	err = locks.With(ctx, s.locker, locks.ItemKey(current.ItemID), func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			reservation, err := s.lockOpen(ctx, repo, reservationID)
			if err != nil {
				return err
			}

			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				ItemID:        reservation.ItemID,
				ReservationID: &reservation.ID,
				TxnType:       enums.LedgerTxnUnreserve,
				Qty:           reservation.Qty,
			}); err != nil {
				return err
			}
			if err := s.close(ctx, repo, reservation.ID, enums.ReservationStatusCancelled); err != nil {
				return err
			}

			reloaded, err := repo.FindByID(ctx, reservation.ID)
			if err != nil {
				return db.ClassifyError(err)
			}
			cancelled = reloaded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithReservationID(ctx, cancelled.ID.String()), map[string]any{
			"item_id": cancelled.ItemID.String(),
			"qty":     cancelled.Qty.String(),
		})
		s.logg.Info(logCtx, "reservation.cancelled")
	}
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrReservationNotFound.Because("reservation %s not found", reservationID)
		}
		return nil, db.ClassifyError(err)
	}
	return reservation, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[models.Reservation], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return pagination.Page[models.Reservation]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reservation status %q", *input.Status))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return pagination.Page[models.Reservation]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListParams{
		ItemID: input.ItemID,
		Status: input.Status,
		Limit:  input.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return pagination.Page[models.Reservation]{}, db.ClassifyError(err)
	}
	return pagination.Paginate(rows, input.Limit, func(r models.Reservation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	}), nil
}

// lockOpen re-reads the reservation under the row lock and rejects terminal
// states.
func (s *service) lockOpen(ctx context.Context, repo Repository, reservationID uuid.UUID) (*models.Reservation, error) {
	reservation, err := repo.FindByIDForUpdate(ctx, reservationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrReservationNotFound.Because("reservation %s not found", reservationID)
		}
		return nil, db.ClassifyError(err)
	}
	switch reservation.Status {
	case enums.ReservationStatusIssued:
		return nil, pkgerrors.ErrReservationAlreadyIssued.Because("reservation %s was already issued", reservation.ID)
	case enums.ReservationStatusCancelled:
		return nil, pkgerrors.ErrReservationCancelled.Because("reservation %s was cancelled", reservation.ID)
	}
	return reservation, nil
}

func (s *service) close(ctx context.Context, repo Repository, id uuid.UUID, status enums.ReservationStatus) error {
	closed, err := repo.Close(ctx, id, status, time.Now().UTC())
	if err != nil {
		return db.ClassifyError(err)
	}
	if !closed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation %s is no longer open", id))
	}
	return nil
}

func normalizeKey(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// approvedShortfall reports an approved-lot shortfall as INSUFFICIENT_STOCK,
// keeping the allocation details. Other errors pass through unchanged.
func approvedShortfall(err error, format string, args ...any) error {
	if !errors.Is(err, pkgerrors.ErrInsufficientApprovedStock) {
		return err
	}
	mapped := pkgerrors.ErrInsufficientStock.Because(format, args...)
	if typed := pkgerrors.As(err); typed != nil && typed.Details() != nil {
		mapped = mapped.WithDetails(typed.Details())
	}
	return mapped
}
