package lots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
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

// ReceiveInput records goods arriving as a new lot.
type ReceiveInput struct {
	ItemID  uuid.UUID       `json:"item_id" validate:"required"`
	LotCode string          `json:"lot_code" validate:"required,max=128"`
	Qty     decimal.Decimal `json:"qty"`
}

// ReceiveResult is the lot and the RECEIVE entry written for it.
type ReceiveResult struct {
	Lot         models.Lot
	LedgerEntry models.LedgerEntry
}

// ListInput is the raw listing request from transports.
type ListInput struct {
	ItemID   *uuid.UUID
	QCStatus *enums.QCStatus
	pagination.Params
}

// Service is the lot registry.
type Service interface {
	Receive(ctx context.Context, input ReceiveInput) (*ReceiveResult, error)
	UpdateQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) (*models.Lot, error)
	Get(ctx context.Context, lotID uuid.UUID) (*models.Lot, error)
	List(ctx context.Context, input ListInput) (pagination.Page[models.Lot], error)
}

// ServiceParams groups the collaborators of the lot registry.
type ServiceParams struct {
	Tx      txRunner
	Locker  locks.Locker
	Repo    Repository
	Items   items.Repository
	Ledger  ledger.Service
	Metrics *metrics.InventoryMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	locker  locks.Locker
	repo    Repository
	items   items.Repository
	ledger  ledger.Service
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
		return nil, fmt.Errorf("lot repository required")
	case p.Items == nil:
		return nil, fmt.Errorf("item repository required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		tx:      p.Tx,
		locker:  p.Locker,
		repo:    p.Repo,
		items:   p.Items,
		ledger:  p.Ledger,
		metrics: p.Metrics,
		logg:    p.Logger,
	}, nil
}

func (s *service) Receive(ctx context.Context, input ReceiveInput) (result *ReceiveResult, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("receive", started, err) }()

	code := strings.TrimSpace(input.LotCode)
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot code is required")
	}
	if err := ledger.ValidateQty(input.Qty, "receive"); err != nil {
		return nil, err
	}

	err = locks.With(ctx, s.locker, locks.ItemKey(input.ItemID), func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			item, err := s.items.WithTx(tx).FindByIDForUpdate(ctx, input.ItemID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.ErrItemNotFound.Because("item %s not found", input.ItemID)
				}
				return db.ClassifyError(err)
			}

			repo := s.repo.WithTx(tx)
			if _, err := repo.FindByCode(ctx, code); err == nil {
				return pkgerrors.ErrDuplicateLotCode.Because("lot code %q already exists", code)
			} else if !db.IsNotFound(err) {
				return db.ClassifyError(err)
			}

			status := enums.QCStatusApproved
			if item.QCRequired {
				status = enums.QCStatusQuarantine
			}
			lot := &models.Lot{
				ItemID:      item.ID,
				LotCode:     code,
				ReceivedQty: input.Qty,
				QCStatus:    status,
			}
			if err := repo.Create(ctx, lot); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.ErrDuplicateLotCode.Because("lot code %q already exists", code)
				}
				return db.ClassifyError(err)
			}

			entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				ItemID:  item.ID,
				LotID:   &lot.ID,
				TxnType: enums.LedgerTxnReceive,
				Qty:     input.Qty,
			})
			if err != nil {
				return err
			}
			result = &ReceiveResult{Lot: *lot, LedgerEntry: *entry}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":   result.Lot.ItemID.String(),
			"lot_id":    result.Lot.ID.String(),
			"lot_code":  result.Lot.LotCode,
			"qty":       result.Lot.ReceivedQty.String(),
			"qc_status": result.Lot.QCStatus,
		})
		s.logg.Info(logCtx, "inventory.received")
	}
	return result, nil
}

// UpdateQCStatus records a QC verdict. Only QUARANTINE lots transition;
// repeating the verdict a lot already carries is a no-op.
func (s *service) UpdateQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) (updated *models.Lot, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("qc_update", started, err) }()

	if !status.IsDecision() {
		return nil, pkgerrors.ErrInvalidQCStatus.Because("qc status must be APPROVED or REJECTED, got %q", status)
	}

	// The owning item is needed for the lock key before the transaction opens.
	current, err := s.Get(ctx, lotID)
	if err != nil {
		return nil, err
	}

	var previous enums.QCStatus
	err = locks.With(ctx, s.locker, locks.ItemKey(current.ItemID), func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lot, err := repo.FindByIDForUpdate(ctx, lotID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.ErrLotNotFound.Because("lot %s not found", lotID)
				}
				return db.ClassifyError(err)
			}
			previous = lot.QCStatus

			if lot.QCStatus == status {
				updated = lot
				return nil
			}
			if lot.QCStatus != enums.QCStatusQuarantine {
				return pkgerrors.ErrLotQCFinal.Because("lot %s is already %s", lot.LotCode, lot.QCStatus).
					WithDetails(map[string]any{"lot_id": lot.ID, "qc_status": lot.QCStatus})
			}

			if err := repo.SetQCStatus(ctx, lot.ID, status); err != nil {
				return db.ClassifyError(err)
			}
			reloaded, err := repo.FindByID(ctx, lot.ID)
			if err != nil {
				return db.ClassifyError(err)
			}
			updated = reloaded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && previous != status {
		logCtx := s.logg.WithFields(s.logg.WithLotID(ctx, updated.ID.String()), map[string]any{
			"item_id": updated.ItemID.String(),
			"from":    previous,
			"to":      status,
		})
		s.logg.Info(logCtx, "lot.qc_status_changed")
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	lot, err := s.repo.FindByID(ctx, lotID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrLotNotFound.Because("lot %s not found", lotID)
		}
		return nil, db.ClassifyError(err)
	}
	return lot, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[models.Lot], error) {
	if input.QCStatus != nil && !input.QCStatus.IsValid() {
		return pagination.Page[models.Lot]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid qc status %q", *input.QCStatus))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return pagination.Page[models.Lot]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListParams{
		ItemID:   input.ItemID,
		QCStatus: input.QCStatus,
		Limit:    input.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return pagination.Page[models.Lot]{}, db.ClassifyError(err)
	}
	return pagination.Paginate(rows, input.Limit, func(l models.Lot) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.ReceivedAt, ID: l.ID}
	}), nil
}
