package allocation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/stock"
	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Engine runs Allocate against the stored lots of an item. Reserve and issue
// call it with their own transaction so both see one snapshot.
type Engine interface {
	Availability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) ([]LotAvailability, error)
	SelectLots(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty decimal.Decimal) ([]Allocation, error)
}

type engine struct {
	lots   lots.Repository
	ledger ledger.Repository
}

func NewEngine(lotRepo lots.Repository, ledgerRepo ledger.Repository) (Engine, error) {
	if lotRepo == nil {
		return nil, fmt.Errorf("lot repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &engine{lots: lotRepo, ledger: ledgerRepo}, nil
}

// Availability lists the item's APPROVED lots in receipt order with
// received minus issued for each.
func (e *engine) Availability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) ([]LotAvailability, error) {
	approved, err := e.lots.WithTx(tx).ListApprovedByItem(ctx, itemID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	if len(approved) == 0 {
		return nil, nil
	}

	issues, err := e.ledger.WithTx(tx).ListByItemAndType(ctx, itemID, enums.LedgerTxnIssue)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	issued := stock.IssuedByLot(issues)

	out := make([]LotAvailability, 0, len(approved))
	for _, lot := range approved {
		out = append(out, LotAvailability{
			LotID:     lot.ID,
			LotCode:   lot.LotCode,
			Available: lot.ReceivedQty.Sub(issued[lot.ID]),
		})
	}
	return out, nil
}

func (e *engine) SelectLots(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty decimal.Decimal) ([]Allocation, error) {
	available, err := e.Availability(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	return Allocate(available, qty)
}
