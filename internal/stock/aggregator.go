package stock

import (
	"context"
	"fmt"

	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Aggregator derives stock positions from the ledger on every call. Pass the
// caller's transaction to read the same snapshot the caller writes to; nil
// reads outside any transaction.
type Aggregator interface {
	ItemSummary(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*ItemSummary, error)
	LotSummary(ctx context.Context, tx *gorm.DB, lotID uuid.UUID) (*LotSummary, error)
	Stats(ctx context.Context) (*Stats, error)
}

type aggregator struct {
	items        items.Repository
	lots         lots.Repository
	ledger       ledger.Repository
	reservations ReservationReader
}

func NewAggregator(itemRepo items.Repository, lotRepo lots.Repository, ledgerRepo ledger.Repository, reservations ReservationReader) (Aggregator, error) {
	switch {
	case itemRepo == nil:
		return nil, fmt.Errorf("item repository required")
	case lotRepo == nil:
		return nil, fmt.Errorf("lot repository required")
	case ledgerRepo == nil:
		return nil, fmt.Errorf("ledger repository required")
	case reservations == nil:
		return nil, fmt.Errorf("reservation reader required")
	}
	return &aggregator{items: itemRepo, lots: lotRepo, ledger: ledgerRepo, reservations: reservations}, nil
}

func (a *aggregator) ItemSummary(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*ItemSummary, error) {
	if _, err := a.items.WithTx(tx).FindByID(ctx, itemID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrItemNotFound.Because("item %s not found", itemID)
		}
		return nil, db.ClassifyError(err)
	}

	entries, err := a.ledger.WithTx(tx).ListByItem(ctx, itemID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	open, err := a.reservations.WithTx(tx).ListOpenByItem(ctx, itemID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}

	summary := SummarizeItem(itemID, entries, SumQty(open))
	return &summary, nil
}

func (a *aggregator) LotSummary(ctx context.Context, tx *gorm.DB, lotID uuid.UUID) (*LotSummary, error) {
	lot, err := a.lots.WithTx(tx).FindByID(ctx, lotID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrLotNotFound.Because("lot %s not found", lotID)
		}
		return nil, db.ClassifyError(err)
	}

	entries, err := a.ledger.WithTx(tx).ListByLot(ctx, lotID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}

	summary := SummarizeLot(*lot, entries)
	return &summary, nil
}

func (a *aggregator) Stats(ctx context.Context) (*Stats, error) {
	itemCount, err := a.items.Count(ctx)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	lotCounts, err := a.lots.CountByStatus(ctx)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	openCount, err := a.reservations.CountOpen(ctx)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	txnCount, err := a.ledger.Count(ctx)
	if err != nil {
		return nil, db.ClassifyError(err)
	}

	stats := &Stats{
		TotalItems:        itemCount,
		ApprovedLots:      lotCounts[enums.QCStatusApproved],
		QuarantineLots:    lotCounts[enums.QCStatusQuarantine],
		RejectedLots:      lotCounts[enums.QCStatusRejected],
		OpenReservations:  openCount,
		TotalTransactions: txnCount,
	}
	for _, n := range lotCounts {
		stats.TotalLots += n
	}
	return stats, nil
}
