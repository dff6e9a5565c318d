// Package app assembles the inventory services shared by the API server and
// the admin CLI.
package app

import (
	"fmt"

	"github.com/angelmondragon/lotledger/internal/allocation"
	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/reservations"
	"github.com/angelmondragon/lotledger/internal/stock"
	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/locks"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/metrics"
)

// Params are the shared infrastructure handles.
type Params struct {
	DB      *db.Client
	Locker  locks.Locker
	Metrics *metrics.InventoryMetrics
	Logger  *logger.Logger
}

// Services is the full set of inventory services over one database.
type Services struct {
	Items        items.Service
	Lots         lots.Service
	Reservations reservations.Service
	Ledger       ledger.Service
	Stock        stock.Aggregator
}

func NewServices(p Params) (*Services, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if p.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	conn := p.DB.DB()

	itemRepo := items.NewRepository(conn)
	lotRepo := lots.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return nil, err
	}
	itemSvc, err := items.NewService(itemRepo, p.Logger)
	if err != nil {
		return nil, err
	}
	lotSvc, err := lots.NewService(lots.ServiceParams{
		Tx:      p.DB,
		Locker:  p.Locker,
		Repo:    lotRepo,
		Items:   itemRepo,
		Ledger:  ledgerSvc,
		Metrics: p.Metrics,
		Logger:  p.Logger,
	})
	if err != nil {
		return nil, err
	}
	agg, err := stock.NewAggregator(itemRepo, lotRepo, ledgerRepo, stock.NewReservationReader(conn))
	if err != nil {
		return nil, err
	}
	engine, err := allocation.NewEngine(lotRepo, ledgerRepo)
	if err != nil {
		return nil, err
	}
	reservationSvc, err := reservations.NewService(reservations.ServiceParams{
		Tx:         p.DB,
		Locker:     p.Locker,
		Repo:       reservations.NewRepository(conn),
		Items:      itemRepo,
		Ledger:     ledgerSvc,
		Stock:      agg,
		Allocation: engine,
		Metrics:    p.Metrics,
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Items:        itemSvc,
		Lots:         lotSvc,
		Reservations: reservationSvc,
		Ledger:       ledgerSvc,
		Stock:        agg,
	}, nil
}
