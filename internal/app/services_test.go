package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/reservations"
	"github.com/angelmondragon/lotledger/pkg/db/dbtest"
	"github.com/angelmondragon/lotledger/pkg/locks"
)

func TestNewServicesRequiresInfrastructure(t *testing.T) {
	_, err := NewServices(Params{})
	assert.Error(t, err)

	client, _ := dbtest.Client(t)
	_, err = NewServices(Params{DB: client})
	assert.Error(t, err)
}

func TestNewServicesWiresOneLedger(t *testing.T) {
	client, _ := dbtest.Client(t)
	svcs, err := NewServices(Params{DB: client, Locker: locks.NewKeyedMutex(time.Second, nil)})
	require.NoError(t, err)
	ctx := context.Background()

	item, err := svcs.Items.Create(ctx, items.CreateItemInput{Code: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	_, err = svcs.Lots.Receive(ctx, lots.ReceiveInput{ItemID: item.ID, LotCode: "L-1", Qty: decimal.NewFromInt(5)})
	require.NoError(t, err)
	res, err := svcs.Reservations.Reserve(ctx, reservations.ReserveInput{ItemID: item.ID, Qty: decimal.NewFromInt(2)})
	require.NoError(t, err)
	_, err = svcs.Reservations.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)

	summary, err := svcs.Stock.ItemSummary(ctx, nil, item.ID)
	require.NoError(t, err)
	assert.True(t, summary.OnHand.Equal(decimal.NewFromInt(3)))

	stats, err := svcs.Stock.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.Equal(t, int64(4), stats.TotalTransactions)
}
