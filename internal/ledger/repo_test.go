package ledger

import (
	"context"
	"testing"

	"github.com/angelmondragon/lotledger/pkg/db/dbtest"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_AppendAssignsPerItemSequence(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	itemA := models.Item{Code: "A", Name: "Item A"}
	itemB := models.Item{Code: "B", Name: "Item B"}
	require.NoError(t, conn.Create(&itemA).Error)
	require.NoError(t, conn.Create(&itemB).Error)
	lotA := uuid.New()
	res := uuid.New()

	entries := []*models.LedgerEntry{
		{ItemID: itemA.ID, LotID: &lotA, TxnType: enums.LedgerTxnReceive, Qty: decimal.NewFromInt(100)},
		{ItemID: itemB.ID, LotID: ptr(uuid.New()), TxnType: enums.LedgerTxnReceive, Qty: decimal.NewFromInt(5)},
		{ItemID: itemA.ID, ReservationID: &res, TxnType: enums.LedgerTxnReserve, Qty: decimal.NewFromInt(30)},
		{ItemID: itemA.ID, LotID: &lotA, ReservationID: &res, TxnType: enums.LedgerTxnIssue, Qty: decimal.RequireFromString("29.5")},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
	}

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(1), entries[1].Seq)
	assert.Equal(t, int64(2), entries[2].Seq)
	assert.Equal(t, int64(3), entries[3].Seq)

	byItem, err := repo.ListByItem(ctx, itemA.ID)
	require.NoError(t, err)
	require.Len(t, byItem, 3)
	assert.Equal(t, enums.LedgerTxnReceive, byItem[0].TxnType)
	assert.Equal(t, enums.LedgerTxnIssue, byItem[2].TxnType)
	assert.True(t, byItem[2].Qty.Equal(decimal.RequireFromString("29.5")), "fractional quantities survive storage, got %s", byItem[2].Qty)

	byLot, err := repo.ListByLot(ctx, lotA)
	require.NoError(t, err)
	assert.Len(t, byLot, 2)

	byRes, err := repo.ListByReservation(ctx, res)
	require.NoError(t, err)
	assert.Len(t, byRes, 2)

	issues, err := repo.ListByItemAndType(ctx, itemA.ID, enums.LedgerTxnIssue)
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestService_ListPaginatesMostRecentFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	item := models.Item{Code: "P", Name: "Paged"}
	require.NoError(t, conn.Create(&item).Error)
	for i := 0; i < 5; i++ {
		_, err := svc.Append(ctx, nil, AppendInput{
			ItemID:  item.ID,
			LotID:   ptr(uuid.New()),
			TxnType: enums.LedgerTxnReceive,
			Qty:     decimal.NewFromInt(int64(i + 1)),
		})
		require.NoError(t, err)
	}

	seen := map[uuid.UUID]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := svc.List(ctx, ListInput{ItemID: &item.ID, Params: pagination.Params{Limit: 2, Cursor: cursor}})
		require.NoError(t, err)
		pages++
		for _, e := range page.Items {
			assert.False(t, seen[e.ID], "entry returned twice")
			seen[e.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		require.Less(t, pages, 5)
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)

	receive := enums.LedgerTxnIssue
	page, err := svc.List(ctx, ListInput{TxnType: &receive})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.List(ctx, ListInput{Params: pagination.Params{Cursor: "not-a-cursor"}})
	assert.Error(t, err)
}
