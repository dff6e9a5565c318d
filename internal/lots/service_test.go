package lots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/pkg/db/dbtest"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/locks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc    Service
	conn   *gorm.DB
	ledger ledger.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Tx:     client,
		Locker: locks.NewKeyedMutex(time.Second, nil),
		Repo:   NewRepository(conn),
		Items:  items.NewRepository(conn),
		Ledger: ledgerSvc,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, ledger: ledgerSvc}
}

func (f fixture) item(t *testing.T, code string, qc bool) models.Item {
	t.Helper()
	item := models.Item{Code: code, Name: code, QCRequired: qc}
	require.NoError(t, f.conn.Create(&item).Error)
	return item
}

func TestReceive_InitialStatusFollowsItemQC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plain := f.item(t, "PLAIN", false)
	gated := f.item(t, "GATED", true)

	res, err := f.svc.Receive(ctx, ReceiveInput{ItemID: plain.ID, LotCode: "L-1", Qty: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, enums.QCStatusApproved, res.Lot.QCStatus)
	assert.Equal(t, enums.LedgerTxnReceive, res.LedgerEntry.TxnType)
	assert.Equal(t, res.Lot.ID, *res.LedgerEntry.LotID)
	assert.True(t, res.LedgerEntry.Qty.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1), res.Lot.ReceiptSeq)

	res, err = f.svc.Receive(ctx, ReceiveInput{ItemID: gated.ID, LotCode: "L-2", Qty: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, enums.QCStatusQuarantine, res.Lot.QCStatus)
}

func TestReceive_ReceiptSequenceIsPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "A", false)
	b := f.item(t, "B", false)

	first, err := f.svc.Receive(ctx, ReceiveInput{ItemID: a.ID, LotCode: "Z-LAST", Qty: decimal.NewFromInt(1)})
	require.NoError(t, err)
	other, err := f.svc.Receive(ctx, ReceiveInput{ItemID: b.ID, LotCode: "B-1", Qty: decimal.NewFromInt(1)})
	require.NoError(t, err)
	second, err := f.svc.Receive(ctx, ReceiveInput{ItemID: a.ID, LotCode: "A-FIRST", Qty: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Lot.ReceiptSeq)
	assert.Equal(t, int64(1), other.Lot.ReceiptSeq)
	assert.Equal(t, int64(2), second.Lot.ReceiptSeq)

	approved, err := NewRepository(f.conn).ListApprovedByItem(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, "Z-LAST", approved[0].LotCode, "FIFO follows receipt order, not lot code")
	assert.Equal(t, "A-FIRST", approved[1].LotCode)
}

func TestReceive_DuplicateLotCodeLeavesFirstIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "A", false)
	b := f.item(t, "B", false)

	first, err := f.svc.Receive(ctx, ReceiveInput{ItemID: a.ID, LotCode: "DUP", Qty: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: b.ID, LotCode: "DUP", Qty: decimal.NewFromInt(5)})
	assert.True(t, errors.Is(err, pkgerrors.ErrDuplicateLotCode), "lot codes are globally unique, got %v", err)

	lot, err := f.svc.Get(ctx, first.Lot.ID)
	require.NoError(t, err)
	assert.True(t, lot.ReceivedQty.Equal(decimal.NewFromInt(10)))

	entries, err := f.ledger.QueryByItem(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	entries, err = f.ledger.QueryByItem(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed receive must not leave ledger entries")
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "A", false)

	_, err := f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "L", Qty: decimal.Zero})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty))

	_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "L", Qty: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty))

	for _, q := range []string{"0.00001", "2.50001", "100000000000000"} {
		_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "L", Qty: decimal.RequireFromString(q)})
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty), "qty %s: %v", q, err)
	}
	var count int64
	require.NoError(t, f.conn.Model(&models.Lot{}).Count(&count).Error)
	assert.Zero(t, count, "rejected receipts create no lots")

	res, err := f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "L4", Qty: decimal.RequireFromString("2.5001")})
	require.NoError(t, err)
	assert.True(t, res.Lot.ReceivedQty.Equal(decimal.RequireFromString("2.5001")))

	_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: uuid.New(), LotCode: "L", Qty: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, pkgerrors.ErrItemNotFound))

	_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "  ", Qty: decimal.NewFromInt(1)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateQCStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "GATED", true)

	res, err := f.svc.Receive(ctx, ReceiveInput{ItemID: item.ID, LotCode: "Q-1", Qty: decimal.NewFromInt(50)})
	require.NoError(t, err)

	lot, err := f.svc.UpdateQCStatus(ctx, res.Lot.ID, enums.QCStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, enums.QCStatusApproved, lot.QCStatus)

	again, err := f.svc.UpdateQCStatus(ctx, res.Lot.ID, enums.QCStatusApproved)
	require.NoError(t, err, "repeating the current verdict is a no-op")
	assert.Equal(t, enums.QCStatusApproved, again.QCStatus)

	_, err = f.svc.UpdateQCStatus(ctx, res.Lot.ID, enums.QCStatusRejected)
	assert.True(t, errors.Is(err, pkgerrors.ErrLotQCFinal), "got %v", err)

	_, err = f.svc.UpdateQCStatus(ctx, res.Lot.ID, enums.QCStatusQuarantine)
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQCStatus))

	_, err = f.svc.UpdateQCStatus(ctx, uuid.New(), enums.QCStatusApproved)
	assert.True(t, errors.Is(err, pkgerrors.ErrLotNotFound))

	entries, err := f.ledger.QueryByLot(ctx, res.Lot.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "qc changes never write ledger entries")
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gated := f.item(t, "GATED", true)
	plain := f.item(t, "PLAIN", false)

	_, err := f.svc.Receive(ctx, ReceiveInput{ItemID: gated.ID, LotCode: "Q-1", Qty: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = f.svc.Receive(ctx, ReceiveInput{ItemID: plain.ID, LotCode: "P-1", Qty: decimal.NewFromInt(1)})
	require.NoError(t, err)

	quarantine := enums.QCStatusQuarantine
	page, err := f.svc.List(ctx, ListInput{QCStatus: &quarantine})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Q-1", page.Items[0].LotCode)

	page, err = f.svc.List(ctx, ListInput{ItemID: &plain.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "P-1", page.Items[0].LotCode)

	counts, err := NewRepository(f.conn).CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[enums.QCStatusQuarantine])
	assert.Equal(t, int64(1), counts[enums.QCStatusApproved])
}
