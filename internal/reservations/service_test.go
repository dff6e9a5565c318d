package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/lotledger/internal/allocation"
	"github.com/angelmondragon/lotledger/internal/items"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/stock"
	"github.com/angelmondragon/lotledger/pkg/db/dbtest"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/locks"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc    Service
	lots   lots.Service
	ledger ledger.Service
	stock  stock.Aggregator
	conn   *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the allocation engine the service uses.
func newFixtureWith(t *testing.T, wrap func(allocation.Engine) allocation.Engine) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	locker := locks.NewKeyedMutex(5*time.Second, nil)

	itemRepo := items.NewRepository(conn)
	lotRepo := lots.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	require.NoError(t, err)
	lotSvc, err := lots.NewService(lots.ServiceParams{
		Tx:     client,
		Locker: locker,
		Repo:   lotRepo,
		Items:  itemRepo,
		Ledger: ledgerSvc,
	})
	require.NoError(t, err)
	agg, err := stock.NewAggregator(itemRepo, lotRepo, ledgerRepo, stock.NewReservationReader(conn))
	require.NoError(t, err)
	engine, err := allocation.NewEngine(lotRepo, ledgerRepo)
	require.NoError(t, err)
	if wrap != nil {
		engine = wrap(engine)
	}

	svc, err := NewService(ServiceParams{
		Tx:         client,
		Locker:     locker,
		Repo:       NewRepository(conn),
		Items:      itemRepo,
		Ledger:     ledgerSvc,
		Stock:      agg,
		Allocation: engine,
	})
	require.NoError(t, err)
	return fixture{svc: svc, lots: lotSvc, ledger: ledgerSvc, stock: agg, conn: conn}
}

func (f fixture) item(t *testing.T, code string, qc bool) models.Item {
	t.Helper()
	item := models.Item{Code: code, Name: code, QCRequired: qc}
	require.NoError(t, f.conn.Create(&item).Error)
	return item
}

func (f fixture) receive(t *testing.T, itemID uuid.UUID, code string, qty int64) models.Lot {
	t.Helper()
	res, err := f.lots.Receive(context.Background(), lots.ReceiveInput{ItemID: itemID, LotCode: code, Qty: decimal.NewFromInt(qty)})
	require.NoError(t, err)
	return res.Lot
}

func (f fixture) summary(t *testing.T, itemID uuid.UUID) *stock.ItemSummary {
	t.Helper()
	s, err := f.stock.ItemSummary(context.Background(), nil, itemID)
	require.NoError(t, err)
	return s
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func assertQty(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, got.Equal(qty(want)), "%s: want %d, got %s", msg, want, got)
}

func TestScenario_QCGatedReceiveReserveIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "RESIN", true)

	l1 := f.receive(t, item.ID, "L1", 100)
	assert.Equal(t, enums.QCStatusQuarantine, l1.QCStatus)

	_, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(10)})
	assert.True(t, errors.Is(err, pkgerrors.ErrNoQCApprovedLot), "quarantined stock cannot be reserved, got %v", err)

	_, err = f.lots.UpdateQCStatus(ctx, l1.ID, enums.QCStatusApproved)
	require.NoError(t, err)
	l2 := f.receive(t, item.ID, "L2", 50)
	_, err = f.lots.UpdateQCStatus(ctx, l2.ID, enums.QCStatusApproved)
	require.NoError(t, err)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(120)})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusOpen, res.Reservation.Status)
	require.NotNil(t, res.LedgerEntry)
	assert.Equal(t, enums.LedgerTxnReserve, res.LedgerEntry.TxnType)
	assert.Nil(t, res.LedgerEntry.LotID)

	s := f.summary(t, item.ID)
	assertQty(t, 150, s.OnHand, "on hand after reserve")
	assertQty(t, 120, s.Reserved, "reserved after reserve")
	assertQty(t, 30, s.Available, "available after reserve")

	issued, err := f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)
	require.Len(t, issued.LotsIssued, 2)
	assert.Equal(t, "L1", issued.LotsIssued[0].LotCode)
	assertQty(t, 100, issued.LotsIssued[0].Qty, "first lot")
	assert.Equal(t, "L2", issued.LotsIssued[1].LotCode)
	assertQty(t, 20, issued.LotsIssued[1].Qty, "second lot")

	s = f.summary(t, item.ID)
	assertQty(t, 30, s.OnHand, "on hand after issue")
	assertQty(t, 0, s.Reserved, "reserved after issue")
	assertQty(t, 30, s.Available, "available after issue")

	lotSummary, err := f.stock.LotSummary(ctx, nil, l1.ID)
	require.NoError(t, err)
	assertQty(t, 0, lotSummary.OnHand, "L1 on hand")

	reservation, err := f.svc.Get(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusIssued, reservation.Status)
	assert.NotNil(t, reservation.ClosedAt)

	entries, err := f.ledger.QueryByReservation(ctx, res.Reservation.ID)
	require.NoError(t, err)
	types := make([]enums.LedgerTxnType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.TxnType)
	}
	assert.Equal(t, []enums.LedgerTxnType{
		enums.LedgerTxnReserve,
		enums.LedgerTxnIssue,
		enums.LedgerTxnIssue,
		enums.LedgerTxnUnreserve,
	}, types)
}

func TestIssue_FIFOFollowsReceiptOrderNotLotCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", false)

	f.receive(t, item.ID, "ZZZ-OLDEST", 5)
	f.receive(t, item.ID, "AAA-NEWEST", 5)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(7)})
	require.NoError(t, err)
	issued, err := f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)

	require.Len(t, issued.LotsIssued, 2)
	assert.Equal(t, "ZZZ-OLDEST", issued.LotsIssued[0].LotCode)
	assertQty(t, 5, issued.LotsIssued[0].Qty, "oldest lot drained first")
	assert.Equal(t, "AAA-NEWEST", issued.LotsIssued[1].LotCode)
	assertQty(t, 2, issued.LotsIssued[1].Qty, "remainder from newer lot")
}

func TestReserve_SkipsRejectedLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "GEL", true)

	bad := f.receive(t, item.ID, "BAD", 40)
	good := f.receive(t, item.ID, "GOOD", 10)
	_, err := f.lots.UpdateQCStatus(ctx, bad.ID, enums.QCStatusRejected)
	require.NoError(t, err)
	_, err = f.lots.UpdateQCStatus(ctx, good.ID, enums.QCStatusApproved)
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(20)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "rejected lots do not count, got %v", err)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(10)})
	require.NoError(t, err)
	issued, err := f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)
	require.Len(t, issued.LotsIssued, 1)
	assert.Equal(t, good.ID, issued.LotsIssued[0].LotID)
}

func TestReserve_OpenReservationsStayIssuable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "PIN", true)

	approved := f.receive(t, item.ID, "A", 10)
	f.receive(t, item.ID, "Q", 10)
	_, err := f.lots.UpdateQCStatus(ctx, approved.ID, enums.QCStatusApproved)
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(8)})
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(5)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock),
		"approved stock already promised to an open reservation, got %v", err)
}

func TestReserve_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "NUT", false)
	f.receive(t, item.ID, "N1", 10)

	_, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(11)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "got %v", err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInfeasible, typed.Code())

	entries, err := f.ledger.QueryByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed reserve must not write ledger entries")
}

func TestReserve_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "V", false)

	_, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: decimal.Zero})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty), "got %v", err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(-1)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty), "got %v", err)

	f.receive(t, item.ID, "V1", 10)
	for _, q := range []string{"0.00001", "1.00005", "100000000000000"} {
		_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: decimal.RequireFromString(q)})
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidQty), "qty %s: %v", q, err)
	}
	assertQty(t, 0, f.summary(t, item.ID).Reserved, "rejected reserves hold nothing")

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: uuid.New(), Qty: qty(1)})
	assert.True(t, errors.Is(err, pkgerrors.ErrItemNotFound), "got %v", err)
}

func TestReserve_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "KEYED", false)
	f.receive(t, item.ID, "K1", 10)
	key := "order-42"

	first, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(4), IdempotencyKey: &key})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(4), IdempotencyKey: &key})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Nil(t, again.LedgerEntry)
	assert.Equal(t, first.Reservation.ID, again.Reservation.ID)

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(5), IdempotencyKey: &key})
	assert.True(t, errors.Is(err, pkgerrors.ErrIdempotencyKeyReused), "got %v", err)

	assertQty(t, 4, f.summary(t, item.ID).Reserved, "replays do not reserve twice")
}

func TestIssue_TwiceFailsWithoutNewEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "TWICE", false)
	f.receive(t, item.ID, "T1", 10)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(3)})
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)

	before, err := f.ledger.Count(ctx)
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, res.Reservation.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrReservationAlreadyIssued), "got %v", err)
	_, err = f.svc.Cancel(ctx, res.Reservation.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrReservationAlreadyIssued), "got %v", err)

	after, err := f.ledger.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assertQty(t, 7, f.summary(t, item.ID).OnHand, "stock issued exactly once")
}

func TestCancel_ReleasesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "CXL", false)
	f.receive(t, item.ID, "C1", 10)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(6)})
	require.NoError(t, err)
	assertQty(t, 4, f.summary(t, item.ID).Available, "available while open")

	cancelled, err := f.svc.Cancel(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ClosedAt)

	s := f.summary(t, item.ID)
	assertQty(t, 10, s.Available, "available after cancel")
	assertQty(t, 10, s.OnHand, "cancel does not move stock")

	_, err = f.svc.Cancel(ctx, res.Reservation.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrReservationCancelled), "got %v", err)
	_, err = f.svc.Issue(ctx, res.Reservation.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrReservationCancelled), "got %v", err)
}

func TestIssue_UnknownReservation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Issue(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, pkgerrors.ErrReservationNotFound), "got %v", err)
}

func TestReserve_ConcurrentRequestsNeverOversubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "HOT", false)
	f.receive(t, item.ID, "H1", 100)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(10)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	for _, err := range failures {
		assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "got %v", err)
	}
	s := f.summary(t, item.ID)
	assertQty(t, 100, s.Reserved, "reserved")
	assertQty(t, 0, s.Available, "available")
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "LIST", false)
	f.receive(t, item.ID, "LS1", 10)

	open, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(1)})
	require.NoError(t, err)
	done, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(1)})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, done.Reservation.ID)
	require.NoError(t, err)

	status := enums.ReservationStatusOpen
	page, err := f.svc.List(ctx, ListInput{ItemID: &item.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, open.Reservation.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, ListInput{ItemID: &item.ID, Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.NotEmpty(t, page.NextCursor)

	bad := enums.ReservationStatus("PENDING")
	_, err = f.svc.List(ctx, ListInput{Status: &bad})
	assert.Error(t, err)
}

func TestScenario_ReceiveReserveIssueTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "WIDGET", false)
	f.receive(t, item.ID, "W1", 100)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(30)})
	require.NoError(t, err)
	s := f.summary(t, item.ID)
	assertQty(t, 100, s.OnHand, "on hand")
	assertQty(t, 30, s.Reserved, "reserved")
	assertQty(t, 70, s.Available, "available")

	_, err = f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)
	s = f.summary(t, item.ID)
	assertQty(t, 70, s.OnHand, "on hand after issue")
	assertQty(t, 0, s.Reserved, "reserved after issue")
	assertQty(t, 70, s.Available, "available after issue")
	assertQty(t, 100, s.Received, "received")
	assertQty(t, 30, s.Issued, "issued")

	_, err = f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(1000)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "got %v", err)
}

func TestIssue_SpansThreeLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "SPAN", false)
	f.receive(t, item.ID, "C-first", 30)
	f.receive(t, item.ID, "B-second", 40)
	f.receive(t, item.ID, "A-third", 30)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(80)})
	require.NoError(t, err)
	issued, err := f.svc.Issue(ctx, res.Reservation.ID)
	require.NoError(t, err)

	require.Len(t, issued.LotsIssued, 3)
	want := []struct {
		code string
		qty  int64
	}{{"C-first", 30}, {"B-second", 40}, {"A-third", 10}}
	for i, w := range want {
		assert.Equal(t, w.code, issued.LotsIssued[i].LotCode)
		assertQty(t, w.qty, issued.LotsIssued[i].Qty, w.code)
	}
	assertQty(t, 80, allocation.Total(issued.LotsIssued), "total issued")
}

// shortEngine delegates to the real engine until short is set, then reports
// an approved-lot shortfall.
type shortEngine struct {
	allocation.Engine
	short bool
}

func (e *shortEngine) SelectLots(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, q decimal.Decimal) ([]allocation.Allocation, error) {
	if e.short {
		return nil, pkgerrors.ErrInsufficientApprovedStock.
			Because("approved lots hold 2, need %s", q).
			WithDetails(map[string]any{"approved_available": "2", "requested": q.String()})
	}
	return e.Engine.SelectLots(ctx, tx, itemID, q)
}

func TestIssue_ApprovedShortfallReportsInsufficientStock(t *testing.T) {
	stub := &shortEngine{}
	f := newFixtureWith(t, func(e allocation.Engine) allocation.Engine {
		stub.Engine = e
		return stub
	})
	ctx := context.Background()
	item := f.item(t, "CLIP", false)
	f.receive(t, item.ID, "C1", 10)

	res, err := f.svc.Reserve(ctx, ReserveInput{ItemID: item.ID, Qty: qty(5)})
	require.NoError(t, err)
	before, err := f.ledger.QueryByItem(ctx, item.ID)
	require.NoError(t, err)

	stub.short = true
	_, err = f.svc.Issue(ctx, res.Reservation.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "got %v", err)
	assert.False(t, errors.Is(err, pkgerrors.ErrInsufficientApprovedStock))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{"approved_available": "2", "requested": "5"}, typed.Details())

	after, err := f.ledger.QueryByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "failed issue appends nothing")
	got, err := f.svc.Get(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusOpen, got.Status)
}

func TestReserve_ApprovedShortfallReportsInsufficientStock(t *testing.T) {
	stub := &shortEngine{short: true}
	f := newFixtureWith(t, func(e allocation.Engine) allocation.Engine {
		stub.Engine = e
		return stub
	})
	item := f.item(t, "PEG", false)
	f.receive(t, item.ID, "P1", 10)

	_, err := f.svc.Reserve(context.Background(), ReserveInput{ItemID: item.ID, Qty: qty(5)})
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientStock), "got %v", err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.NotNil(t, typed.Details())
}
