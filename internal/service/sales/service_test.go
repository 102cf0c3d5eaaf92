package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/repository"
	"github.com/mamadbah2/farmcoop/internal/repository/memory"
	"github.com/mamadbah2/farmcoop/internal/service/notify"
	"github.com/mamadbah2/farmcoop/internal/service/notify/mocks"
)

var (
	testSession = models.Session{UserID: "user-1", Token: "tok"}
	fixedNow    = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
)

const itemID = "item-eggs"

type fixture struct {
	store      *memory.Store
	svc        *Service
	sink       *mocks.MockNotifier
	dispatcher *notify.Dispatcher
}

func newFixture(t *testing.T, quantity, minStock float64) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockNotifier(ctrl)
	store := memory.NewStore()

	require.NoError(t, store.CreateItem(context.Background(), models.Item{
		ID:          itemID,
		Name:        "Eggs",
		FarmName:    "Kindia",
		Quantity:    quantity,
		MinStock:    minStock,
		Unit:        "tray",
		Productions: models.ProductionLog{{ID: "opening", Date: fixedNow, Quantity: quantity}},
	}))

	dispatcher := notify.NewDispatcher(sink, nil)
	// Registered after the controller so deliveries finish before it verifies.
	t.Cleanup(dispatcher.Wait)

	svc := NewService(store, dispatcher, time.Second, nil)
	svc.now = func() time.Time { return fixedNow }
	var seq atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("sale-%d", seq.Add(1)) }

	return &fixture{store: store, svc: svc, sink: sink, dispatcher: dispatcher}
}

func (f *fixture) item(t *testing.T) models.Item {
	t.Helper()
	item, err := f.store.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return item
}

func assertConsistent(t *testing.T, item models.Item) {
	t.Helper()
	assert.GreaterOrEqual(t, item.Quantity, 0.0)
	assert.InDelta(t, item.ExpectedQuantity(), item.Quantity, 1e-9)
}

func TestCreate_LowStockScenario(t *testing.T) {
	f := newFixture(t, 100, 20)
	ctx := context.Background()

	f.sink.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n models.Notification) error {
			assert.Equal(t, models.NotificationCategoryStock, n.Category)
			assert.Equal(t, models.NotificationAlert, n.Kind)
			return nil
		})

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 85, UnitPrice: 2.5})
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Equal(t, "sale-1", sale.ID)
	assert.Equal(t, "Eggs", sale.ProductName)
	assert.Equal(t, "Kindia", sale.FarmName)
	assert.Equal(t, fixedNow, sale.Date)
	assert.Equal(t, "user-1", sale.CreatedBy)
	assert.True(t, sale.TotalValue.Equal(decimal.RequireFromString("212.5")))

	item := f.item(t)
	assert.Equal(t, 15.0, item.Quantity)
	entry, ok := item.Sales.Find(sale.ID)
	require.True(t, ok)
	assert.Equal(t, 85.0, entry.Quantity)
	assert.True(t, entry.TotalValue.Equal(sale.TotalValue))
	assertConsistent(t, item)

	stored, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalValue.Equal(sale.TotalValue))
}

func TestCreate_NoNotificationAboveMinimum(t *testing.T) {
	f := newFixture(t, 100, 20)

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 10, UnitPrice: 1})
	require.NoError(t, err)
	assert.Equal(t, 90.0, f.item(t).Quantity)
}

func TestCreate_SinkFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t, 10, 20)
	f.sink.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("whatsapp down"))

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 5, UnitPrice: 1})
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.item(t).Quantity)
}

func TestCreate_InsufficientStock(t *testing.T) {
	f := newFixture(t, 10, 2)
	before := f.item(t)

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 11, UnitPrice: 1})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
	assert.Equal(t, before, f.item(t))

	sales, err := f.store.ListSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCreate_SellEntireStock(t *testing.T) {
	f := newFixture(t, 10, 0)

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 10, UnitPrice: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.item(t).Quantity)
}

func TestCreate_UnknownProduct(t *testing.T) {
	f := newFixture(t, 10, 2)

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: "missing", Quantity: 1, UnitPrice: 1})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

// untouchableStore fails the test when any storage call is made.
type untouchableStore struct{ t *testing.T }

func (u untouchableStore) WithTransaction(context.Context, repository.TxFunc) error {
	u.t.Fatal("storage must not be touched")
	return nil
}

func (u untouchableStore) GetSale(context.Context, string) (models.Sale, error) {
	u.t.Fatal("storage must not be touched")
	return models.Sale{}, nil
}

func (u untouchableStore) ListSales(context.Context) ([]models.Sale, error) {
	u.t.Fatal("storage must not be touched")
	return nil, nil
}

func TestCreate_ValidationBeforeStorage(t *testing.T) {
	svc := NewService(untouchableStore{t: t}, nil, 0, nil)

	tests := []struct {
		name    string
		session models.Session
		input   models.SaleInput
		kind    apperror.Kind
	}{
		{name: "no_session", session: models.Session{}, input: models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: 1}, kind: apperror.KindUnauthenticated},
		{name: "missing_product", session: testSession, input: models.SaleInput{Quantity: 1, UnitPrice: 1}, kind: apperror.KindValidation},
		{name: "zero_quantity", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: 0, UnitPrice: 1}, kind: apperror.KindValidation},
		{name: "negative_quantity", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: -4, UnitPrice: 1}, kind: apperror.KindValidation},
		{name: "fractional_quantity", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: 2.5, UnitPrice: 1}, kind: apperror.KindValidation},
		{name: "nan_quantity", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: math.NaN(), UnitPrice: 1}, kind: apperror.KindValidation},
		{name: "infinite_price", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: math.Inf(1)}, kind: apperror.KindValidation},
		{name: "zero_price", session: testSession, input: models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: 0}, kind: apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.session, tt.input)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	_, err := svc.Update(context.Background(), testSession, "sale-1", models.SaleUpdate{Quantity: 0, UnitPrice: 1})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(svc.Delete(context.Background(), models.Session{}, "sale-1")))
}

func TestUpdate_AdjustsByDifference(t *testing.T) {
	f := newFixture(t, 60, 5)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 10, UnitPrice: 3})
	require.NoError(t, err)
	require.Equal(t, 50.0, f.item(t).Quantity)

	updated, err := f.svc.Update(ctx, testSession, sale.ID, models.SaleUpdate{Quantity: 25, UnitPrice: 4})
	require.NoError(t, err)

	assert.Equal(t, sale.ID, updated.ID)
	assert.Equal(t, 25.0, updated.Quantity)
	assert.True(t, updated.TotalValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, sale.Date, updated.Date)

	item := f.item(t)
	assert.Equal(t, 35.0, item.Quantity)
	require.Len(t, item.Sales, 1)
	assert.Equal(t, 25.0, item.Sales[0].Quantity)
	assertConsistent(t, item)
}

func TestUpdate_SmallerQuantityRestoresStock(t *testing.T) {
	f := newFixture(t, 60, 5)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 30, UnitPrice: 3})
	require.NoError(t, err)

	newDate := fixedNow.Add(-24 * time.Hour)
	updated, err := f.svc.Update(ctx, testSession, sale.ID, models.SaleUpdate{Quantity: 5, UnitPrice: 3, Date: newDate})
	require.NoError(t, err)
	assert.Equal(t, newDate, updated.Date)

	item := f.item(t)
	assert.Equal(t, 55.0, item.Quantity)
	assertConsistent(t, item)
}

func TestUpdate_RefusesNegativeStock(t *testing.T) {
	f := newFixture(t, 20, 0)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 10, UnitPrice: 1})
	require.NoError(t, err)
	before := f.item(t)

	_, err = f.svc.Update(ctx, testSession, sale.ID, models.SaleUpdate{Quantity: 21, UnitPrice: 1})
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
	assert.Equal(t, before, f.item(t))

	stored, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.Quantity)

	// Exactly using up the remaining stock is allowed.
	_, err = f.svc.Update(ctx, testSession, sale.ID, models.SaleUpdate{Quantity: 20, UnitPrice: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.item(t).Quantity)
}

func TestUpdate_MissingSale(t *testing.T) {
	f := newFixture(t, 20, 0)

	_, err := f.svc.Update(context.Background(), testSession, "nope", models.SaleUpdate{Quantity: 1, UnitPrice: 1})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDelete_RoundTripRestoresItem(t *testing.T) {
	f := newFixture(t, 40, 5)
	ctx := context.Background()
	before := f.item(t)

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 12, UnitPrice: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, testSession, sale.ID))

	item := f.item(t)
	assert.Equal(t, before.Quantity, item.Quantity)
	_, ok := item.Sales.Find(sale.ID)
	assert.False(t, ok)
	assertConsistent(t, item)

	_, err = f.store.GetSale(ctx, sale.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDelete_MissingSaleIsNoop(t *testing.T) {
	f := newFixture(t, 40, 5)
	assert.NoError(t, f.svc.Delete(context.Background(), testSession, "never-existed"))
	assert.Equal(t, 40.0, f.item(t).Quantity)
}

func TestDelete_OrphanSale(t *testing.T) {
	f := newFixture(t, 40, 5)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: 1})
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteItem(ctx, itemID))

	require.NoError(t, f.svc.Delete(ctx, testSession, sale.ID))
	_, err = f.store.GetSale(ctx, sale.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreate_AbortedCommitLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 100, 20)
	f.store.FailCommit = errors.New("write conflict")
	before := f.item(t)

	_, err := f.svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 90, UnitPrice: 1})
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.Equal(t, before, f.item(t))

	sales, err := f.store.ListSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sales)
}

// slowStore blocks every transaction until its context expires.
type slowStore struct{ *memory.Store }

func (s slowStore) WithTransaction(ctx context.Context, _ repository.TxFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCreate_Timeout(t *testing.T) {
	svc := NewService(slowStore{memory.NewStore()}, nil, 5*time.Millisecond, nil)

	_, err := svc.Create(context.Background(), testSession, models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: 1})
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))
}

func TestCreate_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t, 50, 0)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		refused   atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 10, UnitPrice: 1})
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperror.IsKind(err, apperror.KindInsufficientStock):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), succeeded.Load())
	assert.Equal(t, int64(5), refused.Load())

	item := f.item(t)
	assert.Equal(t, 0.0, item.Quantity)
	assert.Len(t, item.Sales, 5)
	assertConsistent(t, item)
}

func TestSequenceKeepsStockConsistent(t *testing.T) {
	f := newFixture(t, 100, 0)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 30, UnitPrice: 1})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 20, UnitPrice: 1})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, testSession, a.ID, models.SaleUpdate{Quantity: 45, UnitPrice: 2})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 40, UnitPrice: 1})
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
	require.NoError(t, f.svc.Delete(ctx, testSession, b.ID))

	item := f.item(t)
	assert.Equal(t, 55.0, item.Quantity)
	assertConsistent(t, item)
}

func TestList_FiltersByProduct(t *testing.T) {
	f := newFixture(t, 100, 0)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testSession, models.SaleInput{ProductID: itemID, Quantity: 1, UnitPrice: 1})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, testSession, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := f.svc.List(ctx, testSession, "other")
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := f.svc.Get(ctx, testSession, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].ID, got.ID)
}
