package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/repository/memory"
	"github.com/mamadbah2/farmcoop/internal/service/notify"
	"github.com/mamadbah2/farmcoop/internal/service/notify/mocks"
)

var (
	testSession = models.Session{UserID: "user-1", Token: "tok"}
	fixedNow    = time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *memory.Store, *mocks.MockNotifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockNotifier(ctrl)
	store := memory.NewStore()

	dispatcher := notify.NewDispatcher(sink, nil)
	t.Cleanup(dispatcher.Wait)

	svc := NewService(store, dispatcher, time.Second, nil)
	svc.now = func() time.Time { return fixedNow }
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return svc, store, sink
}

func TestRegisterItem_OpeningStockIsFirstProduction(t *testing.T) {
	svc, store, _ := newTestService(t)

	item, err := svc.RegisterItem(context.Background(), testSession, models.ItemInput{
		Name:            "  Tomatoes ",
		FarmID:          "farm-1",
		FarmName:        "Kindia",
		OpeningQuantity: 120,
		MinStock:        30,
		Unit:            "kg",
		CostPrice:       decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Tomatoes", item.Name)
	assert.Equal(t, 120.0, item.Quantity)
	require.Len(t, item.Productions, 1)
	assert.Equal(t, 120.0, item.Productions[0].Quantity)
	assert.Equal(t, item.Quantity, item.ExpectedQuantity())

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.CreatedBy)
}

func TestRegisterItem_Validation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterItem(ctx, testSession, models.ItemInput{Name: "Milk", FarmID: "farm-1", Unit: "l"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input models.ItemInput
		code  string
	}{
		{name: "missing_name", input: models.ItemInput{Unit: "kg"}, code: apperror.CodeInvalidInput},
		{name: "missing_unit", input: models.ItemInput{Name: "Eggs"}, code: apperror.CodeInvalidInput},
		{name: "negative_min", input: models.ItemInput{Name: "Eggs", Unit: "tray", MinStock: -1}, code: apperror.CodeInvalidInput},
		{name: "negative_opening", input: models.ItemInput{Name: "Eggs", Unit: "tray", OpeningQuantity: -5}, code: apperror.CodeInvalidInput},
		{name: "duplicate_on_farm", input: models.ItemInput{Name: " milk ", FarmID: "farm-1", Unit: "l"}, code: apperror.CodeDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterItem(ctx, testSession, tt.input)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.True(t, apperror.HasCode(err, tt.code))
		})
	}

	_, err = svc.RegisterItem(ctx, testSession, models.ItemInput{Name: "Milk", FarmID: "farm-2", Unit: "l"})
	assert.NoError(t, err, "same name on another farm is allowed")

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAddProduction(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	item, err := svc.RegisterItem(ctx, testSession, models.ItemInput{Name: "Eggs", Unit: "tray", MinStock: 50, OpeningQuantity: 10})
	require.NoError(t, err)

	// Still below the minimum after the entry, so the alert fires.
	sink.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	updated, err := svc.AddProduction(ctx, testSession, item.ID, models.ProductionInput{Quantity: 15, Note: "monday"})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Quantity)
	require.Len(t, updated.Productions, 2)
	assert.Equal(t, fixedNow, updated.Productions[1].Date)
	assert.Equal(t, updated.Quantity, updated.ExpectedQuantity())

	updated, err = svc.AddProduction(ctx, testSession, item.ID, models.ProductionInput{Quantity: 100})
	require.NoError(t, err)
	assert.Equal(t, 125.0, updated.Quantity)
}

func TestAddProduction_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddProduction(ctx, testSession, "missing", models.ProductionInput{Quantity: 1})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.AddProduction(ctx, testSession, "missing", models.ProductionInput{Quantity: 0})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.AddProduction(ctx, models.Session{}, "missing", models.ProductionInput{Quantity: 1})
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestDeleteItem_RefusedWhileReferenced(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.RegisterItem(ctx, testSession, models.ItemInput{Name: "Rice", Unit: "kg"})
	require.NoError(t, err)
	require.NoError(t, store.CreateGoal(ctx, models.Goal{ID: "g1", ProductID: item.ID}))

	err = svc.DeleteItem(ctx, testSession, item.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeItemReferenced))

	require.NoError(t, store.DeleteGoal(ctx, "g1"))
	require.NoError(t, svc.DeleteItem(ctx, testSession, item.ID))

	_, err = store.GetItem(ctx, item.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListItems_DerivedStatuses(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, in := range []models.ItemInput{
		{Name: "A low", Unit: "kg", MinStock: 20, OpeningQuantity: 5},
		{Name: "B warning", Unit: "kg", MinStock: 20, OpeningQuantity: 30},
		{Name: "C normal", Unit: "kg", MinStock: 20, OpeningQuantity: 31},
	} {
		_, err := svc.RegisterItem(ctx, testSession, in)
		require.NoError(t, err)
	}

	views, err := svc.ListItems(ctx, testSession)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "low", views[0].StockStatus)
	assert.Equal(t, "production", views[0].ProductionStage)
	assert.Equal(t, 25, views[0].ProductionProgress)
	assert.Equal(t, "warning", views[1].StockStatus)
	assert.Equal(t, "harvested", views[1].ProductionStage)
	assert.Equal(t, "normal", views[2].StockStatus)

	view, err := svc.GetItem(ctx, testSession, views[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "low", view.StockStatus)
}
