package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

func TestItemDocumentKeepsHistories(t *testing.T) {
	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	item := models.Item{
		ID:        "item-1",
		Name:      "Maize",
		Quantity:  70,
		MinStock:  20,
		CostPrice: decimal.RequireFromString("12.75"),
		Sales: models.SaleHistory{{
			SaleID:     "sale-1",
			Date:       date,
			Quantity:   30,
			UnitPrice:  decimal.RequireFromString("19.90"),
			TotalValue: decimal.RequireFromString("597"),
		}},
		Productions: models.ProductionLog{{ID: "prod-1", Date: date, Quantity: 100, Note: "harvest"}},
	}

	got := itemToDocument(item).toModel()

	assert.True(t, got.CostPrice.Equal(item.CostPrice))
	require.Len(t, got.Sales, 1)
	assert.True(t, got.Sales[0].UnitPrice.Equal(decimal.RequireFromString("19.9")))
	assert.True(t, got.Sales[0].TotalValue.Equal(decimal.NewFromInt(597)))
	require.Len(t, got.Productions, 1)
	assert.Equal(t, "harvest", got.Productions[0].Note)
	assert.Equal(t, item.ExpectedQuantity(), got.ExpectedQuantity())
}

func TestDecimal128ZeroRoundTrip(t *testing.T) {
	zero := toDecimal128(decimal.Zero)
	assert.True(t, fromDecimal128(zero).IsZero())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	notFound := apperror.NewNotFound("item", "x")
	assert.Same(t, notFound, classify(notFound))

	conflict := fmt.Errorf("commit transaction: %w", mongo.CommandError{Code: writeConflictCode, Name: "WriteConflict"})
	assert.Equal(t, apperror.KindTransactionConflict, apperror.KindOf(classify(conflict)))

	transient := mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}
	assert.Equal(t, apperror.KindTransactionConflict, apperror.KindOf(classify(transient)))

	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(classify(context.DeadlineExceeded)))
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(classify(errors.New("server selection error"))))
}
