// Package sales keeps sales and the stock of the items they draw from
// mutually consistent. Every sale write and its paired item adjustment share
// one transaction.
package sales

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/repository"
	"github.com/mamadbah2/farmcoop/internal/service/notify"
)

// DefaultTimeout bounds one sale transaction when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Store is the persistence the sale service needs.
type Store interface {
	repository.Transactor
	repository.SaleStore
}

// Service is the sale transaction manager.
type Service struct {
	store    Store
	notifier *notify.Dispatcher
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires a sale service. A non-positive timeout uses DefaultTimeout.
func NewService(store Store, notifier *notify.Dispatcher, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create records a sale and decrements the item's stock by the sold
// quantity. It fails with InsufficientStock when the item holds less than
// the requested quantity.
func (s *Service) Create(ctx context.Context, session models.Session, in models.SaleInput) (models.Sale, error) {
	if !session.Authenticated() {
		return models.Sale{}, apperror.NewUnauthenticated()
	}
	if in.ProductID == "" {
		return models.Sale{}, apperror.NewValidation("product_id is required")
	}
	if err := validateAmounts(in.Quantity, in.UnitPrice); err != nil {
		return models.Sale{}, err
	}

	now := s.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	var (
		sale models.Sale
		item models.Item
	)
	err := repository.RunInTransaction(ctx, s.store, "sale.create", s.timeout, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.GetItem(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if in.Quantity > current.Quantity {
			return apperror.NewInsufficientStock(current.ID, in.Quantity, current.Quantity)
		}

		sale = models.Sale{
			ID:          s.newID(),
			ProductID:   current.ID,
			ProductName: current.Name,
			FarmName:    current.FarmName,
			Quantity:    in.Quantity,
			UnitPrice:   decimal.NewFromFloat(in.UnitPrice),
			Date:        date,
			CreatedBy:   session.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		sale.TotalValue = sale.Total()
		if err := tx.CreateSale(ctx, sale); err != nil {
			return err
		}

		current.Quantity -= sale.Quantity
		current.Sales = current.Sales.Add(sale.Entry())
		current.UpdatedAt = now
		if err := tx.UpdateItem(ctx, current.ID, repository.PatchFrom(current)); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		s.logFailure("create sale", err, zap.String("product_id", in.ProductID))
		return models.Sale{}, err
	}

	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", sale.ProductID),
		zap.Float64("quantity", sale.Quantity),
		zap.Float64("remaining", item.Quantity))
	s.notifier.StockChanged(ctx, item)
	return sale, nil
}

// Update rewrites a sale and moves the item's stock by the difference
// between the new and old quantities. An update that would leave the item
// with negative stock is refused with InsufficientStock, the same rule
// Create applies.
func (s *Service) Update(ctx context.Context, session models.Session, saleID string, in models.SaleUpdate) (models.Sale, error) {
	if !session.Authenticated() {
		return models.Sale{}, apperror.NewUnauthenticated()
	}
	if saleID == "" {
		return models.Sale{}, apperror.NewValidation("sale id is required")
	}
	if err := validateAmounts(in.Quantity, in.UnitPrice); err != nil {
		return models.Sale{}, err
	}

	now := s.now().UTC()

	var (
		sale models.Sale
		item models.Item
	)
	err := repository.RunInTransaction(ctx, s.store, "sale.update", s.timeout, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		current, err := tx.GetItem(ctx, existing.ProductID)
		if err != nil {
			return err
		}

		quantityDiff := in.Quantity - existing.Quantity
		if current.Quantity-quantityDiff < 0 {
			return apperror.NewInsufficientStock(current.ID, quantityDiff, current.Quantity).
				WithDetail("sale_id", saleID)
		}

		sale = existing
		sale.Quantity = in.Quantity
		sale.UnitPrice = decimal.NewFromFloat(in.UnitPrice)
		if !in.Date.IsZero() {
			sale.Date = in.Date
		}
		sale.TotalValue = sale.Total()
		sale.UpdatedAt = now
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return err
		}

		current.Quantity -= quantityDiff
		current.Sales = current.Sales.Replace(sale.Entry())
		current.UpdatedAt = now
		if err := tx.UpdateItem(ctx, current.ID, repository.PatchFrom(current)); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		s.logFailure("update sale", err, zap.String("sale_id", saleID))
		return models.Sale{}, err
	}

	s.logger.Info("sale updated",
		zap.String("sale_id", sale.ID),
		zap.Float64("quantity", sale.Quantity),
		zap.Float64("remaining", item.Quantity))
	s.notifier.StockChanged(ctx, item)
	return sale, nil
}

// Delete removes a sale and returns its quantity to the item. Deleting a
// missing sale succeeds. When the item no longer exists only the sale is
// removed.
func (s *Service) Delete(ctx context.Context, session models.Session, saleID string) error {
	if !session.Authenticated() {
		return apperror.NewUnauthenticated()
	}
	if saleID == "" {
		return apperror.NewValidation("sale id is required")
	}

	now := s.now().UTC()
	err := repository.RunInTransaction(ctx, s.store, "sale.delete", s.timeout, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.GetSale(ctx, saleID)
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		current, err := tx.GetItem(ctx, existing.ProductID)
		if apperror.IsKind(err, apperror.KindNotFound) {
			s.logger.Warn("deleting orphan sale", zap.String("sale_id", saleID), zap.String("product_id", existing.ProductID))
			return tx.DeleteSale(ctx, saleID)
		}
		if err != nil {
			return err
		}

		current.Quantity += existing.Quantity
		current.Sales = current.Sales.Remove(saleID)
		current.UpdatedAt = now
		if err := tx.UpdateItem(ctx, current.ID, repository.PatchFrom(current)); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, saleID)
	})
	if err != nil {
		s.logFailure("delete sale", err, zap.String("sale_id", saleID))
		return err
	}

	s.logger.Info("sale deleted", zap.String("sale_id", saleID))
	return nil
}

// Get returns one sale.
func (s *Service) Get(ctx context.Context, session models.Session, saleID string) (models.Sale, error) {
	if !session.Authenticated() {
		return models.Sale{}, apperror.NewUnauthenticated()
	}
	return s.store.GetSale(ctx, saleID)
}

// List returns sales, most recent first, optionally for one product.
func (s *Service) List(ctx context.Context, session models.Session, productID string) ([]models.Sale, error) {
	if !session.Authenticated() {
		return nil, apperror.NewUnauthenticated()
	}
	all, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	if productID == "" {
		return all, nil
	}
	out := make([]models.Sale, 0, len(all))
	for _, sale := range all {
		if sale.ProductID == productID {
			out = append(out, sale)
		}
	}
	return out, nil
}

func validateAmounts(quantity, unitPrice float64) error {
	switch {
	case math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0:
		return apperror.NewValidation("quantity must be a positive number")
	case quantity != math.Trunc(quantity):
		return apperror.NewValidation("quantity must be a whole number").WithDetail("quantity", quantity)
	case math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) || unitPrice <= 0:
		return apperror.NewValidation("unit_price must be a positive number")
	}
	return nil
}

func (s *Service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", string(apperror.KindOf(err))), zap.Error(err))
	switch apperror.KindOf(err) {
	case apperror.KindStorage, apperror.KindTimeout, apperror.KindTransactionConflict:
		s.logger.Error(op+" failed", fields...)
	default:
		s.logger.Debug(op+" rejected", fields...)
	}
}
