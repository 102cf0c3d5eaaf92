// Package inventory registers items and records production. Production
// entries are the only way stock grows, and they go through the same
// transaction path as sales.
package inventory

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/domain/status"
	"github.com/mamadbah2/farmcoop/internal/repository"
	"github.com/mamadbah2/farmcoop/internal/service/notify"
)

// Store is the persistence the inventory service needs.
type Store interface {
	repository.Transactor
	repository.ItemStore
	ListGoals(ctx context.Context) ([]models.Goal, error)
}

// Service manages inventory items.
type Service struct {
	store    Store
	notifier *notify.Dispatcher
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires an inventory service. timeout bounds production
// transactions.
func NewService(store Store, notifier *notify.Dispatcher, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
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

// RegisterItem creates an item. A positive opening quantity is recorded as
// the item's first production entry. Names are unique per farm, ignoring
// case and surrounding spaces.
func (s *Service) RegisterItem(ctx context.Context, session models.Session, in models.ItemInput) (models.Item, error) {
	if !session.Authenticated() {
		return models.Item{}, apperror.NewUnauthenticated()
	}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return models.Item{}, apperror.NewValidation("name is required")
	case strings.TrimSpace(in.Unit) == "":
		return models.Item{}, apperror.NewValidation("unit is required")
	case !nonNegative(in.MinStock):
		return models.Item{}, apperror.NewValidation("min_stock must be zero or more")
	case !nonNegative(in.OpeningQuantity):
		return models.Item{}, apperror.NewValidation("opening_quantity must be zero or more")
	case in.CostPrice.IsNegative():
		return models.Item{}, apperror.NewValidation("cost_price must be zero or more")
	}

	existing, err := s.store.ListItems(ctx)
	if err != nil {
		return models.Item{}, err
	}
	for _, item := range existing {
		if item.FarmID == in.FarmID && strings.EqualFold(strings.TrimSpace(item.Name), name) {
			return models.Item{}, apperror.NewValidationCode(apperror.CodeDuplicateName, "an item with this name already exists on the farm").
				WithDetail("item_id", item.ID)
		}
	}

	now := s.now().UTC()
	item := models.Item{
		ID:        s.newID(),
		Name:      name,
		FarmID:    in.FarmID,
		FarmName:  strings.TrimSpace(in.FarmName),
		Category:  strings.TrimSpace(in.Category),
		Quantity:  in.OpeningQuantity,
		MinStock:  in.MinStock,
		Unit:      strings.TrimSpace(in.Unit),
		CostPrice: in.CostPrice,
		CreatedBy: session.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.OpeningQuantity > 0 {
		item.Productions = item.Productions.Add(models.ProductionEntry{
			ID:       s.newID(),
			Date:     now,
			Quantity: in.OpeningQuantity,
			Note:     "opening stock",
		})
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return models.Item{}, err
	}

	s.logger.Info("item registered", zap.String("item_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// AddProduction records produced stock on an item and raises its quantity
// in one transaction.
func (s *Service) AddProduction(ctx context.Context, session models.Session, itemID string, in models.ProductionInput) (models.Item, error) {
	if !session.Authenticated() {
		return models.Item{}, apperror.NewUnauthenticated()
	}
	if itemID == "" {
		return models.Item{}, apperror.NewValidation("item id is required")
	}
	if math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity <= 0 {
		return models.Item{}, apperror.NewValidation("quantity must be a positive number")
	}

	now := s.now().UTC()
	entry := models.ProductionEntry{
		ID:       s.newID(),
		Date:     in.Date,
		Quantity: in.Quantity,
		Note:     strings.TrimSpace(in.Note),
	}
	if entry.Date.IsZero() {
		entry.Date = now
	}

	var item models.Item
	err := repository.RunInTransaction(ctx, s.store, "item.add_production", s.timeout, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		current.Quantity += entry.Quantity
		current.Productions = current.Productions.Add(entry)
		current.UpdatedAt = now
		if err := tx.UpdateItem(ctx, current.ID, repository.PatchFrom(current)); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		s.logger.Warn("add production failed", zap.String("item_id", itemID), zap.Error(err))
		return models.Item{}, err
	}

	s.logger.Info("production recorded",
		zap.String("item_id", item.ID),
		zap.Float64("quantity", entry.Quantity),
		zap.Float64("stock", item.Quantity))
	s.notifier.StockChanged(ctx, item)
	return item, nil
}

// DeleteItem removes an item that no goal references.
func (s *Service) DeleteItem(ctx context.Context, session models.Session, itemID string) error {
	if !session.Authenticated() {
		return apperror.NewUnauthenticated()
	}
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return err
	}
	for _, g := range goals {
		if g.ProductID == itemID {
			return apperror.NewValidationCode(apperror.CodeItemReferenced, "item is referenced by a goal").
				WithDetail("goal_id", g.ID)
		}
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info("item deleted", zap.String("item_id", itemID))
	return nil
}

// GetItem returns one item with its derived statuses.
func (s *Service) GetItem(ctx context.Context, session models.Session, itemID string) (models.ItemView, error) {
	if !session.Authenticated() {
		return models.ItemView{}, apperror.NewUnauthenticated()
	}
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return models.ItemView{}, err
	}
	return View(item), nil
}

// ListItems returns every item with its derived statuses.
func (s *Service) ListItems(ctx context.Context, session models.Session) ([]models.ItemView, error) {
	if !session.Authenticated() {
		return nil, apperror.NewUnauthenticated()
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, View(item))
	}
	return views, nil
}

// View decorates item with its stock status and production stage.
func View(item models.Item) models.ItemView {
	stage, progress := status.ForProduction(item.Quantity, item.MinStock)
	return models.ItemView{
		Item:               item,
		StockStatus:        string(status.ForStock(item.Quantity, item.MinStock)),
		ProductionStage:    string(stage),
		ProductionProgress: progress,
	}
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
