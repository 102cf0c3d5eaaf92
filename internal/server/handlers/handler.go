package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// InventoryService is the item surface exposed over HTTP.
type InventoryService interface {
	RegisterItem(ctx context.Context, session models.Session, in models.ItemInput) (models.Item, error)
	AddProduction(ctx context.Context, session models.Session, itemID string, in models.ProductionInput) (models.Item, error)
	DeleteItem(ctx context.Context, session models.Session, itemID string) error
	GetItem(ctx context.Context, session models.Session, itemID string) (models.ItemView, error)
	ListItems(ctx context.Context, session models.Session) ([]models.ItemView, error)
}

// SaleService is the sale surface exposed over HTTP.
type SaleService interface {
	Create(ctx context.Context, session models.Session, in models.SaleInput) (models.Sale, error)
	Update(ctx context.Context, session models.Session, saleID string, in models.SaleUpdate) (models.Sale, error)
	Delete(ctx context.Context, session models.Session, saleID string) error
	Get(ctx context.Context, session models.Session, saleID string) (models.Sale, error)
	List(ctx context.Context, session models.Session, productID string) ([]models.Sale, error)
}

// GoalService is the goal surface exposed over HTTP.
type GoalService interface {
	Create(ctx context.Context, session models.Session, in models.GoalInput) (models.Goal, error)
	Update(ctx context.Context, session models.Session, goalID string, in models.GoalInput) (models.Goal, error)
	Delete(ctx context.Context, session models.Session, goalID string) error
	Get(ctx context.Context, session models.Session, goalID string) (models.Goal, error)
	List(ctx context.Context, session models.Session) ([]models.Goal, error)
	Recalculate(ctx context.Context, session models.Session) ([]models.Goal, error)
}

// NotificationFeed lists stored notifications.
type NotificationFeed interface {
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

// Handler adapts the services to Gin.
type Handler struct {
	items         InventoryService
	sales         SaleService
	goals         GoalService
	notifications NotificationFeed
	logger        *zap.Logger
}

// New constructs the HTTP handler adapter.
func New(items InventoryService, sales SaleService, goals GoalService, notifications NotificationFeed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		items:         items,
		sales:         sales,
		goals:         goals,
		notifications: notifications,
		logger:        logger,
	}
}
