// Package repository declares the persistence ports used by the services.
// Implementations live in the mongodb and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// ItemPatch is the set of item fields a transaction may rewrite.
type ItemPatch struct {
	Quantity    float64
	Sales       models.SaleHistory
	Productions models.ProductionLog
	UpdatedAt   time.Time
}

// PatchFrom builds the patch that persists item's mutable state.
func PatchFrom(item models.Item) ItemPatch {
	return ItemPatch{
		Quantity:    item.Quantity,
		Sales:       item.Sales,
		Productions: item.Productions,
		UpdatedAt:   item.UpdatedAt,
	}
}

// Tx is the view of the store available inside one atomic transaction.
// Item quantities are only ever mutated through a Tx.
type Tx interface {
	GetItem(ctx context.Context, id string) (models.Item, error)
	UpdateItem(ctx context.Context, id string, patch ItemPatch) error
	GetSale(ctx context.Context, id string) (models.Sale, error)
	CreateSale(ctx context.Context, sale models.Sale) error
	UpdateSale(ctx context.Context, sale models.Sale) error
	DeleteSale(ctx context.Context, id string) error
}

// TxFunc is the body of a transaction. Returning an error aborts it.
type TxFunc func(ctx context.Context, tx Tx) error

// Transactor runs a function atomically: either every write inside fn is
// committed or none is.
type Transactor interface {
	WithTransaction(ctx context.Context, fn TxFunc) error
}

// ItemStore reads and registers items outside of sale transactions.
type ItemStore interface {
	CreateItem(ctx context.Context, item models.Item) error
	GetItem(ctx context.Context, id string) (models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// SaleStore reads committed sales.
type SaleStore interface {
	GetSale(ctx context.Context, id string) (models.Sale, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// GoalStore persists goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, goal models.Goal) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	ListGoals(ctx context.Context) ([]models.Goal, error)
	ReplaceGoal(ctx context.Context, goal models.Goal) error
	UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) error
	DeleteGoal(ctx context.Context, id string) error
}

// NotificationStore persists notifications for the in-app feed.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

// Store is the full persistence surface.
type Store interface {
	Transactor
	ItemStore
	SaleStore
	GoalStore
	NotificationStore
	Close(ctx context.Context) error
}
