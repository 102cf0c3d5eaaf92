// Package notify delivers operator notifications. Delivery is
// fire-and-forget from the caller's point of view: a failed notification
// never undoes the write that triggered it.
package notify

//go:generate mockgen -source=notifier.go -destination=mocks/notifier_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/domain/status"
	"github.com/mamadbah2/farmcoop/internal/repository"
)

// Notifier is the notification sink.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// StoreNotifier persists notifications for the in-app feed.
type StoreNotifier struct {
	store repository.NotificationStore
	now   func() time.Time
}

// NewStoreNotifier builds a store-backed sink.
func NewStoreNotifier(store repository.NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: store, now: time.Now}
}

// Notify stores n, filling its id and timestamp when missing.
func (s *StoreNotifier) Notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.store.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

// Multi fans a notification out to several sinks and joins their errors.
type Multi []Notifier

// Notify delivers n to every sink, even after a failure.
func (m Multi) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LowStock builds the alert sent when item falls below its minimum.
func LowStock(item models.Item) models.Notification {
	return models.Notification{
		Kind:     models.NotificationAlert,
		Category: models.NotificationCategoryStock,
		Title:    "Low stock",
		Message: fmt.Sprintf("%s is low: %.2f %s left (minimum %.2f).",
			item.Name, item.Quantity, item.Unit, item.MinStock),
	}
}

// DefaultDeliveryTimeout bounds one background delivery.
const DefaultDeliveryTimeout = 30 * time.Second

// Dispatcher sends low-stock alerts after committed writes. Delivery runs
// in the background on a context detached from the request, so a slow sink
// never delays the caller. Sink failures are logged and dropped.
type Dispatcher struct {
	sink    Notifier
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps sink. A nil sink disables notifications.
func NewDispatcher(sink Notifier, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, logger: logger, timeout: DefaultDeliveryTimeout}
}

// StockChanged schedules a notification when item's stock status is low.
// It reports whether a delivery was started.
func (d *Dispatcher) StockChanged(ctx context.Context, item models.Item) bool {
	if d == nil || d.sink == nil {
		return false
	}
	if status.ForStock(item.Quantity, item.MinStock) != status.StockLow {
		return false
	}

	n := LowStock(item)
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.sink.Notify(deliverCtx, n); err != nil {
			d.logger.Warn("low stock notification failed",
				zap.String("item_id", item.ID),
				zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
