// Package memory provides an in-process transactional store. Transactions
// run against a copy of the state and replace it only on success, so an
// aborted transaction leaves no trace.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type state struct {
	items         map[string]models.Item
	sales         map[string]models.Sale
	goals         map[string]models.Goal
	notifications []models.Notification
}

func newState() state {
	return state{
		items: map[string]models.Item{},
		sales: map[string]models.Sale{},
		goals: map[string]models.Goal{},
	}
}

// clone copies the maps and the slices owned by items so that writes made
// inside a transaction never reach the committed state.
func (s state) clone() state {
	out := state{
		items:         make(map[string]models.Item, len(s.items)),
		sales:         make(map[string]models.Sale, len(s.sales)),
		goals:         make(map[string]models.Goal, len(s.goals)),
		notifications: append([]models.Notification(nil), s.notifications...),
	}
	for k, v := range s.items {
		out.items[k] = cloneItem(v)
	}
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.goals {
		out.goals[k] = v
	}
	return out
}

func cloneItem(i models.Item) models.Item {
	i.Sales = append(models.SaleHistory(nil), i.Sales...)
	i.Productions = append(models.ProductionLog(nil), i.Productions...)
	return i
}

// Store is a mutex-guarded in-memory implementation of repository.Store.
type Store struct {
	mu    sync.RWMutex
	state state

	// txMu serialises transactions and item writes so concurrent
	// read-modify-write cycles on the same item never lose updates.
	txMu sync.Mutex

	// FailCommit, when set, is returned instead of committing. Tests use it
	// to simulate an aborted transaction.
	FailCommit error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithTransaction runs fn against a private copy of the state and commits
// the copy only when fn succeeds and ctx is still live.
func (s *Store) WithTransaction(ctx context.Context, fn repository.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{state: &working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailCommit != nil {
		return s.FailCommit
	}

	s.mu.Lock()
	// Goals and notifications are written outside transactions; keep the
	// latest committed versions of both.
	working.goals = s.state.goals
	working.notifications = s.state.notifications
	s.state = working
	s.mu.Unlock()
	return nil
}

// CreateItem registers a new item.
func (s *Store) CreateItem(_ context.Context, item models.Item) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.items[item.ID]; exists {
		return apperror.NewValidationCode(apperror.CodeDuplicateName, "item id already exists").WithDetail("id", item.ID)
	}
	s.state.items[item.ID] = cloneItem(item)
	return nil
}

// GetItem returns the committed item.
func (s *Store) GetItem(_ context.Context, id string) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.state.items[id]
	if !ok {
		return models.Item{}, apperror.NewNotFound("item", id)
	}
	return cloneItem(item), nil
}

// ListItems returns every item ordered by name.
func (s *Store) ListItems(_ context.Context) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Item, 0, len(s.state.items))
	for _, item := range s.state.items {
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.items[id]; !ok {
		return apperror.NewNotFound("item", id)
	}
	delete(s.state.items, id)
	return nil
}

// GetSale returns a committed sale.
func (s *Store) GetSale(_ context.Context, id string) (models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return models.Sale{}, apperror.NewNotFound("sale", id)
	}
	return sale, nil
}

// ListSales returns every sale, most recent first.
func (s *Store) ListSales(_ context.Context) ([]models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Sale, 0, len(s.state.sales))
	for _, sale := range s.state.sales {
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// CreateGoal stores a new goal.
func (s *Store) CreateGoal(_ context.Context, goal models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.goals[goal.ID] = goal
	return nil
}

// GetGoal returns a goal.
func (s *Store) GetGoal(_ context.Context, id string) (models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goal, ok := s.state.goals[id]
	if !ok {
		return models.Goal{}, apperror.NewNotFound("goal", id)
	}
	return goal, nil
}

// ListGoals returns every goal ordered by deadline.
func (s *Store) ListGoals(_ context.Context) ([]models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Goal, 0, len(s.state.goals))
	for _, goal := range s.state.goals {
		out = append(out, goal)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].ID < out[j].ID
		}
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out, nil
}

// ReplaceGoal overwrites an existing goal.
func (s *Store) ReplaceGoal(_ context.Context, goal models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.goals[goal.ID]; !ok {
		return apperror.NewNotFound("goal", goal.ID)
	}
	s.state.goals[goal.ID] = goal
	return nil
}

// UpdateGoal applies a progress patch.
func (s *Store) UpdateGoal(_ context.Context, id string, patch models.GoalPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal, ok := s.state.goals[id]
	if !ok {
		return apperror.NewNotFound("goal", id)
	}
	goal.Current = patch.Current
	goal.Status = patch.Status
	goal.UpdatedAt = patch.UpdatedAt
	s.state.goals[id] = goal
	return nil
}

// DeleteGoal removes a goal.
func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.goals[id]; !ok {
		return apperror.NewNotFound("goal", id)
	}
	delete(s.state.goals, id)
	return nil
}

// SaveNotification appends a notification to the feed.
func (s *Store) SaveNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.notifications = append(s.state.notifications, n)
	return nil
}

// ListNotifications returns up to limit notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.state.notifications)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Notification, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.state.notifications[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close(context.Context) error {
	return nil
}

type tx struct {
	state *state
}

func (t *tx) GetItem(_ context.Context, id string) (models.Item, error) {
	item, ok := t.state.items[id]
	if !ok {
		return models.Item{}, apperror.NewNotFound("item", id)
	}
	return cloneItem(item), nil
}

func (t *tx) UpdateItem(_ context.Context, id string, patch repository.ItemPatch) error {
	item, ok := t.state.items[id]
	if !ok {
		return apperror.NewNotFound("item", id)
	}
	item.Quantity = patch.Quantity
	item.Sales = append(models.SaleHistory(nil), patch.Sales...)
	item.Productions = append(models.ProductionLog(nil), patch.Productions...)
	item.UpdatedAt = patch.UpdatedAt
	t.state.items[id] = item
	return nil
}

func (t *tx) GetSale(_ context.Context, id string) (models.Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return models.Sale{}, apperror.NewNotFound("sale", id)
	}
	return sale, nil
}

func (t *tx) CreateSale(_ context.Context, sale models.Sale) error {
	t.state.sales[sale.ID] = sale
	return nil
}

func (t *tx) UpdateSale(_ context.Context, sale models.Sale) error {
	if _, ok := t.state.sales[sale.ID]; !ok {
		return apperror.NewNotFound("sale", sale.ID)
	}
	t.state.sales[sale.ID] = sale
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id string) error {
	delete(t.state.sales, id)
	return nil
}
