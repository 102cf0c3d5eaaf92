// Package goals manages sales and production goals and refreshes their
// progress from the committed sales and items.
package goals

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/domain/status"
)

// Store is the persistence the goal service needs.
type Store interface {
	CreateGoal(ctx context.Context, goal models.Goal) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	ListGoals(ctx context.Context) ([]models.Goal, error)
	ReplaceGoal(ctx context.Context, goal models.Goal) error
	UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) error
	DeleteGoal(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// Service owns goal CRUD and the progress recalculator.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a goal service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Recalculate recomputes current and status for every goal and persists the
// goals whose values changed. Goals are independent: one goal failing to
// persist does not stop the others, and the first failure is returned after
// all goals were attempted.
func (s *Service) Recalculate(ctx context.Context, session models.Session) ([]models.Goal, error) {
	if !session.Authenticated() {
		return nil, apperror.NewUnauthenticated()
	}

	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		errs    []error
		changed int
	)
	for i, goal := range goals {
		current := Progress(goal, sales, items)
		next := status.RecomputeGoal(current, goal.Target, goal.Deadline, now)
		if current == goal.Current && next == goal.Status {
			continue
		}

		patch := models.GoalPatch{Current: current, Status: next, UpdatedAt: now}
		if err := s.store.UpdateGoal(ctx, goal.ID, patch); err != nil {
			s.logger.Error("persist goal progress failed", zap.String("goal_id", goal.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		goals[i].Current = current
		goals[i].Status = next
		goals[i].UpdatedAt = now
		changed++
	}

	s.logger.Info("goals recalculated", zap.Int("goals", len(goals)), zap.Int("changed", changed))
	if len(errs) > 0 {
		return goals, errs[0]
	}
	return goals, nil
}

// Progress sums what counts toward goal. Production goals add up the
// quantity of the referenced item; sales goals add up the sales of the
// product dated within the goal window, both ends inclusive.
func Progress(goal models.Goal, sales []models.Sale, items []models.Item) float64 {
	var total float64
	switch goal.Type {
	case models.GoalTypeProduction:
		for _, item := range items {
			if item.ID == goal.ProductID {
				total += item.Quantity
			}
		}
	case models.GoalTypeSales:
		from, to := goal.WindowStart(), goal.Deadline
		for _, sale := range sales {
			if sale.ProductID != goal.ProductID {
				continue
			}
			if sale.Date.Before(from) || sale.Date.After(to) {
				continue
			}
			total += sale.Quantity
		}
	}
	return total
}

// Create validates and stores a new goal.
func (s *Service) Create(ctx context.Context, session models.Session, in models.GoalInput) (models.Goal, error) {
	if !session.Authenticated() {
		return models.Goal{}, apperror.NewUnauthenticated()
	}
	if err := validateInput(in); err != nil {
		return models.Goal{}, err
	}

	item, err := s.store.GetItem(ctx, in.ProductID)
	if err != nil {
		return models.Goal{}, err
	}
	existing, err := s.store.ListGoals(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	if err := checkDuplicate(existing, in, ""); err != nil {
		return models.Goal{}, err
	}

	now := s.now().UTC()
	goal := models.Goal{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Type:        in.Type,
		ProductID:   item.ID,
		ProductName: item.Name,
		Target:      in.Target,
		Unit:        unitOrDefault(in.Unit, item.Unit),
		StartDate:   in.StartDate,
		Deadline:    in.Deadline,
		Status:      status.RecomputeGoal(0, in.Target, in.Deadline, now),
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   session.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return models.Goal{}, err
	}

	s.logger.Info("goal created", zap.String("goal_id", goal.ID), zap.String("type", string(goal.Type)))
	return goal, nil
}

// Update edits a goal's definition. Progress is left to the recalculator,
// but the status is re-derived against the new target and deadline.
func (s *Service) Update(ctx context.Context, session models.Session, goalID string, in models.GoalInput) (models.Goal, error) {
	if !session.Authenticated() {
		return models.Goal{}, apperror.NewUnauthenticated()
	}
	if goalID == "" {
		return models.Goal{}, apperror.NewValidation("goal id is required")
	}
	if err := validateInput(in); err != nil {
		return models.Goal{}, err
	}

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	item, err := s.store.GetItem(ctx, in.ProductID)
	if err != nil {
		return models.Goal{}, err
	}
	existing, err := s.store.ListGoals(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	if err := checkDuplicate(existing, in, goalID); err != nil {
		return models.Goal{}, err
	}

	now := s.now().UTC()
	goal.Title = strings.TrimSpace(in.Title)
	goal.Type = in.Type
	goal.ProductID = item.ID
	goal.ProductName = item.Name
	goal.Target = in.Target
	goal.Unit = unitOrDefault(in.Unit, item.Unit)
	goal.StartDate = in.StartDate
	goal.Deadline = in.Deadline
	goal.Description = strings.TrimSpace(in.Description)
	goal.Status = status.RecomputeGoal(goal.Current, goal.Target, goal.Deadline, now)
	goal.UpdatedAt = now
	if err := s.store.ReplaceGoal(ctx, goal); err != nil {
		return models.Goal{}, err
	}

	s.logger.Info("goal updated", zap.String("goal_id", goal.ID))
	return goal, nil
}

// Delete removes a goal.
func (s *Service) Delete(ctx context.Context, session models.Session, goalID string) error {
	if !session.Authenticated() {
		return apperror.NewUnauthenticated()
	}
	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return err
	}
	s.logger.Info("goal deleted", zap.String("goal_id", goalID))
	return nil
}

// Get returns one goal with its display status.
func (s *Service) Get(ctx context.Context, session models.Session, goalID string) (models.Goal, error) {
	if !session.Authenticated() {
		return models.Goal{}, apperror.NewUnauthenticated()
	}
	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	goal.Status = status.DisplayGoal(goal.Status, goal.Deadline, s.now().UTC())
	return goal, nil
}

// List returns every goal with its display status.
func (s *Service) List(ctx context.Context, session models.Session) ([]models.Goal, error) {
	if !session.Authenticated() {
		return nil, apperror.NewUnauthenticated()
	}
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range goals {
		goals[i].Status = status.DisplayGoal(goals[i].Status, goals[i].Deadline, now)
	}
	return goals, nil
}

func validateInput(in models.GoalInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apperror.NewValidation("title is required")
	case !in.Type.Valid():
		return apperror.NewValidation(fmt.Sprintf("type must be %q or %q", models.GoalTypeSales, models.GoalTypeProduction))
	case in.ProductID == "":
		return apperror.NewValidation("product_id is required")
	case math.IsNaN(in.Target) || math.IsInf(in.Target, 0) || in.Target <= 0:
		return apperror.NewValidation("target must be a positive number")
	case in.Deadline.IsZero():
		return apperror.NewValidation("deadline is required")
	case in.StartDate != nil && in.StartDate.After(in.Deadline):
		return apperror.NewValidation("start_date must not be after deadline")
	}
	return nil
}

// checkDuplicate rejects a goal sharing its normalised title and product, or
// its product and type, with another goal. skipID excludes the goal being
// edited.
func checkDuplicate(existing []models.Goal, in models.GoalInput, skipID string) error {
	title := normalise(in.Title)
	for _, g := range existing {
		if g.ID == skipID || g.ProductID != in.ProductID {
			continue
		}
		switch {
		case normalise(g.Title) == title:
			return apperror.NewValidationCode(apperror.CodeDuplicateGoal, "a goal with this title already exists for the product").
				WithDetail("goal_id", g.ID)
		case g.Type == in.Type:
			return apperror.NewValidationCode(apperror.CodeDuplicateGoal, "a goal of this type already exists for the product").
				WithDetail("goal_id", g.ID)
		}
	}
	return nil
}

func normalise(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func unitOrDefault(unit, fallback string) string {
	if u := strings.TrimSpace(unit); u != "" {
		return u
	}
	return fallback
}
