package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/domain/status"
)

const (
	// GoalsRange is the sheet range the goal snapshot is written to.
	GoalsRange = "Goals!A:I"
	// SalesLogRange receives one row per exported week.
	SalesLogRange = "WeeklySales!A:D"

	dateLayout = "2006-01-02"
)

var goalHeader = []interface{}{"Title", "Type", "Product", "Current", "Target", "Unit", "Status", "Deadline", "Exported at"}

// GoalExporter mirrors the goal list into a spreadsheet for the cooperative's
// bookkeeping.
type GoalExporter struct {
	repo   Repository
	logger *zap.Logger
}

// NewGoalExporter wires an exporter on top of a sheet repository.
func NewGoalExporter(repo Repository, logger *zap.Logger) *GoalExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalExporter{repo: repo, logger: logger}
}

// ExportGoals overwrites the goals sheet with a snapshot taken at now.
func (e *GoalExporter) ExportGoals(ctx context.Context, goals []models.Goal, now time.Time) error {
	rows := make([][]interface{}, 0, len(goals)+1)
	rows = append(rows, goalHeader)
	for _, g := range goals {
		rows = append(rows, GoalRow(g, now))
	}
	if err := e.repo.ReplaceRange(ctx, GoalsRange, rows); err != nil {
		return fmt.Errorf("export goals: %w", err)
	}
	e.logger.Info("goals exported", zap.Int("goals", len(goals)))
	return nil
}

// AppendWeeklySales adds one summary row to the sales log. A week already
// logged is not written twice.
func (e *GoalExporter) AppendWeeklySales(ctx context.Context, weekEnding time.Time, salesCount int, units float64, revenue string) error {
	day := weekEnding.Format(dateLayout)

	existing, err := e.repo.ReadRange(ctx, SalesLogRange)
	if err != nil {
		return fmt.Errorf("read sales log: %w", err)
	}
	for _, row := range existing {
		if len(row) > 0 && fmt.Sprint(row[0]) == day {
			e.logger.Debug("weekly sales already logged", zap.String("week_ending", day))
			return nil
		}
	}

	row := []interface{}{day, salesCount, units, revenue}
	if err := e.repo.WriteRow(ctx, SalesLogRange, row); err != nil {
		return fmt.Errorf("append weekly sales: %w", err)
	}
	return nil
}

// GoalRow renders a goal as a sheet row, using its display status at now.
func GoalRow(g models.Goal, now time.Time) []interface{} {
	return []interface{}{
		g.Title,
		string(g.Type),
		g.ProductName,
		g.Current,
		g.Target,
		g.Unit,
		string(status.DisplayGoal(g.Status, g.Deadline, now)),
		g.Deadline.Format(dateLayout),
		now.Format(time.RFC3339),
	}
}
