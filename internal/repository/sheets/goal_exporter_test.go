package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

type fakeRepo struct {
	replaced map[string][][]interface{}
	appended map[string][][]interface{}
	err      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{replaced: map[string][][]interface{}{}, appended: map[string][][]interface{}{}}
}

func (f *fakeRepo) WriteRow(_ context.Context, r string, values []interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.appended[r] = append(f.appended[r], values)
	return nil
}

func (f *fakeRepo) ReadRange(_ context.Context, r string) ([][]interface{}, error) {
	return f.appended[r], f.err
}

func (f *fakeRepo) ReplaceRange(_ context.Context, r string, rows [][]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.replaced[r] = rows
	return nil
}

func TestExportGoals(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	goals := []models.Goal{
		{Title: "Eggs", Type: models.GoalTypeSales, ProductName: "Eggs", Current: 10, Target: 50, Unit: "tray", Status: models.GoalActive, Deadline: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, NewGoalExporter(repo, nil).ExportGoals(context.Background(), goals, now))

	rows := repo.replaced[GoalsRange]
	require.Len(t, rows, 2)
	assert.Equal(t, goalHeader, rows[0])
	assert.Equal(t, []interface{}{"Eggs", "sales", "Eggs", 10.0, 50.0, "tray", "overdue", "2025-02-28", "2025-03-01T12:00:00Z"}, rows[1])
}

func TestExportGoals_Error(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("quota exceeded")
	err := NewGoalExporter(repo, nil).ExportGoals(context.Background(), nil, time.Now())
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestAppendWeeklySales_OncePerWeek(t *testing.T) {
	repo := newFakeRepo()
	exporter := NewGoalExporter(repo, nil)
	week := time.Date(2025, 3, 7, 20, 0, 0, 0, time.UTC)

	require.NoError(t, exporter.AppendWeeklySales(context.Background(), week, 3, 42, "120.50"))
	require.NoError(t, exporter.AppendWeeklySales(context.Background(), week, 3, 42, "120.50"))

	rows := repo.appended[SalesLogRange]
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"2025-03-07", 3, 42.0, "120.50"}, rows[0])
}
