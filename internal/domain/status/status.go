// Package status holds the derived-status rules for items and goals. Every
// caller that displays, persists or notifies on a status goes through here.
package status

import (
	"math"
	"time"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// Stock is the classification of an item's quantity against its minimum.
type Stock string

const (
	StockLow     Stock = "low"
	StockWarning Stock = "warning"
	StockNormal  Stock = "normal"
)

// warningFactor bounds the warning band above the minimum stock.
const warningFactor = 1.5

// ForStock classifies quantity against minStock.
func ForStock(quantity, minStock float64) Stock {
	switch {
	case quantity < minStock:
		return StockLow
	case quantity <= minStock*warningFactor:
		return StockWarning
	default:
		return StockNormal
	}
}

// Stage is the production-tracking classification of an item.
type Stage string

const (
	StageWaiting    Stage = "waiting"
	StageProduction Stage = "production"
	StageHarvested  Stage = "harvested"
)

const minStockEpsilon = 1e-9

// ForProduction returns the production stage and a progress percentage.
// An absent or invalid minStock counts as 1.
func ForProduction(quantity, minStock float64) (Stage, int) {
	if math.IsNaN(minStock) || math.IsInf(minStock, 0) || minStock <= 0 {
		minStock = 1
	}
	minStock = math.Max(minStock, minStockEpsilon)

	switch {
	case math.IsNaN(quantity) || quantity <= 0:
		return StageWaiting, 0
	case quantity < minStock:
		progress := int(math.Round(quantity / minStock * 100))
		return StageProduction, clamp(progress, 0, 100)
	default:
		return StageHarvested, 100
	}
}

// RecomputeGoal derives a goal status from its progress. A deadline equal to
// now is not yet overdue.
func RecomputeGoal(current, target float64, deadline, now time.Time) models.GoalStatus {
	switch {
	case current >= target:
		return models.GoalCompleted
	case now.After(deadline):
		return models.GoalOverdue
	default:
		return models.GoalActive
	}
}

// DisplayGoal re-derives the status to show for a stored goal. It agrees
// with RecomputeGoal for any status RecomputeGoal produced.
func DisplayGoal(stored models.GoalStatus, deadline, now time.Time) models.GoalStatus {
	switch {
	case stored == models.GoalCompleted:
		return models.GoalCompleted
	case deadline.Before(now) || stored == models.GoalOverdue:
		return models.GoalOverdue
	default:
		return models.GoalActive
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
