package models

import "time"

// GoalType selects what a goal measures.
type GoalType string

const (
	GoalTypeSales      GoalType = "sales"
	GoalTypeProduction GoalType = "production"
)

// Valid reports whether t is a known goal type.
func (t GoalType) Valid() bool {
	return t == GoalTypeSales || t == GoalTypeProduction
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalOverdue   GoalStatus = "overdue"
)

// Goal is a sales or production target for one product.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Type        GoalType   `json:"type"`
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name"`
	Target      float64    `json:"target"`
	Current     float64    `json:"current"`
	Unit        string     `json:"unit"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	Deadline    time.Time  `json:"deadline"`
	Status      GoalStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WindowStart is the first instant counted toward a sales goal.
func (g Goal) WindowStart() time.Time {
	if g.StartDate != nil && !g.StartDate.IsZero() {
		return *g.StartDate
	}
	if !g.CreatedAt.IsZero() {
		return g.CreatedAt
	}
	return time.Unix(0, 0).UTC()
}

// GoalInput is the payload for creating or editing a goal.
type GoalInput struct {
	Title       string     `json:"title"`
	Type        GoalType   `json:"type"`
	ProductID   string     `json:"product_id"`
	Target      float64    `json:"target"`
	Unit        string     `json:"unit"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	Deadline    time.Time  `json:"deadline"`
	Description string     `json:"description"`
}

// GoalPatch is the set of fields the recalculator writes back.
type GoalPatch struct {
	Current   float64
	Status    GoalStatus
	UpdatedAt time.Time
}
