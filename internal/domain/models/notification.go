package models

import "time"

// NotificationKind is the severity of a notification.
type NotificationKind string

const (
	NotificationAlert NotificationKind = "alert"
	NotificationInfo  NotificationKind = "info"
)

// NotificationCategoryStock groups notifications about stock levels.
const NotificationCategoryStock = "stock"

// Notification is a message for the farm operators.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Category  string           `json:"category"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
