// internal/core/domain/notification.go
package domain

import "time"

// NotificationLevel represents the severity of a user-facing event
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelError   NotificationLevel = "error"
)

// Notification is a fire-and-forget user-facing event
type Notification struct {
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	ProductID int64             `json:"product_id,omitempty"`
	UserID    int64             `json:"user_id,omitempty"`
	Event     string            `json:"event,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notification events
const (
	EventItemAdded      = "cart.item_added"
	EventItemUpdated    = "cart.item_updated"
	EventItemRemoved    = "cart.item_removed"
	EventCartCleared    = "cart.cleared"
	EventSyncFailed     = "cart.sync_failed"
	EventChangeRejected = "cart.change_rejected"
	EventSessionExpired = "cart.session_expired"
)
