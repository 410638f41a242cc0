// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ammerola/cartsync/internal/core/domain"
)

const (
	TypeCartNotify           = "cart:notify"
	TypeCleanupExpiredTokens = "cleanup:expired_tokens"
	TypeCatalogImport        = "catalog:import"
)

// NotificationPayload is the body of a cart:notify task
type NotificationPayload struct {
	Notification domain.Notification `json:"notification"`
	Source       string              `json:"source"`
}

// NewNotificationTask builds a cart:notify task for n
func NewNotificationTask(n domain.Notification, source string) (*asynq.Task, error) {
	b, err := json.Marshal(NotificationPayload{Notification: n, Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return asynq.NewTask(TypeCartNotify, b), nil
}
