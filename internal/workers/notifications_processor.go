// internal/workers/notifications_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// NotificationProcessor delivers cart notifications queued by the API and clients
type NotificationProcessor struct {
	logger *slog.Logger
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(logger *slog.Logger) *NotificationProcessor {
	return &NotificationProcessor{
		logger: logger.With(slog.String("processor", "notification")),
	}
}

// Deliver handles a cart:notify task
func (p *NotificationProcessor) Deliver(ctx context.Context, t *asynq.Task) error {
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads never succeed on retry
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	n := payload.Notification
	if n.Message == "" {
		return fmt.Errorf("notification without message: %w", asynq.SkipRetry)
	}

	attrs := []any{
		slog.String("event", n.Event),
		slog.String("source", payload.Source),
		slog.Int64("user_id", n.UserID),
		slog.Int64("product_id", n.ProductID),
		slog.Time("created_at", n.CreatedAt),
	}

	switch n.Level {
	case domain.LevelError:
		p.logger.ErrorContext(ctx, n.Message, attrs...)
	case domain.LevelSuccess, domain.LevelInfo:
		p.logger.InfoContext(ctx, n.Message, attrs...)
	default:
		p.logger.WarnContext(ctx, n.Message, append(attrs, slog.String("level", string(n.Level)))...)
	}
	return nil
}
