// internal/adapters/notify/log.go
package notify

import (
	"context"
	"log/slog"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// LogNotifier writes notifications to a structured logger
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that logs every notification
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) error {
	level := slog.LevelInfo
	if note.Level == domain.LevelError {
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, note.Message,
		slog.String("event", note.Event),
		slog.String("level", string(note.Level)),
		slog.Int64("product_id", note.ProductID))
	return nil
}
