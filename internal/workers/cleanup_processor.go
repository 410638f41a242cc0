// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/cartsync/internal/core/ports"
)

// CleanupProcessor handles cleanup tasks
type CleanupProcessor struct {
	db     ports.Database
	logger *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(db ports.Database, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		db:     db,
		logger: logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupExpiredTokens removes API tokens past their expiry
func (p *CleanupProcessor) CleanupExpiredTokens(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up expired tokens")

	result, err := p.db.Exec(ctx, `DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < NOW()`)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	p.logger.InfoContext(ctx, "expired tokens cleaned up",
		slog.Int64("rows_deleted", result.RowsAffected()))
	return nil
}
