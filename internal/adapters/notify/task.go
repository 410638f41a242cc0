// internal/adapters/notify/task.go
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/workers"
)

// Enqueuer is the subset of *asynq.Client used to publish notifications
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier publishes notifications as cart:notify background tasks
type TaskNotifier struct {
	client Enqueuer
	source string
	queue  string
	logger *slog.Logger
}

var _ ports.Notifier = (*TaskNotifier)(nil)

// NewTaskNotifier creates a notifier that enqueues onto the given queue
func NewTaskNotifier(client Enqueuer, source, queue string, logger *slog.Logger) *TaskNotifier {
	if queue == "" {
		queue = "default"
	}
	return &TaskNotifier{
		client: client,
		source: source,
		queue:  queue,
		logger: logger.With(slog.String("component", "task_notifier")),
	}
}

func (n *TaskNotifier) Notify(ctx context.Context, note domain.Notification) error {
	task, err := workers.NewNotificationTask(note, n.source)
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue(n.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	n.logger.DebugContext(ctx, "notification enqueued",
		slog.String("task_id", info.ID),
		slog.String("event", note.Event))
	return nil
}
