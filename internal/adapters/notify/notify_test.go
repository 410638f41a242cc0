package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/adapters/notify"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/workers"
	"github.com/ammerola/cartsync/test/helpers"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, domain.Notification) error { return f.err }

func TestTaskNotifier_Notify(t *testing.T) {
	t.Run("enqueues_cart_notify_task", func(t *testing.T) {
		q := &fakeEnqueuer{}
		n := notify.NewTaskNotifier(q, "cartd", "", helpers.TestLogger())

		err := n.Notify(context.Background(), domain.Notification{
			Level:     domain.LevelSuccess,
			Event:     domain.EventItemAdded,
			Message:   "Rice added to cart",
			ProductID: 7,
		})
		require.NoError(t, err)
		require.Len(t, q.tasks, 1)
		assert.Equal(t, workers.TypeCartNotify, q.tasks[0].Type())

		var payload workers.NotificationPayload
		require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
		assert.Equal(t, "cartd", payload.Source)
		assert.Equal(t, int64(7), payload.Notification.ProductID)
		assert.Equal(t, "Rice added to cart", payload.Notification.Message)
	})

	t.Run("wraps_enqueue_error", func(t *testing.T) {
		q := &fakeEnqueuer{err: errors.New("redis down")}
		n := notify.NewTaskNotifier(q, "cartd", "default", helpers.TestLogger())

		err := n.Notify(context.Background(), domain.Notification{Message: "x"})
		assert.ErrorContains(t, err, "redis down")
	})
}

func TestLogNotifier_Notify(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.Notify(context.Background(), domain.Notification{
		Level:   domain.LevelError,
		Event:   domain.EventSyncFailed,
		Message: "1 item(s) could not be synced",
	}))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), domain.EventSyncFailed)
}

func TestFanout_Notify(t *testing.T) {
	rec := notify.NewRecorder()
	boom := errors.New("boom")
	f := notify.Fanout{rec, nil, failingNotifier{err: boom}}

	err := f.Notify(context.Background(), domain.Notification{Level: domain.LevelInfo, Message: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.All(), 1)
}

func TestRecorder(t *testing.T) {
	rec := notify.NewRecorder()
	ctx := context.Background()
	_ = rec.Notify(ctx, domain.Notification{Level: domain.LevelError})
	_ = rec.Notify(ctx, domain.Notification{Level: domain.LevelSuccess})
	_ = rec.Notify(ctx, domain.Notification{Level: domain.LevelError})

	assert.Equal(t, 2, rec.Count(domain.LevelError))
	assert.Equal(t, 1, rec.Count(domain.LevelSuccess))
	assert.Len(t, rec.Drain(), 3)
	assert.Empty(t, rec.All())
}
