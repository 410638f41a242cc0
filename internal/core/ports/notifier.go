// internal/core/ports/notifier.go
package ports

import (
	"context"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// Notifier receives fire-and-forget user-facing events
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
