// internal/adapters/notify/fanout.go
package notify

import (
	"context"
	"errors"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// Fanout delivers each notification to every wrapped notifier
type Fanout []ports.Notifier

// Notify calls every notifier and joins their errors
func (f Fanout) Notify(ctx context.Context, note domain.Notification) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
