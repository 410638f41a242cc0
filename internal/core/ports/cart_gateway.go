// internal/core/ports/cart_gateway.go
package ports

import (
	"context"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// RemoteCartGateway abstracts the backend's per-user cart API.
// Errors wrap one of domain.ErrTransientNetwork, domain.ErrNotFound,
// domain.ErrValidation or domain.ErrAuthExpired.
type RemoteCartGateway interface {
	List(ctx context.Context) ([]domain.RemoteCartItem, error)
	Add(ctx context.Context, productID int64, quantity int, notes string) (int64, error)
	Update(ctx context.Context, serverItemID int64, quantity int) error
	Remove(ctx context.Context, serverItemID int64) error
}
