// internal/core/ports/cart_store.go
package ports

import (
	"context"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// LocalCartStore persists the client-held cart snapshot.
// Load never fails on absent or corrupt data; it returns the empty default cart instead.
type LocalCartStore interface {
	Load(ctx context.Context) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Clear(ctx context.Context) error
}
