// internal/core/ports/cart_repository.go
package ports

import (
	"context"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// CartRepository defines the persistence port for the remote cart API.
// This interface is implemented by the database adapter.
type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error)
	FindByID(ctx context.Context, id int64) (*domain.CartLine, error)
	Upsert(ctx context.Context, userID, productID int64, quantity int, notes string) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) error
	Delete(ctx context.Context, id int64) error
	FindProduct(ctx context.Context, productID int64) (*domain.Product, error)
	FindUserByToken(ctx context.Context, token string) (*domain.User, error)
}
