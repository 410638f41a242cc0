// internal/core/ports/cart_api_service.go
package ports

import (
	"context"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// CartAPIService defines the application service port behind the cart HTTP routes.
// Every operation is scoped to userID; rows owned by another user are reported as not found.
type CartAPIService interface {
	List(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Add(ctx context.Context, userID int64, req AddCartItemRequest) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartLine, error)
	Remove(ctx context.Context, userID, itemID int64) error
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AddCartItemRequest holds the body of a create cart item call
type AddCartItemRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// UpdateCartItemRequest holds the body of an update cart item call
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
