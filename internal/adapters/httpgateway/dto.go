// internal/adapters/httpgateway/dto.go
package httpgateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammerola/cartsync/internal/core/domain"
)

type listResponse struct {
	Items []cartItemDTO `json:"items"`
}

type cartItemDTO struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Notes     string      `json:"notes"`
	Product   *productDTO `json:"product"`
}

type productDTO struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	ImageURL      string           `json:"image_url"`
	Unit          string           `json:"unit"`
	Active        *bool            `json:"active"`
}

type addRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Validate rejects payloads that cannot become a cart line
func (d cartItemDTO) Validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("cart item id is missing")
	}
	if d.ProductID <= 0 {
		return fmt.Errorf("cart item %d: product_id is missing", d.ID)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("cart item %d: quantity must be positive", d.ID)
	}
	if d.Product == nil {
		return fmt.Errorf("cart item %d: product is missing", d.ID)
	}
	return d.Product.validate(d.ProductID)
}

func (p productDTO) validate(productID int64) error {
	if p.ID != 0 && p.ID != productID {
		return fmt.Errorf("product id %d does not match product_id %d", p.ID, productID)
	}
	if p.Price == nil {
		return fmt.Errorf("product %d: price is missing", productID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %d: price is negative", productID)
	}
	if p.DiscountPrice != nil && p.DiscountPrice.IsNegative() {
		return fmt.Errorf("product %d: discount_price is negative", productID)
	}
	return nil
}

func (d cartItemDTO) toDomain() domain.RemoteCartItem {
	active := true
	if d.Product.Active != nil {
		active = *d.Product.Active
	}
	return domain.RemoteCartItem{
		ID:        d.ID,
		ProductID: d.ProductID,
		Quantity:  domain.ClampQuantity(d.Quantity),
		Notes:     d.Notes,
		Product: domain.Product{
			ID:            d.ProductID,
			Name:          d.Product.Name,
			Price:         *d.Product.Price,
			DiscountPrice: d.Product.DiscountPrice,
			ImageURL:      d.Product.ImageURL,
			Unit:          d.Product.Unit,
			Active:        active,
		},
	}
}
