// internal/core/domain/remote.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view of a sellable product
type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	Unit          string           `json:"unit,omitempty"`
	Active        bool             `json:"active"`
}

// EffectivePrice returns the discount price when present, else the list price
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.LessThan(p.Price) {
		return *p.DiscountPrice
	}
	return p.Price
}

// IsDiscounted reports whether the effective price differs from the list price
func (p Product) IsDiscounted() bool {
	return !p.EffectivePrice().Equal(p.Price)
}

// Snapshot converts the product into the catalog snapshot used to build cart lines
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		ImageRef:      p.ImageURL,
		Unit:          p.Unit,
	}
}

// ProductSnapshot is what the catalog hands to the cart when a product is added
type ProductSnapshot struct {
	ProductID     int64
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	ImageRef      string
	Unit          string
}

// Validate checks the snapshot can become a cart line
func (s ProductSnapshot) Validate() error {
	if s.ProductID <= 0 {
		return fmt.Errorf("product_id must be positive")
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	if s.DiscountPrice != nil && s.DiscountPrice.IsNegative() {
		return fmt.Errorf("discount_price cannot be negative")
	}
	return nil
}

// ToCartItem builds an unlinked cart line from the snapshot
func (s ProductSnapshot) ToCartItem(quantity int, notes string) CartItem {
	p := Product{ID: s.ProductID, Price: s.Price, DiscountPrice: s.DiscountPrice}
	item := CartItem{
		ProductID: s.ProductID,
		Name:      s.Name,
		UnitPrice: p.EffectivePrice(),
		Quantity:  ClampQuantity(quantity),
		ImageRef:  s.ImageRef,
		Unit:      s.Unit,
		Notes:     notes,
	}
	if p.IsDiscounted() {
		list := s.Price
		item.OriginalUnitPrice = &list
	}
	return item
}

// RemoteCartItem is one line of the authoritative server cart
type RemoteCartItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Notes     string  `json:"notes,omitempty"`
	Product   Product `json:"product"`
}

// ToCartItem converts the server line into a linked local cart line
func (r RemoteCartItem) ToCartItem() CartItem {
	item := r.Product.Snapshot().ToCartItem(r.Quantity, r.Notes)
	item.ProductID = r.ProductID
	if item.Name == "" {
		item.Name = fmt.Sprintf("Product %d", r.ProductID)
	}
	id := r.ID
	item.ServerItemID = &id
	return item
}

// CartFromRemote builds a cart whose items are exactly the given server lines
func CartFromRemote(lines []RemoteCartItem) Cart {
	cart := NewCart()
	// duplicate products merge into the first line and keep its server id
	for _, line := range lines {
		cart.AddItem(line.ToCartItem())
	}
	return cart
}

// CartLine is the server-side persisted cart row
type CartLine struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Notes     string    `json:"notes,omitempty"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToRemote strips server-only fields from the row
func (l CartLine) ToRemote() RemoteCartItem {
	return RemoteCartItem{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Notes:     l.Notes,
		Product:   l.Product,
	}
}

// User is an account of the remote cart API
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
