// internal/core/domain/cart.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity bounds for a single cart line
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// CartItem represents a single product line in the cart
type CartItem struct {
	ProductID         int64            `json:"productId"`
	ServerItemID      *int64           `json:"serverItemId,omitempty"`
	Name              string           `json:"name"`
	UnitPrice         decimal.Decimal  `json:"unitPrice"`
	OriginalUnitPrice *decimal.Decimal `json:"originalUnitPrice,omitempty"`
	Quantity          int              `json:"quantity"`
	ImageRef          string           `json:"imageRef,omitempty"`
	Unit              string           `json:"unit,omitempty"`
	Notes             string           `json:"notes,omitempty"`
}

// IsLinked reports whether the item has a server-side counterpart
func (i CartItem) IsLinked() bool {
	return i.ServerItemID != nil
}

// Subtotal returns unit price times quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) clone() CartItem {
	out := i
	if i.ServerItemID != nil {
		id := *i.ServerItemID
		out.ServerItemID = &id
	}
	if i.OriginalUnitPrice != nil {
		p := *i.OriginalUnitPrice
		out.OriginalUnitPrice = &p
	}
	return out
}

// Cart is the client-held cart snapshot.
// TotalAmount is derived from Items and must never be set directly.
type Cart struct {
	Items         []CartItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Notes         string          `json:"notes,omitempty"`
	SavedForLater []CartItem      `json:"savedForLater"`
}

// NewCart returns the empty default cart
func NewCart() Cart {
	return Cart{
		Items:         []CartItem{},
		TotalAmount:   decimal.Zero,
		ShippingFee:   decimal.Zero,
		Tax:           decimal.Zero,
		Discount:      decimal.Zero,
		SavedForLater: []CartItem{},
	}
}

// ClampQuantity bounds q to [MinQuantity, MaxQuantity]
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Clone returns a deep copy of the cart
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	for i := range c.Items {
		out.Items[i] = c.Items[i].clone()
	}
	out.SavedForLater = make([]CartItem, len(c.SavedForLater))
	for i := range c.SavedForLater {
		out.SavedForLater[i] = c.SavedForLater[i].clone()
	}
	return out
}

// IsEmpty reports whether the cart holds no items
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) indexOf(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Item returns a copy of the item for productID
func (c Cart) Item(productID int64) (CartItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx].clone(), true
}

// AddItem adds item to the cart. A duplicate product merges quantities into
// the existing line instead of creating a second one. Returns the resulting line.
func (c *Cart) AddItem(item CartItem) CartItem {
	defer c.Recalculate()

	if idx := c.indexOf(item.ProductID); idx >= 0 {
		c.Items[idx].Quantity = ClampQuantity(c.Items[idx].Quantity + item.Quantity)
		if item.Notes != "" {
			c.Items[idx].Notes = item.Notes
		}
		return c.Items[idx].clone()
	}

	item = item.clone()
	item.Quantity = ClampQuantity(item.Quantity)
	c.Items = append(c.Items, item)
	return item.clone()
}

// SetQuantity sets the clamped quantity of productID and returns the previous value
func (c *Cart) SetQuantity(productID int64, quantity int) (int, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return 0, false
	}
	prev := c.Items[idx].Quantity
	c.Items[idx].Quantity = ClampQuantity(quantity)
	c.Recalculate()
	return prev, true
}

// SetItemNotes replaces the notes of a single line
func (c *Cart) SetItemNotes(productID int64, notes string) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items[idx].Notes = notes
	return true
}

// Link attaches a server item id to productID
func (c *Cart) Link(productID, serverItemID int64) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	id := serverItemID
	c.Items[idx].ServerItemID = &id
	return true
}

// Unlink clears the server item id of productID
func (c *Cart) Unlink(productID int64) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items[idx].ServerItemID = nil
	return true
}

// Remove deletes productID from the cart and returns the removed line
func (c *Cart) Remove(productID int64) (CartItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	removed := c.Items[idx]
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.Recalculate()
	return removed, true
}

// SaveForLater moves productID from the active items to the saved list.
// The moved line loses its server link since saved items are local only.
func (c *Cart) SaveForLater(productID int64) (CartItem, bool) {
	item, ok := c.Remove(productID)
	if !ok {
		return CartItem{}, false
	}
	item.ServerItemID = nil
	for i := range c.SavedForLater {
		if c.SavedForLater[i].ProductID == productID {
			c.SavedForLater[i] = item
			return item.clone(), true
		}
	}
	c.SavedForLater = append(c.SavedForLater, item)
	return item.clone(), true
}

// MoveToCart moves a saved line back to the active items, merging on duplicates
func (c *Cart) MoveToCart(productID int64) (CartItem, bool) {
	for i := range c.SavedForLater {
		if c.SavedForLater[i].ProductID == productID {
			item := c.SavedForLater[i]
			c.SavedForLater = append(c.SavedForLater[:i], c.SavedForLater[i+1:]...)
			return c.AddItem(item), true
		}
	}
	return CartItem{}, false
}

// UnlinkedItems returns copies of every line without a server item id
func (c Cart) UnlinkedItems() []CartItem {
	var out []CartItem
	for i := range c.Items {
		if !c.Items[i].IsLinked() {
			out = append(out, c.Items[i].clone())
		}
	}
	return out
}

// LinkedItems returns copies of every line with a server item id
func (c Cart) LinkedItems() []CartItem {
	var out []CartItem
	for i := range c.Items {
		if c.Items[i].IsLinked() {
			out = append(out, c.Items[i].clone())
		}
	}
	return out
}

// Recalculate recomputes TotalAmount from the items
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal())
	}
	c.TotalAmount = total
}

// ApplyShipping recomputes the shipping fee with the given policy
func (c *Cart) ApplyShipping(policy ShippingPolicy) {
	c.ShippingFee = policy.FeeFor(c)
}

// ItemCount returns the total number of units in the cart
func (c Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// GrandTotal returns total + shipping + tax - discount, floored at zero
func (c Cart) GrandTotal() decimal.Decimal {
	total := c.TotalAmount.Add(c.ShippingFee).Add(c.Tax).Sub(c.Discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Normalize repairs a decoded snapshot: nil slices become empty, quantities are
// clamped and TotalAmount is recomputed from the items.
func (c *Cart) Normalize() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	if c.SavedForLater == nil {
		c.SavedForLater = []CartItem{}
	}
	for i := range c.Items {
		c.Items[i].Quantity = ClampQuantity(c.Items[i].Quantity)
	}
	for i := range c.SavedForLater {
		c.SavedForLater[i].Quantity = ClampQuantity(c.SavedForLater[i].Quantity)
	}
	c.Recalculate()
}

// Validate checks the structural invariants of a cart snapshot
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID <= 0 {
			return fmt.Errorf("item has invalid product id %d", item.ProductID)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("duplicate product id %d", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("product %d has negative unit price", item.ProductID)
		}
	}
	return nil
}

// ShippingPolicy derives the shipping fee from the cart contents
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// DefaultShippingPolicy ships free above 200000, otherwise charges 20000
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeThreshold: decimal.NewFromInt(200000),
		FlatFee:       decimal.NewFromInt(20000),
	}
}

// FeeFor returns the shipping fee for c. Empty carts ship for free.
func (p ShippingPolicy) FeeFor(c *Cart) decimal.Decimal {
	if c.IsEmpty() || c.TotalAmount.GreaterThan(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}
