package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/core/domain"
)

func newItem(productID int64, price int64, qty int) domain.CartItem {
	return domain.CartItem{
		ProductID: productID,
		Name:      fmt.Sprintf("Product %d", productID),
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
	}
}

func expectedTotal(c domain.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "zero_becomes_one", in: 0, want: 1},
		{name: "negative_becomes_one", in: -4, want: 1},
		{name: "in_range_unchanged", in: 42, want: 42},
		{name: "upper_bound", in: 99, want: 99},
		{name: "above_upper_bound", in: 150, want: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ClampQuantity(tt.in))
		})
	}
}

func TestCart_AddItem_MergesDuplicates(t *testing.T) {
	cart := domain.NewCart()

	cart.AddItem(newItem(7, 10000, 2))
	merged := cart.AddItem(newItem(7, 10000, 3))

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(50000)))
}

func TestCart_AddItem_ClampsMergedQuantity(t *testing.T) {
	cart := domain.NewCart()

	cart.AddItem(newItem(1, 100, 90))
	cart.AddItem(newItem(1, 100, 20))

	assert.Equal(t, domain.MaxQuantity, cart.Items[0].Quantity)
}

func TestCart_SetQuantity(t *testing.T) {
	tests := []struct {
		name string
		qty  int
		want int
	}{
		{name: "zero_behaves_as_one", qty: 0, want: 1},
		{name: "over_max_behaves_as_99", qty: 150, want: 99},
		{name: "regular", qty: 12, want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := domain.NewCart()
			cart.AddItem(newItem(3, 250, 4))

			prev, ok := cart.SetQuantity(3, tt.qty)

			require.True(t, ok)
			assert.Equal(t, 4, prev)
			assert.Equal(t, tt.want, cart.Items[0].Quantity)
			assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(int64(250*tt.want))))
		})
	}

	t.Run("missing_product", func(t *testing.T) {
		cart := domain.NewCart()
		_, ok := cart.SetQuantity(3, 2)
		assert.False(t, ok)
	})
}

func TestCart_TotalAlwaysMatchesItems(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cart := domain.NewCart()

	for i := 0; i < 500; i++ {
		productID := int64(rng.Intn(8) + 1)
		switch rng.Intn(3) {
		case 0:
			cart.AddItem(newItem(productID, int64(rng.Intn(50000)), rng.Intn(120)-10))
		case 1:
			cart.SetQuantity(productID, rng.Intn(200)-50)
		case 2:
			cart.Remove(productID)
		}

		require.True(t, cart.TotalAmount.Equal(expectedTotal(cart)), "step %d", i)
		seen := map[int64]bool{}
		for _, item := range cart.Items {
			require.False(t, seen[item.ProductID], "duplicate product %d", item.ProductID)
			seen[item.ProductID] = true
			require.GreaterOrEqual(t, item.Quantity, domain.MinQuantity)
			require.LessOrEqual(t, item.Quantity, domain.MaxQuantity)
		}
	}
}

func TestCart_Remove(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 100, 1))
	cart.AddItem(newItem(2, 200, 2))

	removed, ok := cart.Remove(1)

	require.True(t, ok)
	assert.Equal(t, int64(1), removed.ProductID)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(400)))

	_, ok = cart.Remove(1)
	assert.False(t, ok)
}

func TestCart_LinkAndUnlink(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 100, 1))
	cart.AddItem(newItem(2, 100, 1))

	require.True(t, cart.Link(1, 99))

	item, _ := cart.Item(1)
	require.NotNil(t, item.ServerItemID)
	assert.Equal(t, int64(99), *item.ServerItemID)
	assert.Len(t, cart.LinkedItems(), 1)
	assert.Len(t, cart.UnlinkedItems(), 1)

	*item.ServerItemID = 5
	again, _ := cart.Item(1)
	assert.Equal(t, int64(99), *again.ServerItemID, "Item must return a copy")

	require.True(t, cart.Unlink(1))
	assert.Empty(t, cart.LinkedItems())
	assert.False(t, cart.Link(404, 1))
}

func TestCart_SaveForLaterAndMoveBack(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 100, 2))
	cart.Link(1, 10)

	saved, ok := cart.SaveForLater(1)
	require.True(t, ok)
	assert.Nil(t, saved.ServerItemID)
	assert.Empty(t, cart.Items)
	require.Len(t, cart.SavedForLater, 1)
	assert.True(t, cart.TotalAmount.IsZero())

	moved, ok := cart.MoveToCart(1)
	require.True(t, ok)
	assert.Equal(t, 2, moved.Quantity)
	assert.Empty(t, cart.SavedForLater)
	assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(200)))

	_, ok = cart.MoveToCart(1)
	assert.False(t, ok)
}

func TestCart_CloneIsDeep(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 100, 2))
	cart.Link(1, 10)

	clone := cart.Clone()
	clone.Items[0].Quantity = 50
	*clone.Items[0].ServerItemID = 11

	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(10), *cart.Items[0].ServerItemID)
}

func TestCart_ShippingAndGrandTotal(t *testing.T) {
	policy := domain.DefaultShippingPolicy()

	tests := []struct {
		name         string
		items        []domain.CartItem
		discount     int64
		wantShipping int64
		wantGrand    int64
	}{
		{name: "empty_cart_ships_free", wantShipping: 0, wantGrand: 0},
		{
			name:         "below_threshold_pays_flat_fee",
			items:        []domain.CartItem{newItem(1, 50000, 2)},
			wantShipping: 20000,
			wantGrand:    120000,
		},
		{
			name:         "exactly_threshold_still_pays",
			items:        []domain.CartItem{newItem(1, 100000, 2)},
			wantShipping: 20000,
			wantGrand:    220000,
		},
		{
			name:         "above_threshold_ships_free",
			items:        []domain.CartItem{newItem(1, 100001, 2)},
			wantShipping: 0,
			wantGrand:    200002,
		},
		{
			name:         "discount_never_goes_negative",
			items:        []domain.CartItem{newItem(1, 100, 1)},
			discount:     1000000,
			wantShipping: 20000,
			wantGrand:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := domain.NewCart()
			for _, item := range tt.items {
				cart.AddItem(item)
			}
			cart.Discount = decimal.NewFromInt(tt.discount)
			cart.ApplyShipping(policy)

			assert.True(t, cart.ShippingFee.Equal(decimal.NewFromInt(tt.wantShipping)), "shipping %s", cart.ShippingFee)
			assert.True(t, cart.GrandTotal().Equal(decimal.NewFromInt(tt.wantGrand)), "grand %s", cart.GrandTotal())
		})
	}
}

func TestCart_ItemCount(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 100, 2))
	cart.AddItem(newItem(2, 100, 3))

	assert.Equal(t, 5, cart.ItemCount())
}

func TestCart_ReadersWorkOnReturnedValues(t *testing.T) {
	build := func() domain.Cart {
		cart := domain.NewCart()
		cart.AddItem(newItem(1, 100, 2))
		cart.AddItem(newItem(2, 300, 1))
		cart.Link(2, 55)
		return cart
	}

	item, ok := build().Item(1)
	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity)

	_, ok = build().Item(9)
	assert.False(t, ok)

	assert.False(t, build().IsEmpty())
	assert.True(t, domain.NewCart().IsEmpty())
	assert.Equal(t, 3, build().ItemCount())
	assert.Len(t, build().UnlinkedItems(), 1)
	assert.Len(t, build().LinkedItems(), 1)
	assert.True(t, build().GrandTotal().GreaterThanOrEqual(decimal.NewFromInt(500)))
	assert.NoError(t, build().Validate())
}

func TestCart_JSONRoundTrip(t *testing.T) {
	cart := domain.NewCart()
	cart.AddItem(newItem(1, 12345, 2))
	cart.AddItem(newItem(2, 999, 1))
	cart.Link(2, 77)
	cart.Notes = "leave at the door"
	cart.ApplyShipping(domain.DefaultShippingPolicy())

	payload, err := json.Marshal(cart)
	require.NoError(t, err)

	var decoded domain.Cart
	require.NoError(t, json.Unmarshal(payload, &decoded))
	decoded.Normalize()

	require.Len(t, decoded.Items, 2)
	assert.Equal(t, cart.Items[0].Quantity, decoded.Items[0].Quantity)
	assert.True(t, cart.TotalAmount.Equal(decoded.TotalAmount))
	assert.True(t, cart.ShippingFee.Equal(decoded.ShippingFee))
	assert.Equal(t, int64(77), *decoded.Items[1].ServerItemID)
	assert.Equal(t, cart.Notes, decoded.Notes)
}

func TestCart_Validate(t *testing.T) {
	cart := domain.NewCart()
	cart.Items = []domain.CartItem{newItem(1, 100, 1), newItem(1, 100, 1)}
	assert.Error(t, cart.Validate())

	cart.Items = []domain.CartItem{newItem(0, 100, 1)}
	assert.Error(t, cart.Validate())

	cart.Items = []domain.CartItem{newItem(1, -1, 1)}
	assert.Error(t, cart.Validate())

	cart.Items = []domain.CartItem{newItem(1, 100, 1)}
	assert.NoError(t, cart.Validate())
}

func TestProductSnapshot_ToCartItem(t *testing.T) {
	discount := decimal.NewFromInt(8000)
	snap := domain.ProductSnapshot{
		ProductID:     7,
		Name:          "Rice",
		Price:         decimal.NewFromInt(10000),
		DiscountPrice: &discount,
		Unit:          "kg",
	}

	item := snap.ToCartItem(150, "")

	assert.Equal(t, 99, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(discount))
	require.NotNil(t, item.OriginalUnitPrice)
	assert.True(t, item.OriginalUnitPrice.Equal(decimal.NewFromInt(10000)))
	assert.Nil(t, item.ServerItemID)

	snap.DiscountPrice = nil
	item = snap.ToCartItem(1, "")
	assert.Nil(t, item.OriginalUnitPrice)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(10000)))
}

func TestCartFromRemote(t *testing.T) {
	lines := []domain.RemoteCartItem{
		{ID: 10, ProductID: 1, Quantity: 2, Product: domain.Product{ID: 1, Name: "A", Price: decimal.NewFromInt(100)}},
		{ID: 11, ProductID: 2, Quantity: 1, Product: domain.Product{ID: 2, Price: decimal.NewFromInt(50)}},
	}

	cart := domain.CartFromRemote(lines)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(10), *cart.Items[0].ServerItemID)
	assert.Equal(t, "Product 2", cart.Items[1].Name)
	assert.True(t, cart.TotalAmount.Equal(decimal.NewFromInt(250)))
}

func TestGatewayError_Classification(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("sync item: %w", domain.NewGatewayError("add", domain.ErrTransientNetwork, 0, "", cause))

	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, domain.IsRetryable(err))

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "add", gwErr.Op)

	assert.False(t, domain.IsRetryable(domain.NewGatewayError("update", domain.ErrNotFound, 404, "", nil)))
	assert.False(t, domain.IsRetryable(nil))
	assert.True(t, domain.IsRetryable(errors.New("unclassified")))
}

func TestUserMessage(t *testing.T) {
	validation := domain.NewGatewayError("add", domain.ErrValidation, 422, "product is inactive", nil)
	assert.Equal(t, "product is inactive", domain.UserMessage(validation))
	assert.Contains(t, domain.UserMessage(domain.ErrAuthExpired), "session has expired")
	assert.Contains(t, domain.UserMessage(errors.New("boom")), "saved locally")
}

func TestDecodeCart(t *testing.T) {
	valid := domain.NewCart()
	valid.AddItem(newItem(7, 10000, 5))
	payload, err := domain.EncodeCart(valid)
	require.NoError(t, err)

	tests := []struct {
		name      string
		payload   string
		wantItems int
		wantError bool
	}{
		{name: "valid_snapshot", payload: string(payload), wantItems: 1},
		{name: "not_json", payload: "{oops", wantError: true},
		{name: "items_is_object", payload: `{"items":{"a":1}}`, wantError: true},
		{name: "items_missing", payload: `{"notes":"x"}`, wantError: true},
		{name: "items_null", payload: `{"items":null}`, wantError: true},
		{name: "duplicate_products", payload: `{"items":[{"productId":1,"quantity":1},{"productId":1,"quantity":2}]}`, wantError: true},
		{name: "empty_items", payload: `{"items":[]}`, wantItems: 0},
		{name: "quantity_repaired", payload: `{"items":[{"productId":1,"unitPrice":"10","quantity":500}]}`, wantItems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := domain.DecodeCart([]byte(tt.payload))
			if tt.wantError {
				require.ErrorIs(t, err, domain.ErrCorruptSnapshot)
				assert.Empty(t, cart.Items)
				assert.NotNil(t, cart.Items)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cart.Items, tt.wantItems)
			assert.True(t, cart.TotalAmount.Equal(expectedTotal(cart)))
			for _, item := range cart.Items {
				assert.LessOrEqual(t, item.Quantity, domain.MaxQuantity)
			}
		})
	}
}
