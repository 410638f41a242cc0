package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/cartsync/internal/adapters/redis_adapter"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/test/helpers"
)

func newTestCartStore(t *testing.T, ttl time.Duration) (*redis_a.CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis_a.NewCartStore(client, "sess-1", ttl, helpers.TestLogger()), mr
}

func TestCartStore_LoadMissingReturnsDefault(t *testing.T) {
	store, _ := newTestCartStore(t, time.Hour)

	cart, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestCartStore(t, time.Hour)

	cart := helpers.CreateTestCart(
		helpers.CreateTestCartItem(func(i *domain.CartItem) { i.ProductID = 7; i.Quantity = 5 }),
	)
	cart.Link(7, 99)

	require.NoError(t, store.Save(ctx, cart))
	assert.True(t, mr.Exists("cart:session:sess-1"))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 5, loaded.Items[0].Quantity)
	assert.Equal(t, int64(99), *loaded.Items[0].ServerItemID)
	assert.True(t, loaded.TotalAmount.Equal(cart.TotalAmount))
	assert.True(t, loaded.TotalAmount.Equal(decimal.NewFromInt(50000)))
}

func TestCartStore_CorruptSnapshotIsFailSoft(t *testing.T) {
	store, mr := newTestCartStore(t, time.Hour)
	require.NoError(t, mr.Set("cart:session:sess-1", `{"items":"nope"}`))

	cart, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartStore_SlidingTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestCartStore(t, time.Minute)
	require.NoError(t, store.Save(ctx, domain.NewCart()))

	mr.FastForward(50 * time.Second)
	_, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("cart:session:sess-1"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("cart:session:sess-1"))
}

func TestCartStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestCartStore(t, time.Hour)
	require.NoError(t, store.Save(ctx, domain.NewCart()))

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("cart:session:sess-1"))
}

func TestCartStore_LoadReportsConnectionErrors(t *testing.T) {
	store, mr := newTestCartStore(t, time.Hour)
	mr.Close()

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}
