// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// memoryGateway is an in-process cart API for benchmarks
type memoryGateway struct {
	mu     sync.Mutex
	nextID int64
	lines  map[int64]domain.RemoteCartItem
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{lines: make(map[int64]domain.RemoteCartItem)}
}

func (g *memoryGateway) List(context.Context) ([]domain.RemoteCartItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.RemoteCartItem, 0, len(g.lines))
	for _, l := range g.lines {
		out = append(out, l)
	}
	return out, nil
}

func (g *memoryGateway) Add(_ context.Context, productID int64, quantity int, notes string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.lines[g.nextID] = domain.RemoteCartItem{
		ID:        g.nextID,
		ProductID: productID,
		Quantity:  quantity,
		Notes:     notes,
		Product:   benchProduct(productID),
	}
	return g.nextID, nil
}

func (g *memoryGateway) Update(_ context.Context, serverItemID int64, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.lines[serverItemID]
	if !ok {
		return domain.ErrNotFound
	}
	l.Quantity = quantity
	g.lines[serverItemID] = l
	return nil
}

func (g *memoryGateway) Remove(_ context.Context, serverItemID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lines, serverItemID)
	return nil
}

func (g *memoryGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lines = make(map[int64]domain.RemoteCartItem)
}

func benchProduct(productID int64) domain.Product {
	return domain.Product{
		ID:     productID,
		Name:   fmt.Sprintf("Bench Product %d", productID),
		Price:  decimal.NewFromInt(1000 + productID*10),
		Unit:   "pcs",
		Active: true,
	}
}

// createLargeCart builds a cart of n linked lines
func createLargeCart(n int) domain.Cart {
	lines := make([]domain.RemoteCartItem, n)
	for i := range lines {
		id := int64(i + 1)
		lines[i] = domain.RemoteCartItem{
			ID:        1000 + id,
			ProductID: id,
			Quantity:  1 + i%5,
			Product:   benchProduct(id),
		}
	}
	return domain.CartFromRemote(lines)
}
