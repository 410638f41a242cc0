// internal/adapters/localstore/memory.go
package localstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// Memory keeps the encoded snapshot in process memory
type Memory struct {
	mu      sync.Mutex
	payload []byte
	saves   int
	logger  *slog.Logger
}

var _ ports.LocalCartStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{logger: logger.With(slog.String("component", "memory_cart_store"))}
}

func (m *Memory) Load(ctx context.Context) (domain.Cart, error) {
	m.mu.Lock()
	payload := m.payload
	m.mu.Unlock()

	if payload == nil {
		return domain.NewCart(), nil
	}
	cart, err := domain.DecodeCart(payload)
	if err != nil {
		m.logger.WarnContext(ctx, "discarding corrupt cart snapshot", slog.String("error", err.Error()))
		return domain.NewCart(), nil
	}
	return cart, nil
}

func (m *Memory) Save(_ context.Context, cart domain.Cart) error {
	payload, err := domain.EncodeCart(cart)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = payload
	m.saves++
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = nil
	return nil
}

// SetRaw replaces the stored payload as is
func (m *Memory) SetRaw(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte(nil), payload...)
}

// Raw returns the stored payload, nil when cleared
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return nil
	}
	return append([]byte(nil), m.payload...)
}

// Saves returns how many snapshots were written
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
