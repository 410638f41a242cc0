// internal/adapters/redis_adapter/cart_store.go
package redis_a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// CartStore keeps one session's cart snapshot in Redis under cart:session:<id>.
// Every Load and Save slides the key's expiration forward.
type CartStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.LocalCartStore = (*CartStore)(nil)

// NewCartStore creates a Redis backed local cart store for sessionID
func NewCartStore(client redis.Cmdable, sessionID string, ttl time.Duration, logger *slog.Logger) *CartStore {
	return &CartStore{
		client: client,
		key:    SessionCartKey(sessionID),
		ttl:    ttl,
		logger: logger.With(
			slog.String("component", "redis_cart_store"),
			slog.String("session_id", sessionID)),
	}
}

// SessionCartKey returns the Redis key holding a session's cart
func SessionCartKey(sessionID string) string {
	return BuildKey(PrefixCart, string(PrefixSession), sessionID)
}

// Load returns the stored snapshot, or the empty cart when the key is absent or corrupt
func (s *CartStore) Load(ctx context.Context) (domain.Cart, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.NewCart(), nil
		}
		return domain.NewCart(), fmt.Errorf("redis get cart: %w", err)
	}

	cart, err := domain.DecodeCart(data)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt cart snapshot", slog.String("error", err.Error()))
		return domain.NewCart(), nil
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "failed to refresh cart ttl", slog.String("error", err.Error()))
		}
	}
	return cart, nil
}

// Save overwrites the stored snapshot
func (s *CartStore) Save(ctx context.Context, cart domain.Cart) error {
	data, err := domain.EncodeCart(cart)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Clear deletes the stored snapshot
func (s *CartStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
