// internal/core/services/cart_api.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// MaxNotesLength bounds the notes attached to a server cart line
const MaxNotesLength = 500

// CartAPIService implements the per-user remote cart behind the HTTP routes
type CartAPIService struct {
	repo     ports.CartRepository
	cache    ports.CacheRepository
	notifier ports.Notifier
	cacheTTL time.Duration
	logger   *slog.Logger
}

// Statically assert that *CartAPIService implements the CartAPIService interface.
var _ ports.CartAPIService = (*CartAPIService)(nil)

// NewCartAPIService creates a new cart API service. cache and notifier may be nil.
func NewCartAPIService(repo ports.CartRepository, cache ports.CacheRepository, notifier ports.Notifier, cacheTTL time.Duration, logger *slog.Logger) *CartAPIService {
	return &CartAPIService{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		cacheTTL: cacheTTL,
		logger:   logger.With(slog.String("service", "cart_api")),
	}
}

// CartCacheKey returns the cache key of a user's cart listing
func CartCacheKey(userID int64) string {
	return "cart:user:" + strconv.FormatInt(userID, 10)
}

// List returns the user's cart lines, served from cache when possible
func (s *CartAPIService) List(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	key := CartCacheKey(userID)

	if s.cache != nil {
		var cached []domain.CartLine
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache read failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()))
		}
	}

	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, key, lines, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "cart cache write failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
	return lines, nil
}

// Add creates a cart line or merges the quantity into the user's existing line for the product
func (s *CartAPIService) Add(ctx context.Context, userID int64, req ports.AddCartItemRequest) (*domain.CartLine, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, fmt.Errorf("%w: notes must be at most %d characters", domain.ErrValidation, MaxNotesLength)
	}
	if req.ProductID <= 0 {
		return nil, fmt.Errorf("%w: product_id is required", domain.ErrValidation)
	}

	product, err := s.repo.FindProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d does not exist", domain.ErrValidation, req.ProductID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Active {
		return nil, fmt.Errorf("%w: product %d is not available", domain.ErrValidation, req.ProductID)
	}

	line, err := s.repo.Upsert(ctx, userID, req.ProductID, req.Quantity, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "cart item added",
		slog.Int64("user_id", userID),
		slog.Int64("item_id", line.ID),
		slog.Int64("product_id", line.ProductID),
		slog.Int("quantity", line.Quantity))
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelSuccess,
		Event:     domain.EventItemAdded,
		UserID:    userID,
		ProductID: line.ProductID,
		Message:   fmt.Sprintf("%s added to cart", product.Name),
	})
	return line, nil
}

// UpdateQuantity sets the quantity of one of the user's lines
func (s *CartAPIService) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartLine, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	line, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	line.Quantity = quantity

	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "cart item updated",
		slog.Int64("user_id", userID),
		slog.Int64("item_id", itemID),
		slog.Int("quantity", quantity))
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelInfo,
		Event:     domain.EventItemUpdated,
		UserID:    userID,
		ProductID: line.ProductID,
		Message:   fmt.Sprintf("Quantity updated to %d", quantity),
	})
	return line, nil
}

// Remove deletes one of the user's lines
func (s *CartAPIService) Remove(ctx context.Context, userID, itemID int64) error {
	line, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "cart item removed",
		slog.Int64("user_id", userID),
		slog.Int64("item_id", itemID))
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelInfo,
		Event:     domain.EventItemRemoved,
		UserID:    userID,
		ProductID: line.ProductID,
		Message:   "Item removed from cart",
	})
	return nil
}

// Authenticate resolves a bearer token into its user
func (s *CartAPIService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrAuthExpired
	}
	user, err := s.repo.FindUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAuthExpired
		}
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return user, nil
}

// owned loads a line and hides lines belonging to other users
func (s *CartAPIService) owned(ctx context.Context, userID, itemID int64) (*domain.CartLine, error) {
	line, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}
	if line.UserID != userID {
		return nil, fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}
	return line, nil
}

func (s *CartAPIService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CartCacheKey(userID)); err != nil {
		s.logger.WarnContext(ctx, "cart cache invalidation failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

func (s *CartAPIService) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	n.CreatedAt = time.Now()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dropped",
			slog.String("event", n.Event),
			slog.String("error", err.Error()))
	}
}

func validateQuantity(q int) error {
	if q < domain.MinQuantity || q > domain.MaxQuantity {
		return fmt.Errorf("%w: quantity must be between %d and %d", domain.ErrValidation, domain.MinQuantity, domain.MaxQuantity)
	}
	return nil
}
