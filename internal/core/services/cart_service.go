// internal/core/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/pkg/clock"
	"github.com/ammerola/cartsync/internal/pkg/metrics"
)

// CartServiceConfig tunes the synchronization controller
type CartServiceConfig struct {
	DebounceWindow time.Duration
	BaseRetryDelay time.Duration
	MaxRetryCount  int
	Shipping       domain.ShippingPolicy
}

// DefaultCartServiceConfig returns a one second quiet window and linear one second backoff
func DefaultCartServiceConfig() CartServiceConfig {
	return CartServiceConfig{
		DebounceWindow: time.Second,
		BaseRetryDelay: time.Second,
		MaxRetryCount:  domain.MaxRetryCount,
		Shipping:       domain.DefaultShippingPolicy(),
	}
}

// Option customizes a CartService
type Option func(*CartService)

// WithClock replaces the wall clock used for debounce and retry backoff
func WithClock(c clock.Clock) Option {
	return func(s *CartService) { s.clock = c }
}

// WithMetrics records sync activity on m
func WithMetrics(m *metrics.Sync) Option {
	return func(s *CartService) { s.metrics = m }
}

// CartService owns the client-held cart and reconciles it with the remote cart.
//
// Local mutations are applied and persisted under mu in arrival order. Gateway calls
// are made without holding mu; their results are discarded when the generation has
// moved on since the call was issued.
type CartService struct {
	store    ports.LocalCartStore
	gateway  ports.RemoteCartGateway
	notifier ports.Notifier
	clock    clock.Clock
	metrics  *metrics.Sync
	logger   *slog.Logger
	cfg      CartServiceConfig

	mu              sync.Mutex
	cart            domain.Cart
	authenticated   bool
	userID          int64
	generation      uint64
	isSyncing       bool
	resyncRequested bool
	debounce        clock.Timer
	inFlight        map[int64]struct{}
	failed          map[int64]struct{}
	staleQuantity   map[int64]struct{}
	lastError       error
	retryCount      int
	lastSyncAt      time.Time
	listeners       map[int]func(domain.Cart)
	nextListener    int
	onAuthExpired   func(ctx context.Context)
	baseCtx         context.Context
	cancel          context.CancelFunc
}

// NewCartService creates a new cart service. notifier may be nil.
func NewCartService(
	store ports.LocalCartStore,
	gateway ports.RemoteCartGateway,
	notifier ports.Notifier,
	cfg CartServiceConfig,
	logger *slog.Logger,
	opts ...Option,
) *CartService {
	defaults := DefaultCartServiceConfig()
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = defaults.DebounceWindow
	}
	if cfg.BaseRetryDelay < 0 {
		cfg.BaseRetryDelay = defaults.BaseRetryDelay
	}
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = defaults.MaxRetryCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &CartService{
		store:         store,
		gateway:       gateway,
		notifier:      notifier,
		clock:         clock.New(),
		logger:        logger.With(slog.String("service", "cart")),
		cfg:           cfg,
		cart:          domain.NewCart(),
		inFlight:      make(map[int64]struct{}),
		failed:        make(map[int64]struct{}),
		staleQuantity: make(map[int64]struct{}),
		listeners:     make(map[int]func(domain.Cart)),
		baseCtx:       ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores the cart from the local store
func (s *CartService) Init(ctx context.Context) error {
	cart, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	cart.Normalize()
	cart.ApplyShipping(s.cfg.Shipping)

	s.mu.Lock()
	s.cart = cart
	snapshot := s.cart.Clone()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "cart restored",
		slog.Int("items", len(snapshot.Items)),
		slog.String("total", snapshot.TotalAmount.String()))

	s.publish(snapshot)
	return nil
}

// Teardown stops the debounce timer and cancels background passes
func (s *CartService) Teardown() {
	s.mu.Lock()
	s.stopDebounceLocked()
	s.listeners = make(map[int]func(domain.Cart))
	s.mu.Unlock()
	s.cancel()
}

// Subscribe registers fn to receive a snapshot after every applied change
func (s *CartService) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// OnAuthExpired registers the hook run after a forced logout
func (s *CartService) OnAuthExpired(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuthExpired = fn
}

// SetSession marks the cart as owned by an authenticated user
func (s *CartService) SetSession(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.userID = userID
}

// IsAuthenticated reports whether remote sync is active
func (s *CartService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Snapshot returns a copy of the current cart
func (s *CartService) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// SyncState returns the current reconciliation state
func (s *CartService) SyncState() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[int64]struct{})
	failed := make(map[int64]struct{})
	for _, item := range s.cart.UnlinkedItems() {
		if _, ok := s.failed[item.ProductID]; ok {
			failed[item.ProductID] = struct{}{}
			continue
		}
		pending[item.ProductID] = struct{}{}
	}

	return domain.SyncState{
		Pending:    domain.SortedIDs(pending),
		Failed:     domain.SortedIDs(failed),
		IsSyncing:  s.isSyncing,
		LastError:  s.lastError,
		RetryCount: s.retryCount,
		LastSyncAt: s.lastSyncAt,
		Generation: s.generation,
	}
}

// ItemState derives the synchronization state of a single line
func (s *CartService) ItemState(productID int64) domain.ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cart.Item(productID)
	switch {
	case !ok:
		return domain.ItemUnknown
	case item.IsLinked():
		return domain.ItemLinked
	}
	if _, failed := s.failed[productID]; failed {
		return domain.ItemFailed
	}
	if s.authenticated {
		return domain.ItemPendingSync
	}
	return domain.ItemLocalOnly
}

// AddItem adds quantity units of the product to the cart, merging into an existing line
func (s *CartService) AddItem(ctx context.Context, product domain.ProductSnapshot, quantity int, notes string) (domain.CartItem, error) {
	if err := product.Validate(); err != nil {
		return domain.CartItem{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	prev, existed := s.cart.Item(product.ProductID)
	item := s.cart.AddItem(product.ToCartItem(quantity, notes))
	snapshot := s.commitLocked(ctx)
	gen := s.generation
	remote := s.authenticated && item.IsLinked() && item.Quantity != prev.Quantity
	s.scheduleIfUnsyncedLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	s.logger.DebugContext(ctx, "item added",
		slog.Int64("product_id", item.ProductID),
		slog.Int("quantity", item.Quantity),
		slog.Bool("merged", existed))
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelSuccess,
		Event:     domain.EventItemAdded,
		ProductID: item.ProductID,
		Message:   fmt.Sprintf("%s added to cart", item.Name),
	})

	if remote {
		if err := s.pushQuantity(ctx, gen, item.ProductID, prev.Quantity, true); err != nil {
			s.notifyFailure(ctx, domain.EventItemUpdated, item.ProductID, err)
			current, _ := s.itemCopy(item.ProductID)
			return current, fmt.Errorf("failed to sync quantity: %w", err)
		}
	}

	current, ok := s.itemCopy(item.ProductID)
	if !ok {
		return item, nil
	}
	return current, nil
}

// UpdateQuantity sets the clamped quantity of a line and pushes it when the line is linked
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	prev, ok := s.cart.SetQuantity(productID, quantity)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update product %d: %w", productID, domain.ErrItemNotInCart)
	}
	item, _ := s.cart.Item(productID)
	snapshot := s.commitLocked(ctx)
	gen := s.generation
	remote := s.authenticated && item.IsLinked() && prev != item.Quantity
	s.scheduleIfUnsyncedLocked()
	s.mu.Unlock()

	s.publish(snapshot)

	if !remote {
		return nil
	}
	if err := s.pushQuantity(ctx, gen, productID, prev, true); err != nil {
		s.notifyFailure(ctx, domain.EventItemUpdated, productID, err)
		return fmt.Errorf("failed to sync quantity: %w", err)
	}
	return nil
}

// RemoveItem deletes a line. Linked lines are deleted remotely first and only
// removed locally once the remote delete succeeded.
func (s *CartService) RemoveItem(ctx context.Context, productID int64) error {
	return s.detach(ctx, productID, domain.EventItemRemoved, func(c *domain.Cart) (domain.CartItem, bool) {
		return c.Remove(productID)
	})
}

// SaveForLater moves a line to the saved list, deleting its server row first when linked
func (s *CartService) SaveForLater(ctx context.Context, productID int64) error {
	return s.detach(ctx, productID, domain.EventItemRemoved, func(c *domain.Cart) (domain.CartItem, bool) {
		return c.SaveForLater(productID)
	})
}

func (s *CartService) detach(ctx context.Context, productID int64, event string, apply func(*domain.Cart) (domain.CartItem, bool)) error {
	s.mu.Lock()
	item, ok := s.cart.Item(productID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("remove product %d: %w", productID, domain.ErrItemNotInCart)
	}

	if !item.IsLinked() || !s.authenticated {
		apply(&s.cart)
		s.forgetLocked(productID)
		snapshot := s.commitLocked(ctx)
		s.scheduleIfUnsyncedLocked()
		s.mu.Unlock()
		s.publish(snapshot)
		return nil
	}
	gen := s.generation
	serverID := *item.ServerItemID
	s.mu.Unlock()

	err := s.retry(ctx, gen, "remove", func() error {
		return s.gateway.Remove(ctx, serverID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		if errors.Is(err, domain.ErrAuthExpired) {
			s.forceLogout(ctx, gen)
			return err
		}
		if errors.Is(err, errStaleGeneration) {
			return nil
		}
		s.recordFailure(ctx, gen, err)
		s.notifyFailure(ctx, event, productID, err)
		return fmt.Errorf("failed to remove item remotely: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	apply(&s.cart)
	s.forgetLocked(productID)
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.publish(snapshot)
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelSuccess,
		Event:     event,
		ProductID: productID,
		Message:   fmt.Sprintf("%s removed from cart", item.Name),
	})
	return nil
}

// MoveToCart moves a saved line back into the active items
func (s *CartService) MoveToCart(ctx context.Context, productID int64) error {
	s.mu.Lock()
	prev, _ := s.cart.Item(productID)
	item, ok := s.cart.MoveToCart(productID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("move product %d: %w", productID, domain.ErrItemNotInCart)
	}
	snapshot := s.commitLocked(ctx)
	gen := s.generation
	remote := s.authenticated && item.IsLinked() && item.Quantity != prev.Quantity
	s.scheduleIfUnsyncedLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	if remote {
		if err := s.pushQuantity(ctx, gen, productID, prev.Quantity, false); err != nil {
			return fmt.Errorf("failed to sync quantity: %w", err)
		}
	}
	return nil
}

// ClearCart empties the cart. When authenticated every linked line is deleted
// remotely first; lines whose remote delete failed stay in the cart.
func (s *CartService) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	if !s.authenticated {
		s.resetCartLocked()
		snapshot := s.commitLocked(ctx)
		s.mu.Unlock()
		s.publish(snapshot)
		return nil
	}
	gen := s.generation
	linked := s.cart.LinkedItems()
	s.mu.Unlock()

	kept := make(map[int64]struct{})
	var firstErr error
	for _, item := range linked {
		serverID := *item.ServerItemID
		err := s.retry(ctx, gen, "remove", func() error {
			return s.gateway.Remove(ctx, serverID)
		})
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if errors.Is(err, domain.ErrAuthExpired) {
			s.forceLogout(ctx, gen)
			return err
		}
		if errors.Is(err, errStaleGeneration) {
			return nil
		}
		kept[item.ProductID] = struct{}{}
		if firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	if len(kept) == 0 {
		s.resetCartLocked()
	} else {
		for _, item := range s.cart.Clone().Items {
			if _, keep := kept[item.ProductID]; !keep {
				s.cart.Remove(item.ProductID)
				s.forgetLocked(item.ProductID)
			}
		}
		s.lastError = firstErr
	}
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.publish(snapshot)
	if firstErr != nil {
		s.notifyFailure(ctx, domain.EventCartCleared, 0, firstErr)
		return fmt.Errorf("failed to clear %d remote items: %w", len(kept), firstErr)
	}
	s.notify(ctx, domain.Notification{
		Level:   domain.LevelSuccess,
		Event:   domain.EventCartCleared,
		Message: "Cart cleared",
	})
	return nil
}

// UpdateItemNotes replaces the notes of a line. Notes are local only.
func (s *CartService) UpdateItemNotes(ctx context.Context, productID int64, notes string) error {
	s.mu.Lock()
	if !s.cart.SetItemNotes(productID, notes) {
		s.mu.Unlock()
		return fmt.Errorf("update notes of product %d: %w", productID, domain.ErrItemNotInCart)
	}
	snapshot := s.commitLocked(ctx)
	s.scheduleIfUnsyncedLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return nil
}

// SetCartNotes replaces the cart level notes
func (s *CartService) SetCartNotes(ctx context.Context, notes string) error {
	s.mu.Lock()
	s.cart.Notes = notes
	snapshot := s.commitLocked(ctx)
	s.scheduleIfUnsyncedLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return nil
}

// Reset drops the session and returns the cart to its empty default, clearing the store
func (s *CartService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.resetLocked()
	snapshot := s.cart.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear local cart: %w", err)
	}
	s.logger.InfoContext(ctx, "cart reset")
	return nil
}

// resetLocked ends the session and invalidates every in-flight remote result
func (s *CartService) resetLocked() {
	s.generation++
	s.authenticated = false
	s.userID = 0
	s.isSyncing = false
	s.resyncRequested = false
	s.stopDebounceLocked()
	s.resetCartLocked()
	s.lastError = nil
	s.retryCount = 0
}

func (s *CartService) resetCartLocked() {
	s.cart = domain.NewCart()
	s.inFlight = make(map[int64]struct{})
	s.failed = make(map[int64]struct{})
	s.staleQuantity = make(map[int64]struct{})
}

func (s *CartService) forgetLocked(productID int64) {
	delete(s.inFlight, productID)
	delete(s.failed, productID)
	delete(s.staleQuantity, productID)
}

// commitLocked recomputes derived totals and persists the cart.
// Persistence failures are logged; the in-memory change stands.
func (s *CartService) commitLocked(ctx context.Context) domain.Cart {
	s.cart.Recalculate()
	s.cart.ApplyShipping(s.cfg.Shipping)
	if err := s.store.Save(context.WithoutCancel(ctx), s.cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart", slog.String("error", err.Error()))
	}
	return s.cart.Clone()
}

func (s *CartService) itemCopy(productID int64) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Item(productID)
}

func (s *CartService) publish(snapshot domain.Cart) {
	s.mu.Lock()
	listeners := make([]func(domain.Cart), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}

func (s *CartService) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}
	if n.UserID == 0 {
		s.mu.Lock()
		n.UserID = s.userID
		s.mu.Unlock()
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		s.logger.WarnContext(ctx, "notification dropped",
			slog.String("event", n.Event),
			slog.String("error", err.Error()))
	}
}

func (s *CartService) notifyFailure(ctx context.Context, event string, productID int64, err error) {
	s.logger.ErrorContext(ctx, "cart operation failed",
		slog.String("event", event),
		slog.Int64("product_id", productID),
		slog.String("error", err.Error()))
	s.notify(ctx, domain.Notification{
		Level:     domain.LevelError,
		Event:     event,
		ProductID: productID,
		Message:   domain.UserMessage(err),
	})
}
