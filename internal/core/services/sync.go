// internal/core/services/sync.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// errStaleGeneration aborts remote work started before the last reset
var errStaleGeneration = errors.New("cart generation changed")

func (s *CartService) scheduleLocked() {
	if !s.authenticated {
		return
	}
	s.stopDebounceLocked()
	s.debounce = s.clock.AfterFunc(s.cfg.DebounceWindow, s.onDebounce)
}

// scheduleIfUnsyncedLocked restarts the debounce window after a user mutation
// while any line still waits for a server id or a quantity push.
func (s *CartService) scheduleIfUnsyncedLocked() {
	if len(s.staleQuantity) > 0 {
		s.scheduleLocked()
		return
	}
	for i := range s.cart.Items {
		if !s.cart.Items[i].IsLinked() {
			s.scheduleLocked()
			return
		}
	}
}

func (s *CartService) stopDebounceLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

func (s *CartService) onDebounce() {
	s.mu.Lock()
	s.debounce = nil
	ctx := s.baseCtx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err := s.runPass(ctx); err != nil {
		s.logger.WarnContext(ctx, "background sync pass finished with errors",
			slog.String("error", err.Error()))
	}
}

// SyncNow cancels any pending debounce and runs a sync pass immediately
func (s *CartService) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	s.stopDebounceLocked()
	s.mu.Unlock()
	return s.runPass(ctx)
}

func (s *CartService) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// runPass pushes every unlinked line present at the start of the pass, one at a time,
// then re-pushes linked quantities whose earlier update failed.
func (s *CartService) runPass(ctx context.Context) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return nil
	}
	if s.isSyncing {
		s.resyncRequested = true
		s.mu.Unlock()
		return nil
	}
	s.isSyncing = true
	s.retryCount = 0
	gen := s.generation
	pending := s.cart.UnlinkedItems()
	for _, item := range pending {
		s.inFlight[item.ProductID] = struct{}{}
	}
	var stale []int64
	for id := range s.staleQuantity {
		stale = append(stale, id)
	}
	s.mu.Unlock()

	s.metrics.PassStarted()
	log := s.logger.With(slog.Uint64("generation", gen))
	log.DebugContext(ctx, "sync pass started",
		slog.Int("pending", len(pending)),
		slog.Int("stale", len(stale)))

	var (
		failedIDs []int64
		lastErr   error
		aborted   bool
	)

	for _, snap := range pending {
		if !s.isCurrent(gen) || ctx.Err() != nil {
			aborted = true
			break
		}

		item, ok := s.itemCopy(snap.ProductID)
		if !ok || item.IsLinked() {
			s.clearInFlight(gen, snap.ProductID)
			continue
		}

		serverID, err := s.addWithRetry(ctx, gen, item)
		if err == nil {
			if linkErr := s.linkAfterAdd(ctx, gen, item.ProductID, serverID, item.Quantity); linkErr != nil {
				lastErr = linkErr
			}
			continue
		}

		switch {
		case errors.Is(err, errStaleGeneration), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			aborted = true
		case errors.Is(err, domain.ErrAuthExpired):
			s.forceLogout(ctx, gen)
			s.metrics.PassCompleted("auth_expired")
			return err
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
			s.rejectAdd(ctx, gen, item, err)
			lastErr = err
		default:
			s.markFailed(gen, item.ProductID, err)
			failedIDs = append(failedIDs, item.ProductID)
			lastErr = err
			log.WarnContext(ctx, "item sync failed after retries",
				slog.Int64("product_id", item.ProductID),
				slog.String("error", err.Error()))
		}
		if aborted {
			break
		}
	}

	if !aborted {
		for _, productID := range stale {
			if !s.isCurrent(gen) || ctx.Err() != nil {
				aborted = true
				break
			}
			if err := s.pushQuantity(ctx, gen, productID, 0, false); err != nil {
				if errors.Is(err, domain.ErrAuthExpired) {
					s.metrics.PassCompleted("auth_expired")
					return err
				}
				lastErr = err
			}
		}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.PassCompleted("discarded")
		log.InfoContext(ctx, "sync pass discarded after reset")
		return nil
	}
	s.isSyncing = false
	s.lastSyncAt = s.clock.Now()
	if lastErr != nil {
		s.lastError = lastErr
	} else if !aborted {
		s.lastError = nil
	}
	for _, item := range pending {
		delete(s.inFlight, item.ProductID)
	}
	if s.resyncRequested {
		s.resyncRequested = false
		s.scheduleLocked()
	}
	s.mu.Unlock()

	if len(failedIDs) > 0 {
		s.metrics.PassCompleted("failed")
		s.notify(ctx, domain.Notification{
			Level:   domain.LevelError,
			Event:   domain.EventSyncFailed,
			Message: fmt.Sprintf("%d item(s) could not be synced and will be retried: %s", len(failedIDs), domain.UserMessage(lastErr)),
		})
		return fmt.Errorf("sync pass: %d items failed: %w", len(failedIDs), lastErr)
	}
	if aborted {
		s.metrics.PassCompleted("aborted")
		return ctx.Err()
	}

	s.metrics.PassCompleted("ok")
	log.DebugContext(ctx, "sync pass completed")
	return lastErr
}

// retry runs fn until it succeeds, returns a non-transient error, or MaxRetryCount
// attempts were made. Attempt n waits BaseRetryDelay*n before the next one.
func (s *CartService) retry(ctx context.Context, gen uint64, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRetryCount; attempt++ {
		started := time.Now()
		err = fn()
		s.metrics.ObserveGateway(op, started, err)
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) || attempt == s.cfg.MaxRetryCount {
			break
		}
		if !s.isCurrent(gen) {
			return errStaleGeneration
		}

		s.metrics.Retry()
		s.mu.Lock()
		s.retryCount++
		s.mu.Unlock()

		delay := s.cfg.BaseRetryDelay * time.Duration(attempt)
		s.logger.DebugContext(ctx, "retrying remote call",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		if sleepErr := s.clock.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	s.metrics.Failure(errorKind(err))
	return err
}

func (s *CartService) addWithRetry(ctx context.Context, gen uint64, item domain.CartItem) (int64, error) {
	var serverID int64
	err := s.retry(ctx, gen, "add", func() error {
		id, err := s.gateway.Add(ctx, item.ProductID, item.Quantity, item.Notes)
		if err != nil {
			return err
		}
		serverID = id
		return nil
	})
	return serverID, err
}

// linkAfterAdd attaches serverID to the line created remotely with sentQty units.
// A line removed while the add was in flight has its new server row deleted.
func (s *CartService) linkAfterAdd(ctx context.Context, gen uint64, productID, serverID int64, sentQty int) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	delete(s.inFlight, productID)
	delete(s.failed, productID)

	item, ok := s.cart.Item(productID)
	if !ok {
		s.mu.Unlock()
		s.removeOrphan(ctx, productID, serverID)
		return nil
	}

	s.cart.Link(productID, serverID)
	needPush := item.Quantity != sentQty
	if needPush {
		s.staleQuantity[productID] = struct{}{}
	}
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.metrics.ItemLinked()
	s.publish(snapshot)
	s.logger.DebugContext(ctx, "item linked",
		slog.Int64("product_id", productID),
		slog.Int64("server_item_id", serverID))

	if needPush {
		return s.pushQuantity(ctx, gen, productID, 0, false)
	}
	return nil
}

func (s *CartService) removeOrphan(ctx context.Context, productID, serverID int64) {
	err := s.gateway.Remove(ctx, serverID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to delete orphaned server item",
			slog.Int64("product_id", productID),
			slog.Int64("server_item_id", serverID),
			slog.String("error", err.Error()))
	}
}

// pushQuantity sends the line's current quantity to the server. A vanished server
// row is recreated and relinked. With revert set, a rejected quantity is rolled
// back to prevQty.
func (s *CartService) pushQuantity(ctx context.Context, gen uint64, productID int64, prevQty int, revert bool) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	item, ok := s.cart.Item(productID)
	if !ok || !item.IsLinked() {
		delete(s.staleQuantity, productID)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	started := time.Now()
	err := s.gateway.Update(ctx, *item.ServerItemID, item.Quantity)
	s.metrics.ObserveGateway("update", started, err)

	switch {
	case err == nil:
		s.mu.Lock()
		if gen == s.generation {
			if current, ok := s.cart.Item(productID); ok && current.Quantity == item.Quantity {
				delete(s.staleQuantity, productID)
			}
		}
		s.mu.Unlock()
		return nil

	case errors.Is(err, domain.ErrNotFound):
		s.logger.InfoContext(ctx, "server item vanished, recreating",
			slog.Int64("product_id", productID),
			slog.Int64("server_item_id", *item.ServerItemID))
		return s.recreate(ctx, gen, item)

	case errors.Is(err, domain.ErrValidation):
		s.metrics.Failure(errorKind(err))
		s.mu.Lock()
		if gen == s.generation {
			delete(s.staleQuantity, productID)
			if current, ok := s.cart.Item(productID); revert && prevQty > 0 && ok && current.Quantity == item.Quantity {
				s.cart.SetQuantity(productID, prevQty)
				snapshot := s.commitLocked(ctx)
				s.mu.Unlock()
				s.publish(snapshot)
				return err
			}
		}
		s.mu.Unlock()
		return err

	case errors.Is(err, domain.ErrAuthExpired):
		s.forceLogout(ctx, gen)
		return err

	default:
		s.metrics.Failure(errorKind(err))
		s.mu.Lock()
		if gen == s.generation {
			s.staleQuantity[productID] = struct{}{}
			s.lastError = err
		}
		s.mu.Unlock()
		return err
	}
}

// recreate adds the line again after its server row disappeared and replaces the server id
func (s *CartService) recreate(ctx context.Context, gen uint64, item domain.CartItem) error {
	serverID, err := s.addWithRetry(ctx, gen, item)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			s.forceLogout(ctx, gen)
			return err
		}
		s.mu.Lock()
		if gen == s.generation {
			s.cart.Unlink(item.ProductID)
			delete(s.staleQuantity, item.ProductID)
			s.failed[item.ProductID] = struct{}{}
			s.lastError = err
			snapshot := s.commitLocked(ctx)
			s.scheduleLocked()
			s.mu.Unlock()
			s.publish(snapshot)
			return err
		}
		s.mu.Unlock()
		return err
	}
	delete(s.staleQuantity, item.ProductID)
	return s.linkAfterAdd(ctx, gen, item.ProductID, serverID, item.Quantity)
}

// rejectAdd reverts the local creation of a line the server refused
func (s *CartService) rejectAdd(ctx context.Context, gen uint64, item domain.CartItem, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.cart.Remove(item.ProductID)
	s.forgetLocked(item.ProductID)
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.publish(snapshot)
	s.notifyFailure(ctx, domain.EventChangeRejected, item.ProductID, err)
}

func (s *CartService) markFailed(gen uint64, productID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	delete(s.inFlight, productID)
	if _, ok := s.cart.Item(productID); ok {
		s.failed[productID] = struct{}{}
	}
	s.lastError = err
}

func (s *CartService) clearInFlight(gen uint64, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		delete(s.inFlight, productID)
	}
}

func (s *CartService) recordFailure(ctx context.Context, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.lastError = err
	}
	s.logger.WarnContext(ctx, "remote cart call failed", slog.String("error", err.Error()))
}

// forceLogout resets the cart after the server rejected the session
func (s *CartService) forceLogout(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	snapshot := s.cart.Clone()
	hook := s.onAuthExpired
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "session expired, cart reset")
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear local cart", slog.String("error", err.Error()))
	}
	s.publish(snapshot)
	s.notify(ctx, domain.Notification{
		Level:   domain.LevelError,
		Event:   domain.EventSessionExpired,
		Message: domain.UserMessage(domain.ErrAuthExpired),
	})
	if hook != nil {
		hook(ctx)
	}
}

// ReloadFromServer replaces the cart with the authoritative server cart
func (s *CartService) ReloadFromServer(ctx context.Context) error {
	return s.loadFromServer(ctx, false)
}

// MergeUnsynced loads the server cart and re-adds every unlinked local line on top of it
func (s *CartService) MergeUnsynced(ctx context.Context) error {
	return s.loadFromServer(ctx, true)
}

func (s *CartService) loadFromServer(ctx context.Context, merge bool) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return fmt.Errorf("load server cart: %w", domain.ErrAuthExpired)
	}
	gen := s.generation
	s.mu.Unlock()

	started := time.Now()
	lines, err := s.gateway.List(ctx)
	s.metrics.ObserveGateway("list", started, err)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			s.forceLogout(ctx, gen)
		}
		return fmt.Errorf("failed to list server cart: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	var unsynced []domain.CartItem
	if merge {
		unsynced = s.cart.UnlinkedItems()
	}

	s.generation++
	s.isSyncing = false
	s.resyncRequested = false
	s.stopDebounceLocked()
	s.resetCartLocked()
	s.cart = domain.CartFromRemote(lines)

	for _, item := range unsynced {
		before, _ := s.cart.Item(item.ProductID)
		merged := s.cart.AddItem(item)
		if merged.IsLinked() && merged.Quantity != before.Quantity {
			s.staleQuantity[item.ProductID] = struct{}{}
		}
	}
	snapshot := s.commitLocked(ctx)
	if len(unsynced) > 0 {
		s.scheduleLocked()
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "cart loaded from server",
		slog.Int("server_items", len(lines)),
		slog.Int("merged_local_items", len(unsynced)))
	s.publish(snapshot)
	return nil
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrAuthExpired):
		return "auth_expired"
	default:
		return "transient"
	}
}
