// internal/core/services/session.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// LoginPolicy decides what happens to the guest cart on login
type LoginPolicy string

const (
	// LoginPolicyReplace discards the guest cart in favor of the server cart
	LoginPolicyReplace LoginPolicy = "replace"
	// LoginPolicyMerge re-adds unsynced guest lines on top of the server cart
	LoginPolicyMerge LoginPolicy = "merge"
)

// ParseLoginPolicy parses a policy name; empty means replace
func ParseLoginPolicy(name string) (LoginPolicy, error) {
	switch LoginPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", LoginPolicyReplace:
		return LoginPolicyReplace, nil
	case LoginPolicyMerge:
		return LoginPolicyMerge, nil
	default:
		return "", fmt.Errorf("unknown login policy %q", name)
	}
}

// SessionState is the identity state observed by the SessionObserver
type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// SessionCart is the part of the cart controller driven by session transitions
type SessionCart interface {
	SetSession(userID int64)
	ReloadFromServer(ctx context.Context) error
	MergeUnsynced(ctx context.Context) error
	Reset(ctx context.Context) error
	OnAuthExpired(fn func(ctx context.Context))
}

// SessionObserver translates guest/authenticated transitions into cart reloads and resets
type SessionObserver struct {
	cart   SessionCart
	policy LoginPolicy
	logger *slog.Logger

	mu     sync.Mutex
	state  SessionState
	userID int64
}

// NewSessionObserver creates an observer in the anonymous state and registers it
// as the cart's auth-expired hook
func NewSessionObserver(cart SessionCart, policy LoginPolicy, logger *slog.Logger) *SessionObserver {
	if policy == "" {
		policy = LoginPolicyReplace
	}
	o := &SessionObserver{
		cart:   cart,
		policy: policy,
		logger: logger.With(slog.String("component", "session_observer")),
		state:  SessionAnonymous,
	}
	cart.OnAuthExpired(o.HandleAuthExpired)
	return o
}

// State returns the observed session state and user id
func (o *SessionObserver) State() (SessionState, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.userID
}

// Login moves to the authenticated state and loads the server cart.
// Logging in again as the same user is a no-op; switching users resets first.
func (o *SessionObserver) Login(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id %d", userID)
	}

	o.mu.Lock()
	if o.state == SessionAuthenticated && o.userID == userID {
		o.mu.Unlock()
		return nil
	}
	switching := o.state == SessionAuthenticated
	o.state = SessionAuthenticated
	o.userID = userID
	o.mu.Unlock()

	if switching {
		if err := o.cart.Reset(ctx); err != nil {
			o.logger.ErrorContext(ctx, "failed to reset cart on user switch", slog.String("error", err.Error()))
		}
	}

	o.cart.SetSession(userID)
	o.logger.InfoContext(ctx, "user logged in",
		slog.Int64("user_id", userID),
		slog.String("policy", string(o.policy)))

	var err error
	if o.policy == LoginPolicyMerge {
		err = o.cart.MergeUnsynced(ctx)
	} else {
		err = o.cart.ReloadFromServer(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load cart after login: %w", err)
	}
	return nil
}

// Restore resumes a session persisted by a previous process without reloading the cart
func (o *SessionObserver) Restore(userID int64) {
	if userID <= 0 {
		return
	}
	o.mu.Lock()
	o.state = SessionAuthenticated
	o.userID = userID
	o.mu.Unlock()
	o.cart.SetSession(userID)
}

// Logout resets the cart and clears the local store immediately
func (o *SessionObserver) Logout(ctx context.Context) error {
	return o.logout(ctx, "user logged out")
}

// HandleAuthExpired moves the observer to anonymous after a forced logout.
// The cart has already reset itself and cleared the store by the time it runs.
func (o *SessionObserver) HandleAuthExpired(ctx context.Context) {
	if userID, ok := o.signOut(); ok {
		o.logger.InfoContext(ctx, "session expired", slog.Int64("user_id", userID))
	}
}

func (o *SessionObserver) signOut() (int64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == SessionAnonymous {
		return 0, false
	}
	userID := o.userID
	o.state = SessionAnonymous
	o.userID = 0
	return userID, true
}

func (o *SessionObserver) logout(ctx context.Context, reason string) error {
	userID, ok := o.signOut()
	if !ok {
		return nil
	}

	o.logger.InfoContext(ctx, reason, slog.Int64("user_id", userID))
	if err := o.cart.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset cart: %w", err)
	}
	return nil
}
