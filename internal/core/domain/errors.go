// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the remote cart gateway
var (
	ErrTransientNetwork = errors.New("transient network error")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrAuthExpired      = errors.New("authentication expired")
)

// ErrItemNotInCart is returned when an operation targets a product absent from the cart
var ErrItemNotInCart = errors.New("item not in cart")

// GatewayError carries the classification and detail of a failed remote call
type GatewayError struct {
	Op      string
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewGatewayError builds a GatewayError of the given kind
func NewGatewayError(op string, kind error, status int, message string, err error) *GatewayError {
	return &GatewayError{Op: op, Kind: kind, Status: status, Message: message, Err: err}
}

// IsRetryable reports whether err may succeed on a later attempt.
// Unclassified errors are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientNetwork) {
		return true
	}
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrValidation) &&
		!errors.Is(err, ErrAuthExpired)
}

// UserMessage returns a human readable message for err
func UserMessage(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" && errors.Is(err, ErrValidation) {
		return gwErr.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "The cart change was rejected by the server"
	case errors.Is(err, ErrAuthExpired):
		return "Your session has expired, please sign in again"
	case errors.Is(err, ErrNotFound):
		return "The cart item no longer exists"
	default:
		return "Could not reach the cart service, changes are saved locally"
	}
}
