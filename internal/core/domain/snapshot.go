// internal/core/domain/snapshot.go
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SnapshotKey is the single local storage key holding the cart snapshot
const SnapshotKey = "cart"

// ErrCorruptSnapshot is returned by DecodeCart when the payload is not a usable cart
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// EncodeCart serializes the full cart snapshot
func EncodeCart(c Cart) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

// DecodeCart parses a snapshot written by EncodeCart.
// The payload must be an object whose items field is an array.
func DecodeCart(data []byte) (Cart, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return NewCart(), fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	items, ok := shape["items"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(items), []byte("[")) {
		return NewCart(), fmt.Errorf("%w: items is not an array", ErrCorruptSnapshot)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return NewCart(), fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := cart.Validate(); err != nil {
		return NewCart(), fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	cart.Normalize()
	return cart, nil
}
