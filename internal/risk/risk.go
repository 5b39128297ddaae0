// Package risk holds pre-submit guards for order intents.
package risk

import (
	"errors"
	"fmt"
)

// ErrQtyLimit is returned when an intent exceeds the configured quantity cap.
var ErrQtyLimit = errors.New("quantity above limit")

// Limits caps the size of a single intent.
type Limits struct {
	MaxOrderQty int
}

// Allow reports whether qty fits under the cap. A zero cap disables the check.
func (l Limits) Allow(qty int) bool {
	return qty > 0 && (l.MaxOrderQty <= 0 || qty <= l.MaxOrderQty)
}

// Check wraps ErrQtyLimit when Allow fails.
func (l Limits) Check(qty int) error {
	if !l.Allow(qty) {
		return fmt.Errorf("qty %d (max %d): %w", qty, l.MaxOrderQty, ErrQtyLimit)
	}
	return nil
}
