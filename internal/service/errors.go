// Package service contains the reservation manager: the transactional
// orchestration of reservations against the inventory ledger.  Errors
// here are the typed results of the manager's operations; handlers map
// them onto HTTP statuses and clients are forced to handle the
// capacity-race case explicitly.
package service

import (
	"errors"
	"fmt"
)

// ErrSessionNotSellable is returned by Create when the session is not
// on sale or has no capacity left.  Fatal to the selection flow.
var ErrSessionNotSellable = errors.New("session is not sellable")

// ErrInvalidState is returned when an operation other than cancel is
// attempted on an expired, cancelled or completed reservation.
var ErrInvalidState = errors.New("reservation is not active")

// ErrInvalidItem is returned for malformed item requests: zero
// quantity, both or neither of category/seat set, a unit from a
// different session, or a quantity change on a seat item.
var ErrInvalidItem = errors.New("invalid reservation item")

// ErrOrderLimit is returned when a change would push the reservation's
// total quantity past the per-reservation cap.
var ErrOrderLimit = errors.New("reservation item limit exceeded")

// ErrCategoryLimit is returned when a change would exceed a category's
// per-order maximum.
var ErrCategoryLimit = errors.New("category per-order limit exceeded")

// CapacityError reports a lost race for inventory.  Available carries
// the remaining capacity the ledger observed, so the caller can
// reconcile its optimistic view and let the buyer adjust.
type CapacityError struct {
	Available uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: %d available", e.Available)
}

// AsCapacityError unwraps a CapacityError from err, if present.
func AsCapacityError(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
