// Package repository implements the persistence boundary on MySQL.  The
// inventory ledger lives here: capacity checks and releases are single
// conditional UPDATE statements so that two concurrent requests for the
// last unit of a category, or for the same seat, can never both succeed.
// Sentinel errors below let the service layer distinguish failure
// scenarios without inspecting SQL details.
package repository

import "errors"

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrCategoryNotFound is returned when a session category id does not exist.
var ErrCategoryNotFound = errors.New("session category not found")

// ErrBlockNotFound is returned when a block id does not exist.
var ErrBlockNotFound = errors.New("block not found")

// ErrSeatNotFound is returned when a seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrItemNotFound is returned when a reservation item id does not exist
// or belongs to a different reservation.
var ErrItemNotFound = errors.New("reservation item not found")
