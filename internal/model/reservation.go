package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// A reservation is mutable only while active; the three other states
// are terminal.
type ReservationStatus string

const (
    ReservationActive    ReservationStatus = "active"
    ReservationExpired   ReservationStatus = "expired"
    ReservationCancelled ReservationStatus = "cancelled"
    ReservationCompleted ReservationStatus = "completed"
)

// Reservation is a time-boxed hold of inventory for one buyer.  While
// active, the quantities and seats of its items are excluded from other
// buyers' availability.  It terminates by explicit completion, explicit
// cancellation, or the expiry sweep once the hold window has elapsed.
//
// Fields:
//  ID        – uuid identifier.
//  SessionID – session the reservation holds inventory against.
//  OwnerID   – optional authenticated owner; empty for anonymous tabs.
//  Status    – active, expired, cancelled or completed.
//  ExpiresAt – created_at plus the session's hold window.
//  Items     – current line items (loaded on reads).
type Reservation struct {
    ID        string            // reservations.id
    SessionID uint64            // reservations.session_id
    OwnerID   string            // reservations.owner_id (empty = anonymous)
    Status    ReservationStatus // reservations.status
    ExpiresAt time.Time         // reservations.expires_at
    CreatedAt time.Time         // reservations.created_at
    UpdatedAt time.Time         // reservations.updated_at
    Items     []ReservationItem
}

// Terminal reports whether the reservation is in a final state.
func (r *Reservation) Terminal() bool {
    return r.Status != ReservationActive
}

// Overdue reports whether the hold window has elapsed at the given
// instant.  The sweep and the lazy expiry check both use this; the
// status transition itself is performed atomically in the store.
func (r *Reservation) Overdue(now time.Time) bool {
    return !now.Before(r.ExpiresAt)
}

// TotalQuantity sums the quantities of all items.
func (r *Reservation) TotalQuantity() uint32 {
    var n uint32
    for _, it := range r.Items {
        n += it.Quantity
    }
    return n
}

// TotalPriceCents sums quantity times unit price across all items.
func (r *Reservation) TotalPriceCents() uint64 {
    var total uint64
    for _, it := range r.Items {
        total += uint64(it.Quantity) * uint64(it.UnitPriceCents)
    }
    return total
}

// ReservationItem is one line within a reservation: either a quantity
// of a session category, or a single seat.  Exactly one of CategoryID
// and SeatID is set; seat items always have quantity 1.
type ReservationItem struct {
    ID             uint64    // reservation_items.id
    ReservationID  string    // reservation_items.reservation_id
    CategoryID     *uint64   // reservation_items.category_id (nullable)
    SeatID         *uint64   // reservation_items.seat_id (nullable)
    Quantity       uint32    // reservation_items.quantity
    UnitPriceCents uint32    // reservation_items.unit_price_cents
    CreatedAt      time.Time // reservation_items.created_at
}

// IsSeat reports whether the item holds an individual seat.
func (i *ReservationItem) IsSeat() bool { return i.SeatID != nil }
