package model

import "time"

// SessionStatus enumerates the sale states of a session.  Only sessions
// in the on_sale state accept new reservations; the other states are
// managed by back-office processes and are read-only to this service.
type SessionStatus string

const (
    SessionOnSale  SessionStatus = "on_sale"
    SessionSoldOut SessionStatus = "sold_out"
    SessionClosed  SessionStatus = "closed"
)

// LayoutType describes how a session sells its inventory.  Quantity
// sessions sell undifferentiated capacity per category; block and
// seat_map sessions sell individually identified seats grouped into
// blocks.
type LayoutType string

const (
    LayoutQuantity LayoutType = "quantity"
    LayoutBlock    LayoutType = "block"
    LayoutSeatMap  LayoutType = "seat_map"
)

// Session is one sellable occurrence of an event.  The service only
// reads sessions; creation and status changes happen elsewhere.
//
// Fields:
//  ID                 – primary key identifier.
//  EventID            – event this session belongs to.
//  Status             – sale state (on_sale, sold_out, closed).
//  LayoutType         – quantity, block or seat_map.
//  AvailableCapacity  – units currently available across the session.
//                       Never negative; decremented on successful holds
//                       and restored on release/expiry/cancel.
//  ReservationMinutes – hold window copied onto each new reservation.
//  StartsAt           – when the session takes place.
type Session struct {
    ID                 uint64        // sessions.id
    EventID            uint64        // sessions.event_id
    Status             SessionStatus // sessions.status
    LayoutType         LayoutType    // sessions.layout_type
    AvailableCapacity  uint32        // sessions.available_capacity
    ReservationMinutes uint32        // sessions.reservation_minutes
    StartsAt           time.Time     // sessions.starts_at
    CreatedAt          time.Time     // sessions.created_at
    UpdatedAt          time.Time     // sessions.updated_at
}

// Sellable reports whether new reservations may be created against the
// session: it must be on sale and have capacity left.
func (s *Session) Sellable() bool {
    return s.Status == SessionOnSale && s.AvailableCapacity > 0
}

// HoldDuration returns the reservation window as a time.Duration.
func (s *Session) HoldDuration() time.Duration {
    return time.Duration(s.ReservationMinutes) * time.Minute
}
