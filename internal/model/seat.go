package model

import "time"

// SeatStatus enumerates the availability states of an individual seat.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "available"
    SeatHeld      SeatStatus = "held"
    SeatSold      SeatStatus = "sold"
)

// Priority orders seat statuses for realtime merging.  A status update
// may only replace a lower-priority one, so an out-of-order "available"
// event can never resurrect a seat that was already held or sold.
func (s SeatStatus) Priority() int {
    switch s {
    case SeatSold:
        return 2
    case SeatHeld:
        return 1
    default:
        return 0
    }
}

// Seat is an individually addressable unit within a block-layout
// session.  Exactly one active reservation may hold a seat at a time;
// HeldBy records the holding reservation while the seat is held.
//
// Fields:
//  ID         – primary key identifier.
//  SessionID  – session the seat sells under (denormalized from block).
//  BlockID    – block the seat belongs to.
//  RowLabel   – row label within the block.
//  Number     – seat number within the row.
//  Status     – available, held or sold.
//  PriceCents – price of this seat in cents.
//  HeldBy     – reservation currently holding the seat, if any.
//  HeldAt     – when the current hold was placed, if any.
type Seat struct {
    ID         uint64     // seats.id
    SessionID  uint64     // seats.session_id
    BlockID    uint64     // seats.block_id
    RowLabel   string     // seats.row_label
    Number     uint32     // seats.number
    Status     SeatStatus // seats.status
    PriceCents uint32     // seats.price_cents
    HeldBy     *string    // seats.held_by (nullable reservation id)
    HeldAt     *time.Time // seats.held_at (nullable)
    CreatedAt  time.Time  // seats.created_at
    UpdatedAt  time.Time  // seats.updated_at
}

// Block groups seats for display and lazy loading.  Geometry is a
// presentation concern and is not stored here.
type Block struct {
    ID        uint64    // blocks.id
    SessionID uint64    // blocks.session_id
    Name      string    // blocks.name
    SeatCount uint32    // blocks.seat_count
    CreatedAt time.Time // blocks.created_at
}
