package model

import "time"

// SessionCategory is a priced tier within a quantity-layout session,
// e.g. "Adult", "Student".  Remaining is the authoritative counter the
// ledger decrements on successful holds; it never drops below zero.
//
// Fields:
//  ID          – primary key identifier.
//  SessionID   – session this category belongs to.
//  Name        – display name of the tier.
//  PriceCents  – unit price in cents.
//  MaxPerOrder – per-reservation cap for this category (0 = no cap).
//  Total       – total capacity of the tier.
//  Remaining   – capacity not currently held or sold.
type SessionCategory struct {
    ID          uint64    // session_categories.id
    SessionID   uint64    // session_categories.session_id
    Name        string    // session_categories.name
    PriceCents  uint32    // session_categories.price_cents
    MaxPerOrder uint32    // session_categories.max_per_order
    Total       uint32    // session_categories.total
    Remaining   uint32    // session_categories.remaining
    CreatedAt   time.Time // session_categories.created_at
    UpdatedAt   time.Time // session_categories.updated_at
}
