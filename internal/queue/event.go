// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Reservation lifecycle event types carried on the broker.
const (
    EventReservationCancelled = "reservation.cancelled"
    EventReservationExpired   = "reservation.expired"
    EventReservationCompleted = "reservation.completed"
)

// ReservationQueueName is the durable queue all lifecycle events share.
const ReservationQueueName = "reservation.lifecycle"

// ReservationEvent is published whenever a reservation reaches a
// terminal state.  It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the
// primary database.
type ReservationEvent struct {
    Type            string `json:"type"`
    ReservationID   string `json:"reservation_id"`
    SessionID       uint64 `json:"session_id"`
    TotalQuantity   uint32 `json:"total_quantity"`
    TotalPriceCents uint64 `json:"total_price_cents"`
    OccurredAt      string `json:"occurred_at"`
}
