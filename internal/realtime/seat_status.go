// Package realtime fans committed seat status changes out to browsing
// clients over Redis pub/sub, one channel per session.  Events carry a
// per-session sequence number so consumers can spot reordering, but
// correctness does not depend on ordered delivery: consumers merge by
// status priority, so a stale "available" can never resurrect a seat
// that was already held or sold.
package realtime

import (
    "context"
    "encoding/json"
    "fmt"
    "log"

    "github.com/redis/go-redis/v9"

    "github.com/stagefront/ticketing/internal/model"
)

// SeatStatusEvent is one status change for one seat.
type SeatStatusEvent struct {
    SessionID uint64           `json:"session_id"`
    SeatID    uint64           `json:"seat_id"`
    Status    model.SeatStatus `json:"status"`
    Seq       int64            `json:"seq"`
}

func channelFor(sessionID uint64) string {
    return fmt.Sprintf("seats:%d", sessionID)
}

func seqKeyFor(sessionID uint64) string {
    return fmt.Sprintf("seats:%d:seq", sessionID)
}

// Publisher publishes seat status changes.  A nil Redis client turns
// every publish into a no-op so the core works without Redis.
type Publisher struct {
    rdb *redis.Client
}

// NewPublisher returns a Publisher; rdb may be nil.
func NewPublisher(rdb *redis.Client) *Publisher { return &Publisher{rdb: rdb} }

// SeatStatusChanged publishes one event.  Best-effort: failures are
// logged and dropped, never surfaced to the reservation flow.
func (p *Publisher) SeatStatusChanged(ctx context.Context, sessionID, seatID uint64, status model.SeatStatus) {
    if p == nil || p.rdb == nil {
        return
    }
    seq, err := p.rdb.Incr(ctx, seqKeyFor(sessionID)).Result()
    if err != nil {
        log.Printf("realtime: seq incr failed for session %d: %v", sessionID, err)
        return
    }
    ev := SeatStatusEvent{SessionID: sessionID, SeatID: seatID, Status: status, Seq: seq}
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("realtime: marshal event failed: %v", err)
        return
    }
    if err := p.rdb.Publish(ctx, channelFor(sessionID), body).Err(); err != nil {
        log.Printf("realtime: publish failed for session %d: %v", sessionID, err)
    }
}

// Subscriber delivers the seat status stream of one session.
type Subscriber struct {
    rdb *redis.Client
}

// NewSubscriber returns a Subscriber bound to the given client.
func NewSubscriber(rdb *redis.Client) *Subscriber { return &Subscriber{rdb: rdb} }

// Subscribe starts consuming the session's channel.  The returned
// channel closes when ctx is cancelled or the stop function is called.
// Malformed payloads are dropped.
func (s *Subscriber) Subscribe(ctx context.Context, sessionID uint64) (<-chan SeatStatusEvent, func(), error) {
    if s == nil || s.rdb == nil {
        return nil, nil, fmt.Errorf("realtime: no redis client configured")
    }
    sub := s.rdb.Subscribe(ctx, channelFor(sessionID))
    // Force the subscription to be established before we return.
    if _, err := sub.Receive(ctx); err != nil {
        _ = sub.Close()
        return nil, nil, err
    }
    out := make(chan SeatStatusEvent)
    go func() {
        defer close(out)
        for msg := range sub.Channel() {
            var ev SeatStatusEvent
            if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
                log.Printf("realtime: drop malformed event: %v", err)
                continue
            }
            select {
            case out <- ev:
            case <-ctx.Done():
                return
            }
        }
    }()
    stop := func() { _ = sub.Close() }
    return out, stop, nil
}
