package client

import (
	"sync"

	"github.com/stagefront/ticketing/internal/model"
	"github.com/stagefront/ticketing/internal/realtime"
)

// SeatStateView holds the tab's picture of seat statuses for one
// session.  Updates arrive out of order from the status feed, so each
// seat only ever moves toward a more committed status: available can
// become held or sold, held can become sold or go back to available,
// but a stale lower-priority event never overwrites a newer sold.
//
// Events carry a per-session sequence number; a seat ignores any event
// whose sequence is not newer than the last one it applied, and falls
// back to status priority when sequences are missing.
type SeatStateView struct {
	mu    sync.RWMutex
	seats map[uint64]seatCell
}

type seatCell struct {
	status model.SeatStatus
	seq    int64
}

func NewSeatStateView() *SeatStateView {
	return &SeatStateView{seats: make(map[uint64]seatCell)}
}

// Prime seeds the view from an availability snapshot fetched over the
// read API.  Seeded entries carry sequence 0 so any live event wins.
func (v *SeatStateView) Prime(seats []model.Seat) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range seats {
		if cur, ok := v.seats[s.ID]; ok && cur.seq > 0 {
			continue // live events already arrived for this seat
		}
		v.seats[s.ID] = seatCell{status: s.Status}
	}
}

// Apply merges one status event into the view and reports whether the
// seat's visible status changed.
func (v *SeatStateView) Apply(ev realtime.SeatStatusEvent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur, ok := v.seats[ev.SeatID]
	if ok {
		if ev.Seq != 0 && cur.seq != 0 {
			if ev.Seq <= cur.seq {
				return false
			}
		} else if ev.Status.Priority() < cur.status.Priority() {
			return false
		}
	}
	changed := !ok || cur.status != ev.Status
	v.seats[ev.SeatID] = seatCell{status: ev.Status, seq: ev.Seq}
	return changed
}

// Status returns the seat's current status, defaulting to available
// for seats the view has never heard about.
func (v *SeatStateView) Status(seatID uint64) model.SeatStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if cell, ok := v.seats[seatID]; ok {
		return cell.status
	}
	return model.SeatAvailable
}
