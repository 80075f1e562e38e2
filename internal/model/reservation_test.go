package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationTerminal(t *testing.T) {
	for status, terminal := range map[ReservationStatus]bool{
		ReservationActive:    false,
		ReservationExpired:   true,
		ReservationCancelled: true,
		ReservationCompleted: true,
	} {
		r := Reservation{Status: status}
		assert.Equal(t, terminal, r.Terminal(), "status %s", status)
	}
}

func TestReservationOverdue(t *testing.T) {
	deadline := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	r := Reservation{ExpiresAt: deadline}

	assert.False(t, r.Overdue(deadline.Add(-time.Second)))
	// The deadline instant itself counts as overdue.
	assert.True(t, r.Overdue(deadline))
	assert.True(t, r.Overdue(deadline.Add(time.Second)))
}

func TestReservationTotals(t *testing.T) {
	cid := uint64(1)
	sid := uint64(100)
	r := Reservation{Items: []ReservationItem{
		{CategoryID: &cid, Quantity: 3, UnitPriceCents: 2500},
		{SeatID: &sid, Quantity: 1, UnitPriceCents: 5000},
	}}
	assert.Equal(t, uint32(4), r.TotalQuantity())
	assert.Equal(t, uint64(12500), r.TotalPriceCents())

	empty := Reservation{}
	assert.Zero(t, empty.TotalQuantity())
	assert.Zero(t, empty.TotalPriceCents())
}

func TestSessionSellable(t *testing.T) {
	s := Session{Status: SessionOnSale, AvailableCapacity: 1}
	assert.True(t, s.Sellable())

	s.AvailableCapacity = 0
	assert.False(t, s.Sellable())

	s.AvailableCapacity = 10
	s.Status = SessionClosed
	assert.False(t, s.Sellable())
}

func TestSeatStatusPriority(t *testing.T) {
	assert.Greater(t, SeatSold.Priority(), SeatHeld.Priority())
	assert.Greater(t, SeatHeld.Priority(), SeatAvailable.Priority())
}
