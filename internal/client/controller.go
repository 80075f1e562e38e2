package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/stagefront/ticketing/internal/model"
	"github.com/stagefront/ticketing/internal/realtime"
	"github.com/stagefront/ticketing/internal/service"
)

// ReservationAPI is the slice of the reservation surface the controller
// drives.  *service.ReservationManager satisfies it directly; over the
// wire an HTTP adapter would.
type ReservationAPI interface {
	Create(ctx context.Context, sessionID uint64, ownerID string) (*model.Reservation, error)
	AddItem(ctx context.Context, reservationID string, in service.ItemInput) (*model.Reservation, error)
	UpdateItem(ctx context.Context, reservationID string, itemID uint64, newQty uint32) (*model.Reservation, error)
	RemoveItem(ctx context.Context, reservationID string, itemID uint64) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID string) error
	Complete(ctx context.Context, reservationID string) (*model.Reservation, error)
}

// Phase is the controller's lifecycle position.
type Phase int

const (
	PhaseBrowsing Phase = iota // no reservation yet
	PhaseHolding               // active reservation, countdown running
	PhaseExpired               // hold ran out client-side
	PhaseDone                  // completed or left
)

// Controller ties one browsing tab to at most one reservation: it
// creates the hold lazily on the first selection, mirrors every
// selection change to the server, runs the countdown against the
// server-issued deadline, and cleans up best-effort when the tab
// leaves or the countdown hits zero.  Cleanup may never run (a killed
// tab sends nothing), which is exactly the case the server-side
// sweeper exists for.
type Controller struct {
	api       ReservationAPI
	selection *SelectionStore
	seats     *SeatStateView
	sessionID uint64
	ownerID   string

	// onTick and onPhase are UI callbacks; either may be nil.
	onTick  func(remaining time.Duration)
	onPhase func(Phase)

	mu          sync.Mutex
	phase       Phase
	reservation *model.Reservation
	// itemIDs maps a selection line (category id or seat id) to the
	// server-side item id so updates and removals can address it.
	categoryItems map[uint64]uint64
	seatItems     map[uint64]uint64
	stopCountdown chan struct{}

	now func() time.Time
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	API       ReservationAPI
	Selection *SelectionStore
	Seats     *SeatStateView
	SessionID uint64
	OwnerID   string
	OnTick    func(remaining time.Duration)
	OnPhase   func(Phase)
}

func NewController(cfg ControllerConfig) *Controller {
	sel := cfg.Selection
	if sel == nil {
		sel = NewSelectionStore()
	}
	seats := cfg.Seats
	if seats == nil {
		seats = NewSeatStateView()
	}
	return &Controller{
		api:           cfg.API,
		selection:     sel,
		seats:         seats,
		sessionID:     cfg.SessionID,
		ownerID:       cfg.OwnerID,
		onTick:        cfg.OnTick,
		onPhase:       cfg.OnPhase,
		phase:         PhaseBrowsing,
		categoryItems: make(map[uint64]uint64),
		seatItems:     make(map[uint64]uint64),
		now:           time.Now,
	}
}

// Selection exposes the accumulator for UI binding.
func (c *Controller) Selection() *SelectionStore { return c.selection }

// Seats exposes the seat status view for UI binding.
func (c *Controller) Seats() *SeatStateView { return c.seats }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ReservationID returns the active reservation's id, or "" if none.
func (c *Controller) ReservationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reservation == nil {
		return ""
	}
	return c.reservation.ID
}

// SelectCategory adds qty units of a category: the accumulator is
// updated only after the server accepts the change, so a capacity
// rejection leaves the local state untouched.
func (c *Controller) SelectCategory(ctx context.Context, cat *model.SessionCategory, qty uint32) error {
	if err := c.ensureReservation(ctx); err != nil {
		return err
	}
	id := cat.ID
	res, err := c.api.AddItem(ctx, c.ReservationID(), service.ItemInput{CategoryID: &id, Quantity: qty})
	if err != nil {
		c.noteMutationError(err)
		return err
	}
	c.recordItems(res)
	return c.selection.Dispatch(Action{
		Kind:        ActionAddCategory,
		CategoryID:  cat.ID,
		Quantity:    qty,
		UnitPrice:   uint64(cat.PriceCents),
		MaxPerOrder: cat.MaxPerOrder,
	})
}

// SetCategoryQuantity changes an already-selected category to qty;
// zero removes the line.
func (c *Controller) SetCategoryQuantity(ctx context.Context, categoryID uint64, qty uint32) error {
	c.mu.Lock()
	itemID, ok := c.categoryItems[categoryID]
	resID := ""
	if c.reservation != nil {
		resID = c.reservation.ID
	}
	c.mu.Unlock()
	if !ok {
		return ErrNoSuchEntry
	}
	res, err := c.api.UpdateItem(ctx, resID, itemID, qty)
	if err != nil {
		c.noteMutationError(err)
		return err
	}
	c.recordItems(res)
	if qty == 0 {
		return c.selection.Dispatch(Action{Kind: ActionRemoveCategory, CategoryID: categoryID})
	}
	return c.selection.Dispatch(Action{Kind: ActionUpdateCategory, CategoryID: categoryID, Quantity: qty})
}

// SelectSeat holds one specific seat.
func (c *Controller) SelectSeat(ctx context.Context, seat *model.Seat) error {
	if err := c.ensureReservation(ctx); err != nil {
		return err
	}
	id := seat.ID
	res, err := c.api.AddItem(ctx, c.ReservationID(), service.ItemInput{SeatID: &id, Quantity: 1})
	if err != nil {
		c.noteMutationError(err)
		return err
	}
	c.recordItems(res)
	return c.selection.Dispatch(Action{Kind: ActionAddSeat, SeatID: seat.ID, UnitPrice: uint64(seat.PriceCents)})
}

// DeselectSeat releases a held seat.
func (c *Controller) DeselectSeat(ctx context.Context, seatID uint64) error {
	c.mu.Lock()
	itemID, ok := c.seatItems[seatID]
	resID := ""
	if c.reservation != nil {
		resID = c.reservation.ID
	}
	c.mu.Unlock()
	if !ok {
		return ErrNoSuchEntry
	}
	res, err := c.api.RemoveItem(ctx, resID, itemID)
	if err != nil {
		c.noteMutationError(err)
		return err
	}
	c.recordItems(res)
	return c.selection.Dispatch(Action{Kind: ActionRemoveSeat, SeatID: seatID})
}

// Complete finalizes the purchase and stops the countdown.
func (c *Controller) Complete(ctx context.Context) error {
	resID := c.ReservationID()
	if resID == "" {
		return service.ErrInvalidState
	}
	if _, err := c.api.Complete(ctx, resID); err != nil {
		c.noteMutationError(err)
		return err
	}
	c.transition(PhaseDone)
	return nil
}

// Leave abandons the flow: it fires a best-effort cancel and resets the
// local state without waiting for the server.  Safe to call in any
// phase, any number of times.
func (c *Controller) Leave() {
	c.mu.Lock()
	res := c.reservation
	active := c.phase == PhaseHolding
	c.mu.Unlock()
	if active && res != nil {
		c.cancelBestEffort(res.ID)
	}
	c.transition(PhaseDone)
}

// Reenter returns the controller to browsing after an expiry or exit,
// allowing a fresh selection flow (and with it a fresh reservation) to
// begin.  No-op while a hold is still running.
func (c *Controller) Reenter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseHolding || c.phase == PhaseBrowsing {
		return
	}
	c.phase = PhaseBrowsing
}

// ensureReservation lazily creates the hold on the first selection.
func (c *Controller) ensureReservation(ctx context.Context) error {
	c.mu.Lock()
	if c.reservation != nil && c.phase == PhaseHolding {
		c.mu.Unlock()
		return nil
	}
	if c.phase != PhaseBrowsing {
		c.mu.Unlock()
		return service.ErrInvalidState
	}
	c.mu.Unlock()

	res, err := c.api.Create(ctx, c.sessionID, c.ownerID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.reservation = res
	c.phase = PhaseHolding
	c.stopCountdown = make(chan struct{})
	stop := c.stopCountdown
	c.mu.Unlock()
	if c.onPhase != nil {
		c.onPhase(PhaseHolding)
	}

	// The countdown runs against the hold duration the server granted,
	// not the raw ExpiresAt wall time, so a skewed client clock cannot
	// shorten or stretch the visible timer.
	go c.countdown(res.ExpiresAt.Sub(res.CreatedAt), stop)
	return nil
}

// countdown ticks once a second and flips the controller to expired
// when the hold runs out.  Expiry here is cosmetic: the server already
// stopped honoring the hold, the tab just catches up.
func (c *Controller) countdown(hold time.Duration, stop <-chan struct{}) {
	deadline := c.now().Add(hold)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := deadline.Sub(c.now())
			if remaining <= 0 {
				c.expireLocally()
				return
			}
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// expireLocally handles the countdown reaching zero: the selection is
// cleared and a best-effort cancel is fired so the server can release
// the hold ahead of the sweeper.
func (c *Controller) expireLocally() {
	c.mu.Lock()
	if c.phase != PhaseHolding {
		c.mu.Unlock()
		return
	}
	res := c.reservation
	c.mu.Unlock()
	if res != nil {
		c.cancelBestEffort(res.ID)
	}
	c.transition(PhaseExpired)
}

// cancelBestEffort fires Cancel with a short timeout and never blocks
// the caller.  Failure is logged and forgotten; the sweeper covers it.
func (c *Controller) cancelBestEffort(reservationID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.api.Cancel(ctx, reservationID); err != nil {
			log.Printf("client: best-effort cancel of %s failed: %v", reservationID, err)
		}
	}()
}

// noteMutationError reacts to server rejections: an invalid-state error
// means the hold is gone, so the local state resets to match.
func (c *Controller) noteMutationError(err error) {
	if errors.Is(err, service.ErrInvalidState) {
		c.transition(PhaseExpired)
	}
}

// transition moves to a terminal-ish phase, stops the countdown and
// clears the selection.  Idempotent.
func (c *Controller) transition(p Phase) {
	c.mu.Lock()
	if c.phase == p {
		c.mu.Unlock()
		return
	}
	c.phase = p
	if c.stopCountdown != nil {
		close(c.stopCountdown)
		c.stopCountdown = nil
	}
	c.reservation = nil
	c.categoryItems = make(map[uint64]uint64)
	c.seatItems = make(map[uint64]uint64)
	c.mu.Unlock()
	_ = c.selection.Dispatch(Action{Kind: ActionReset})
	if c.onPhase != nil {
		c.onPhase(p)
	}
}

// WatchSeats drains a seat status stream into the view until the
// channel closes, invoking onChange (if non-nil) for every event that
// actually changed a seat's visible status.  Callers obtain the stream
// from a realtime.Subscriber and run this on its own goroutine.
func (c *Controller) WatchSeats(events <-chan realtime.SeatStatusEvent, onChange func(ev realtime.SeatStatusEvent)) {
	for ev := range events {
		if c.seats.Apply(ev) && onChange != nil {
			onChange(ev)
		}
	}
}

// recordItems refreshes the selection-line to item-id mapping from the
// server's view of the reservation.
func (c *Controller) recordItems(res *model.Reservation) {
	if res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reservation = res
	c.categoryItems = make(map[uint64]uint64)
	c.seatItems = make(map[uint64]uint64)
	for _, it := range res.Items {
		switch {
		case it.SeatID != nil:
			c.seatItems[*it.SeatID] = it.ID
		case it.CategoryID != nil:
			c.categoryItems[*it.CategoryID] = it.ID
		}
	}
}
