package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stagefront/ticketing/internal/model"
	"github.com/stagefront/ticketing/internal/queue"
	"github.com/stagefront/ticketing/internal/repository"
)

// SessionStore is the read-only catalogue the manager validates against.
type SessionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	GetCategory(ctx context.Context, id uint64) (*model.SessionCategory, error)
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
}

// InventoryStore is the ledger: atomic per-unit check-and-reserve and
// idempotent release.
type InventoryStore interface {
	ReserveCategoryTx(ctx context.Context, tx repository.Tx, categoryID uint64, qty uint32) (ok bool, available uint32, err error)
	ReleaseCategoryTx(ctx context.Context, tx repository.Tx, categoryID uint64, qty uint32) error
	HoldSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) (bool, error)
	ReleaseSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) error
	SellSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) error
}

// ReservationStore persists reservations and their items.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx repository.Tx, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetForUpdateTx(ctx context.Context, tx repository.Tx, id string) (*model.Reservation, error)
	TransitionTx(ctx context.Context, tx repository.Tx, id string, from, to model.ReservationStatus) (bool, error)
	InsertItemTx(ctx context.Context, tx repository.Tx, item *model.ReservationItem) error
	UpdateItemQuantityTx(ctx context.Context, tx repository.Tx, reservationID string, itemID uint64, qty uint32) (bool, error)
	DeleteItemTx(ctx context.Context, tx repository.Tx, reservationID string, itemID uint64) (bool, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// EventPublisher delivers reservation lifecycle events to the broker.
// Delivery is best-effort; the manager logs and drops failures.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, ev queue.ReservationEvent) error
}

// SeatNotifier fans out committed seat status changes to subscribed
// clients.  Best-effort as well.
type SeatNotifier interface {
	SeatStatusChanged(ctx context.Context, sessionID, seatID uint64, status model.SeatStatus)
}

// ItemInput describes one requested line: a quantity of a category, or
// a single seat.  Exactly one of CategoryID and SeatID must be set.
type ItemInput struct {
	CategoryID *uint64
	SeatID     *uint64
	Quantity   uint32
}

// ReservationManager owns the reservation lifecycle.  Every mutating
// operation runs in one transaction: the reservation row is locked
// first (serializing mutations per reservation), the ledger performs
// its per-unit atomic step, and items are adjusted.  The whole step is
// all-or-nothing, so ledger and reservation state can never diverge.
// Operations on an overdue active reservation first commit the same
// expiry transition the sweeper uses, then report InvalidState.
type ReservationManager struct {
	txm          repository.TxManager
	sessions     SessionStore
	inventory    InventoryStore
	reservations ReservationStore
	events       EventPublisher // may be nil
	notifier     SeatNotifier   // may be nil

	defaultHold time.Duration
	maxItems    uint32
	sweepBatch  int
	now         func() time.Time
}

// NewReservationManager wires a manager.  events and notifier may be
// nil, which disables the corresponding fan-out.
func NewReservationManager(
	txm repository.TxManager,
	sessions SessionStore,
	inventory InventoryStore,
	reservations ReservationStore,
	events EventPublisher,
	notifier SeatNotifier,
	defaultHold time.Duration,
	maxItems int,
	sweepBatch int,
) *ReservationManager {
	if maxItems <= 0 {
		maxItems = 10
	}
	if sweepBatch <= 0 {
		sweepBatch = 100
	}
	if defaultHold <= 0 {
		defaultHold = 10 * time.Minute
	}
	return &ReservationManager{
		txm:          txm,
		sessions:     sessions,
		inventory:    inventory,
		reservations: reservations,
		events:       events,
		notifier:     notifier,
		defaultHold:  defaultHold,
		maxItems:     uint32(maxItems),
		sweepBatch:   sweepBatch,
		now:          time.Now,
	}
}

// Create opens a new empty reservation against a sellable session.  The
// hold window is copied from the session at creation, falling back to
// the configured default when the session does not set one.
func (m *ReservationManager) Create(ctx context.Context, sessionID uint64, ownerID string) (*model.Reservation, error) {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Sellable() {
		return nil, ErrSessionNotSellable
	}
	hold := sess.HoldDuration()
	if hold <= 0 {
		hold = m.defaultHold
	}
	now := m.now().UTC()
	res := &model.Reservation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    model.ReservationActive,
		ExpiresAt: now.Add(hold),
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := m.txm.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := m.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return res, nil
}

// Get returns a reservation with its items.
func (m *ReservationManager) Get(ctx context.Context, id string) (*model.Reservation, error) {
	return m.reservations.GetByID(ctx, id)
}

// AddItem reserves capacity for one item and appends it to the
// reservation.  On a lost capacity race it returns CapacityError with
// the availability the ledger observed; nothing is changed in that
// case.  Adding a category that is already present merges into the
// existing line.
func (m *ReservationManager) AddItem(ctx context.Context, reservationID string, in ItemInput) (*model.Reservation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return m.mutate(ctx, reservationID, func(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
		if in.SeatID != nil {
			return m.addSeatLocked(ctx, tx, res, *in.SeatID, notes)
		}
		return m.addCategoryLocked(ctx, tx, res, *in.CategoryID, in.Quantity)
	})
}

// UpdateItem changes the quantity of a category item.  Increases
// reserve only the delta and fail atomically, leaving the old quantity
// intact; decreases release the delta unconditionally.  A new quantity
// of zero removes the item.  Seat items only accept zero (removal).
func (m *ReservationManager) UpdateItem(ctx context.Context, reservationID string, itemID uint64, newQty uint32) (*model.Reservation, error) {
	return m.mutate(ctx, reservationID, func(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
		return m.updateItemLocked(ctx, tx, res, itemID, newQty, notes)
	})
}

// RemoveItem releases the item's full held amount and deletes it.
func (m *ReservationManager) RemoveItem(ctx context.Context, reservationID string, itemID uint64) (*model.Reservation, error) {
	return m.mutate(ctx, reservationID, func(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
		return m.updateItemLocked(ctx, tx, res, itemID, 0, notes)
	})
}

// Cancel releases all held inventory and marks the reservation
// cancelled.  Cancelling a reservation that is already terminal is a
// no-op success, which makes duplicate or out-of-order cancel
// deliveries (tab close beacon racing the countdown) harmless.
func (m *ReservationManager) Cancel(ctx context.Context, reservationID string) error {
	tx, err := m.txm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := m.reservations.GetForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	if res.Terminal() {
		return nil // already released by sweep, duplicate cancel, or completion
	}
	did, err := m.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationCancelled)
	if err != nil {
		return err
	}
	notes := &seatNotes{}
	if did {
		if err := m.releaseItemsLocked(ctx, tx, res, notes); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	if did {
		notes.emit(ctx, m.notifier)
		m.publish(ctx, res, queue.EventReservationCancelled)
	}
	return nil
}

// Complete marks the reservation completed; held inventory stays
// permanently decremented and held seats convert to sold.  Fails with
// InvalidState when the reservation is not active, including when the
// hold window already elapsed.
func (m *ReservationManager) Complete(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return m.mutate(ctx, reservationID, func(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
		did, err := m.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationCompleted)
		if err != nil {
			return err
		}
		if !did {
			return ErrInvalidState
		}
		res.Status = model.ReservationCompleted
		for _, it := range res.Items {
			if it.IsSeat() {
				if err := m.inventory.SellSeatTx(ctx, tx, *it.SeatID, res.ID); err != nil {
					return err
				}
				notes.add(res.SessionID, *it.SeatID, model.SeatSold)
			}
		}
		return nil
	})
}

// SweepExpired scans for active reservations past their deadline and
// releases them, one transaction each.  Safe to run concurrently with
// buyer-initiated cancel/complete: the conditional status transition is
// the single commit point, so whichever actor flips the row first wins
// and the other becomes a no-op.
func (m *ReservationManager) SweepExpired(ctx context.Context) (int, error) {
	ids, err := m.reservations.ListExpiredActive(ctx, m.now().UTC(), m.sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("scan expired reservations: %w", err)
	}
	swept := 0
	for _, id := range ids {
		did, err := m.expireOne(ctx, id)
		if err != nil {
			// Keep sweeping; this reservation stays claimable by the
			// next run.
			log.Printf("sweeper: expire %s failed: %v", id, err)
			continue
		}
		if did {
			swept++
		}
	}
	return swept, nil
}

func (m *ReservationManager) expireOne(ctx context.Context, id string) (bool, error) {
	tx, err := m.txm.Begin(ctx)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := m.reservations.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return false, err
	}
	// Re-check under the lock: an explicit cancel/complete may have won,
	// and a never-expired reservation must never be released here.
	if res.Terminal() || !res.Overdue(m.now().UTC()) {
		return false, nil
	}
	notes := &seatNotes{}
	if err := m.expireLocked(ctx, tx, res, notes); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	notes.emit(ctx, m.notifier)
	m.publish(ctx, res, queue.EventReservationExpired)
	return true, nil
}

// mutate wraps the shared transaction choreography of item-level and
// completion operations: lock the reservation, run the lazy expiry
// check, apply fn, commit, then fan out notifications.
func (m *ReservationManager) mutate(
	ctx context.Context,
	reservationID string,
	fn func(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error,
) (*model.Reservation, error) {
	tx, err := m.txm.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := m.reservations.GetForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	notes := &seatNotes{}
	if res.Status == model.ReservationActive && res.Overdue(m.now().UTC()) {
		// Lazy expiry: commit the same transition the sweeper performs,
		// then report the reservation gone.
		if err := m.expireLocked(ctx, tx, res, notes); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		committed = true
		notes.emit(ctx, m.notifier)
		m.publish(ctx, res, queue.EventReservationExpired)
		return nil, ErrInvalidState
	}
	if res.Terminal() {
		return nil, ErrInvalidState
	}
	if err := fn(ctx, tx, res, notes); err != nil {
		return nil, err
	}
	res.UpdatedAt = m.now().UTC()
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	notes.emit(ctx, m.notifier)
	if res.Status == model.ReservationCompleted {
		m.publish(ctx, res, queue.EventReservationCompleted)
	}
	return res, nil
}

func (m *ReservationManager) addCategoryLocked(ctx context.Context, tx repository.Tx, res *model.Reservation, categoryID uint64, qty uint32) error {
	cat, err := m.sessions.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if cat.SessionID != res.SessionID {
		return ErrInvalidItem
	}
	existing := findCategoryItem(res, categoryID)
	var have uint32
	if existing != nil {
		have = existing.Quantity
	}
	if cat.MaxPerOrder > 0 && have+qty > cat.MaxPerOrder {
		return ErrCategoryLimit
	}
	if res.TotalQuantity()+qty > m.maxItems {
		return ErrOrderLimit
	}
	ok, available, err := m.inventory.ReserveCategoryTx(ctx, tx, categoryID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return &CapacityError{Available: available}
	}
	if existing != nil {
		if _, err := m.reservations.UpdateItemQuantityTx(ctx, tx, res.ID, existing.ID, have+qty); err != nil {
			return err
		}
		existing.Quantity = have + qty
		return nil
	}
	item := model.ReservationItem{
		ReservationID:  res.ID,
		CategoryID:     &categoryID,
		Quantity:       qty,
		UnitPriceCents: cat.PriceCents,
		CreatedAt:      m.now().UTC(),
	}
	if err := m.reservations.InsertItemTx(ctx, tx, &item); err != nil {
		return err
	}
	res.Items = append(res.Items, item)
	return nil
}

func (m *ReservationManager) addSeatLocked(ctx context.Context, tx repository.Tx, res *model.Reservation, seatID uint64, notes *seatNotes) error {
	for _, it := range res.Items {
		if it.SeatID != nil && *it.SeatID == seatID {
			return nil // this reservation already holds the seat
		}
	}
	seat, err := m.sessions.GetSeat(ctx, seatID)
	if err != nil {
		return err
	}
	if seat.SessionID != res.SessionID {
		return ErrInvalidItem
	}
	if res.TotalQuantity()+1 > m.maxItems {
		return ErrOrderLimit
	}
	ok, err := m.inventory.HoldSeatTx(ctx, tx, seatID, res.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Someone else holds or bought the seat; for a named unit the
		// only honest availability figure is zero.
		return &CapacityError{Available: 0}
	}
	item := model.ReservationItem{
		ReservationID:  res.ID,
		SeatID:         &seatID,
		Quantity:       1,
		UnitPriceCents: seat.PriceCents,
		CreatedAt:      m.now().UTC(),
	}
	if err := m.reservations.InsertItemTx(ctx, tx, &item); err != nil {
		return err
	}
	res.Items = append(res.Items, item)
	notes.add(res.SessionID, seatID, model.SeatHeld)
	return nil
}

func (m *ReservationManager) updateItemLocked(ctx context.Context, tx repository.Tx, res *model.Reservation, itemID uint64, newQty uint32, notes *seatNotes) error {
	idx := -1
	for i := range res.Items {
		if res.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return repository.ErrItemNotFound
	}
	item := &res.Items[idx]

	if item.IsSeat() {
		if newQty != 0 {
			return ErrInvalidItem // seats have no quantity to adjust
		}
		did, err := m.reservations.DeleteItemTx(ctx, tx, res.ID, item.ID)
		if err != nil {
			return err
		}
		if did {
			if err := m.inventory.ReleaseSeatTx(ctx, tx, *item.SeatID, res.ID); err != nil {
				return err
			}
			notes.add(res.SessionID, *item.SeatID, model.SeatAvailable)
		}
		res.Items = append(res.Items[:idx], res.Items[idx+1:]...)
		return nil
	}

	categoryID := *item.CategoryID
	switch {
	case newQty == 0:
		did, err := m.reservations.DeleteItemTx(ctx, tx, res.ID, item.ID)
		if err != nil {
			return err
		}
		if did {
			if err := m.inventory.ReleaseCategoryTx(ctx, tx, categoryID, item.Quantity); err != nil {
				return err
			}
		}
		res.Items = append(res.Items[:idx], res.Items[idx+1:]...)
		return nil

	case newQty > item.Quantity:
		delta := newQty - item.Quantity
		cat, err := m.sessions.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if cat.MaxPerOrder > 0 && newQty > cat.MaxPerOrder {
			return ErrCategoryLimit
		}
		if res.TotalQuantity()+delta > m.maxItems {
			return ErrOrderLimit
		}
		// Reserve only the delta; on failure the old quantity stays
		// intact because nothing has been written yet.
		ok, available, err := m.inventory.ReserveCategoryTx(ctx, tx, categoryID, delta)
		if err != nil {
			return err
		}
		if !ok {
			return &CapacityError{Available: available}
		}
		if _, err := m.reservations.UpdateItemQuantityTx(ctx, tx, res.ID, item.ID, newQty); err != nil {
			return err
		}
		item.Quantity = newQty
		return nil

	case newQty < item.Quantity:
		delta := item.Quantity - newQty
		if _, err := m.reservations.UpdateItemQuantityTx(ctx, tx, res.ID, item.ID, newQty); err != nil {
			return err
		}
		if err := m.inventory.ReleaseCategoryTx(ctx, tx, categoryID, delta); err != nil {
			return err
		}
		item.Quantity = newQty
		return nil
	}
	return nil // unchanged quantity
}

// expireLocked flips active→expired and releases held inventory.  The
// caller holds the row lock.  The conditional transition is the
// at-most-once gate for the release.
func (m *ReservationManager) expireLocked(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
	did, err := m.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationExpired)
	if err != nil {
		return err
	}
	if !did {
		return nil
	}
	res.Status = model.ReservationExpired
	return m.releaseItemsLocked(ctx, tx, res, notes)
}

func (m *ReservationManager) releaseItemsLocked(ctx context.Context, tx repository.Tx, res *model.Reservation, notes *seatNotes) error {
	for _, it := range res.Items {
		if it.IsSeat() {
			if err := m.inventory.ReleaseSeatTx(ctx, tx, *it.SeatID, res.ID); err != nil {
				return err
			}
			notes.add(res.SessionID, *it.SeatID, model.SeatAvailable)
			continue
		}
		if err := m.inventory.ReleaseCategoryTx(ctx, tx, *it.CategoryID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (m *ReservationManager) publish(ctx context.Context, res *model.Reservation, typ string) {
	if m.events == nil {
		return
	}
	ev := queue.ReservationEvent{
		Type:            typ,
		ReservationID:   res.ID,
		SessionID:       res.SessionID,
		TotalQuantity:   res.TotalQuantity(),
		TotalPriceCents: res.TotalPriceCents(),
		OccurredAt:      m.now().UTC().Format(time.RFC3339),
	}
	if err := m.events.PublishReservationEvent(ctx, ev); err != nil {
		log.Printf("reservation events: publish %s for %s failed: %v", typ, res.ID, err)
	}
}

func validateInput(in ItemInput) error {
	if (in.CategoryID == nil) == (in.SeatID == nil) {
		return ErrInvalidItem
	}
	if in.CategoryID != nil && in.Quantity == 0 {
		return ErrInvalidItem
	}
	return nil
}

func findCategoryItem(res *model.Reservation, categoryID uint64) *model.ReservationItem {
	for i := range res.Items {
		it := &res.Items[i]
		if it.CategoryID != nil && *it.CategoryID == categoryID {
			return it
		}
	}
	return nil
}

// seatNotes buffers seat status changes during a transaction so
// observers only hear about committed state.
type seatNotes struct {
	notes []seatNote
}

type seatNote struct {
	sessionID uint64
	seatID    uint64
	status    model.SeatStatus
}

func (n *seatNotes) add(sessionID, seatID uint64, status model.SeatStatus) {
	n.notes = append(n.notes, seatNote{sessionID: sessionID, seatID: seatID, status: status})
}

func (n *seatNotes) emit(ctx context.Context, notifier SeatNotifier) {
	if notifier == nil {
		return
	}
	for _, note := range n.notes {
		notifier.SeatStatusChanged(ctx, note.sessionID, note.seatID, note.status)
	}
}
