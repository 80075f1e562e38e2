package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagefront/ticketing/internal/model"
	"github.com/stagefront/ticketing/internal/queue"
	"github.com/stagefront/ticketing/internal/repository"
)

// memTx satisfies repository.Tx; the in-memory store applies writes
// immediately, which is fine for the paths these tests exercise.
type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

type memTxManager struct{}

func (memTxManager) Begin(ctx context.Context) (repository.Tx, error) { return memTx{}, nil }

// memStore backs all three store interfaces with mutex-guarded maps.
// Ledger methods perform their check-and-mutate under the lock, which
// models the atomicity of the conditional UPDATEs.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uint64]*model.Session
	categories   map[uint64]*model.SessionCategory
	seats        map[uint64]*model.Seat
	reservations map[string]*model.Reservation
	nextItemID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uint64]*model.Session),
		categories:   make(map[uint64]*model.SessionCategory),
		seats:        make(map[uint64]*model.Seat),
		reservations: make(map[string]*model.Reservation),
	}
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) GetCategory(ctx context.Context, id uint64) (*model.SessionCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *cat
	return &cp, nil
}

func (s *memStore) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *seat
	return &cp, nil
}

func (s *memStore) ReserveCategoryTx(ctx context.Context, tx repository.Tx, categoryID uint64, qty uint32) (bool, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[categoryID]
	if !ok {
		return false, 0, repository.ErrCategoryNotFound
	}
	if cat.Remaining < qty {
		return false, cat.Remaining, nil
	}
	cat.Remaining -= qty
	s.sessions[cat.SessionID].AvailableCapacity -= qty
	return true, cat.Remaining, nil
}

func (s *memStore) ReleaseCategoryTx(ctx context.Context, tx repository.Tx, categoryID uint64, qty uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[categoryID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	cat.Remaining += qty
	if cat.Remaining > cat.Total {
		cat.Remaining = cat.Total
	}
	s.sessions[cat.SessionID].AvailableCapacity += qty
	return nil
}

func (s *memStore) HoldSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return false, repository.ErrSeatNotFound
	}
	if seat.Status != model.SeatAvailable {
		return false, nil
	}
	seat.Status = model.SeatHeld
	seat.HeldBy = &reservationID
	s.sessions[seat.SessionID].AvailableCapacity--
	return true, nil
}

func (s *memStore) ReleaseSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return repository.ErrSeatNotFound
	}
	if seat.Status == model.SeatHeld && seat.HeldBy != nil && *seat.HeldBy == reservationID {
		seat.Status = model.SeatAvailable
		seat.HeldBy = nil
		s.sessions[seat.SessionID].AvailableCapacity++
	}
	return nil
}

func (s *memStore) SellSeatTx(ctx context.Context, tx repository.Tx, seatID uint64, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return repository.ErrSeatNotFound
	}
	if seat.Status == model.SeatHeld && seat.HeldBy != nil && *seat.HeldBy == reservationID {
		seat.Status = model.SeatSold
	}
	return nil
}

func (s *memStore) CreateTx(ctx context.Context, tx repository.Tx, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *memStore) loadReservation(id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	cp.Items = make([]model.ReservationItem, len(res.Items))
	copy(cp.Items, res.Items)
	return &cp, nil
}

func (s *memStore) GetForUpdateTx(ctx context.Context, tx repository.Tx, id string) (*model.Reservation, error) {
	return s.loadReservation(id)
}

func (s *memStore) TransitionTx(ctx context.Context, tx repository.Tx, id string, from, to model.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return false, repository.ErrReservationNotFound
	}
	if res.Status != from {
		return false, nil
	}
	res.Status = to
	return true, nil
}

func (s *memStore) InsertItemTx(ctx context.Context, tx repository.Tx, item *model.ReservationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[item.ReservationID]
	if !ok {
		return repository.ErrReservationNotFound
	}
	s.nextItemID++
	item.ID = s.nextItemID
	res.Items = append(res.Items, *item)
	return nil
}

func (s *memStore) UpdateItemQuantityTx(ctx context.Context, tx repository.Tx, reservationID string, itemID uint64, qty uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[reservationID]
	if !ok {
		return false, nil
	}
	for i := range res.Items {
		if res.Items[i].ID == itemID {
			res.Items[i].Quantity = qty
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DeleteItemTx(ctx context.Context, tx repository.Tx, reservationID string, itemID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[reservationID]
	if !ok {
		return false, nil
	}
	for i := range res.Items {
		if res.Items[i].ID == itemID {
			res.Items = append(res.Items[:i], res.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, res := range s.reservations {
		if res.Status == model.ReservationActive && !now.Before(res.ExpiresAt) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

// reservationStoreAdapter matches ReservationStore's GetByID name, which
// collides with the session GetByID on the combined fake.
type reservationStoreAdapter struct{ *memStore }

func (a reservationStoreAdapter) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return a.loadReservation(id)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (r *eventRecorder) PublishReservationEvent(ctx context.Context, ev queue.ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []model.SeatStatus
	seats []uint64
}

func (r *noteRecorder) SeatStatusChanged(ctx context.Context, sessionID, seatID uint64, status model.SeatStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, status)
	r.seats = append(r.seats, seatID)
}

type fixture struct {
	store    *memStore
	events   *eventRecorder
	notifier *noteRecorder
	mgr      *ReservationManager
	clock    *time.Time
}

const (
	sessionID  = uint64(1)
	categoryID = uint64(10)
	seatA      = uint64(100)
	seatB      = uint64(101)
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	store.sessions[sessionID] = &model.Session{
		ID:                 sessionID,
		Status:             model.SessionOnSale,
		LayoutType:         model.LayoutQuantity,
		AvailableCapacity:  7,
		ReservationMinutes: 10,
	}
	store.categories[categoryID] = &model.SessionCategory{
		ID:          categoryID,
		SessionID:   sessionID,
		Name:        "Adult",
		PriceCents:  2500,
		MaxPerOrder: 4,
		Total:       5,
		Remaining:   5,
	}
	store.seats[seatA] = &model.Seat{ID: seatA, SessionID: sessionID, Status: model.SeatAvailable, PriceCents: 5000}
	store.seats[seatB] = &model.Seat{ID: seatB, SessionID: sessionID, Status: model.SeatAvailable, PriceCents: 5000}

	events := &eventRecorder{}
	notifier := &noteRecorder{}
	mgr := NewReservationManager(
		memTxManager{},
		store,
		store,
		reservationStoreAdapter{store},
		events,
		notifier,
		10*time.Minute,
		10,
		100,
	)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clock := &now
	mgr.now = func() time.Time { return *clock }
	return &fixture{store: store, events: events, notifier: notifier, mgr: mgr, clock: clock}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)
	res, err := f.mgr.Create(context.Background(), sessionID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, res.Status)
	assert.Equal(t, "owner-1", res.OwnerID)
	assert.Equal(t, res.CreatedAt.Add(10*time.Minute), res.ExpiresAt)
	assert.NotEmpty(t, res.ID)
}

func TestCreateRejectsUnsellableSession(t *testing.T) {
	f := newFixture(t)
	f.store.sessions[sessionID].Status = model.SessionClosed
	_, err := f.mgr.Create(context.Background(), sessionID, "")
	assert.ErrorIs(t, err, ErrSessionNotSellable)

	f.store.sessions[sessionID].Status = model.SessionOnSale
	f.store.sessions[sessionID].AvailableCapacity = 0
	_, err = f.mgr.Create(context.Background(), sessionID, "")
	assert.ErrorIs(t, err, ErrSessionNotSellable)
}

func TestCategoryQuantityLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, uint32(2), f.store.categories[categoryID].Remaining)

	// Shrink to 1: the delta of 2 goes back to the pool.
	res, err = f.mgr.UpdateItem(ctx, res.ID, res.Items[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), res.Items[0].Quantity)
	assert.Equal(t, uint32(4), f.store.categories[categoryID].Remaining)

	// Grow back to 3: only the delta of 2 is reserved.
	res, err = f.mgr.UpdateItem(ctx, res.ID, res.Items[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), res.Items[0].Quantity)
	assert.Equal(t, uint32(2), f.store.categories[categoryID].Remaining)

	// Zero removes the line and releases everything.
	res, err = f.mgr.UpdateItem(ctx, res.ID, res.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
}

func TestAddItemMergesExistingCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, uint32(4), res.Items[0].Quantity)
	assert.Equal(t, uint32(1), f.store.categories[categoryID].Remaining)
}

func TestAddItemCapacityRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	f.store.categories[categoryID].Remaining = 2
	cid := categoryID
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 3})
	capErr, ok := AsCapacityError(err)
	require.True(t, ok, "want CapacityError, got %v", err)
	assert.Equal(t, uint32(2), capErr.Available)
	// Nothing changed on rejection.
	assert.Equal(t, uint32(2), f.store.categories[categoryID].Remaining)
	got, err := f.mgr.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestConcurrentAddItemLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.categories[categoryID].Remaining = 1

	resA, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)
	resB, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []string{resA.ID, resB.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.mgr.AddItem(ctx, id, ItemInput{CategoryID: &cid, Quantity: 1})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		capErr, isCap := AsCapacityError(err)
		require.True(t, isCap, "unexpected error: %v", err)
		assert.Equal(t, uint32(0), capErr.Available)
		rejected++
	}
	assert.Equal(t, 1, ok, "exactly one add must win the last unit")
	assert.Equal(t, 1, rejected)
	assert.Equal(t, uint32(0), f.store.categories[categoryID].Remaining)
}

func TestConcurrentSeatHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resA, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)
	resB, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	sid := seatA
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []string{resA.ID, resB.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.mgr.AddItem(ctx, id, ItemInput{SeatID: &sid, Quantity: 1})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		if err == nil {
			ok++
		} else if _, isCap := AsCapacityError(err); isCap {
			rejected++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, model.SeatHeld, f.store.seats[seatA].Status)
}

func TestAddSeatDuplicateIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	sid := seatA
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestSeatItemQuantityImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	sid := seatA
	res, err = f.mgr.AddItem(ctx, res.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)

	_, err = f.mgr.UpdateItem(ctx, res.ID, res.Items[0].ID, 2)
	assert.ErrorIs(t, err, ErrInvalidItem)

	// Zero removes the seat and releases the hold.
	res, err = f.mgr.UpdateItem(ctx, res.ID, res.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, model.SeatAvailable, f.store.seats[seatA].Status)
	assert.Contains(t, f.notifier.notes, model.SeatAvailable)
}

func TestOrderAndCategoryLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 5})
	assert.ErrorIs(t, err, ErrCategoryLimit) // max_per_order is 4

	f.store.categories[categoryID].MaxPerOrder = 0
	f.store.categories[categoryID].Total = 20
	f.store.categories[categoryID].Remaining = 20
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 11})
	assert.ErrorIs(t, err, ErrOrderLimit) // per-reservation cap is 10
}

func TestValidateInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid, sid := categoryID, seatA
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, SeatID: &sid, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestCancelReleasesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid, sid := categoryID, seatA
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.mgr.Cancel(ctx, res.ID))
	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
	assert.Equal(t, model.SeatAvailable, f.store.seats[seatA].Status)
	assert.Equal(t, []string{queue.EventReservationCancelled}, f.events.types())

	// Duplicate cancel: success, no double release or duplicate event.
	require.NoError(t, f.mgr.Cancel(ctx, res.ID))
	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
	assert.Equal(t, []string{queue.EventReservationCancelled}, f.events.types())
}

func TestLazyExpiryOnMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 3})
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.mgr.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
	assert.Equal(t, []string{queue.EventReservationExpired}, f.events.types())
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overdueA, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)
	cid := categoryID
	_, err = f.mgr.AddItem(ctx, overdueA.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)
	overdueB, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)
	sid := seatA
	_, err = f.mgr.AddItem(ctx, overdueB.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	fresh, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	swept, err := f.mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	for _, id := range []string{overdueA.ID, overdueB.ID} {
		got, err := f.mgr.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationExpired, got.Status)
	}
	got, err := f.mgr.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, got.Status)

	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
	assert.Equal(t, model.SeatAvailable, f.store.seats[seatA].Status)

	// A second sweep finds nothing.
	swept, err = f.mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid, sid := categoryID, seatA
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{SeatID: &sid, Quantity: 1})
	require.NoError(t, err)

	done, err := f.mgr.Complete(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, done.Status)
	// Category stays decremented; the seat converts to sold.
	assert.Equal(t, uint32(3), f.store.categories[categoryID].Remaining)
	assert.Equal(t, model.SeatSold, f.store.seats[seatA].Status)
	assert.Contains(t, f.notifier.notes, model.SeatSold)
	assert.Equal(t, []string{queue.EventReservationCompleted}, f.events.types())

	_, err = f.mgr.Complete(ctx, res.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAfterDeadlineFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.mgr.Create(ctx, sessionID, "")
	require.NoError(t, err)

	cid := categoryID
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 2})
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	_, err = f.mgr.Complete(ctx, res.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.mgr.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, uint32(5), f.store.categories[categoryID].Remaining)
}

func TestAddItemWrongSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.sessions[2] = &model.Session{ID: 2, Status: model.SessionOnSale, AvailableCapacity: 5, ReservationMinutes: 10}
	res, err := f.mgr.Create(ctx, 2, "")
	require.NoError(t, err)

	cid := categoryID // belongs to session 1
	_, err = f.mgr.AddItem(ctx, res.ID, ItemInput{CategoryID: &cid, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidItem)
}
