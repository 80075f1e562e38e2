// Package client implements the tab-side half of the selection flow:
// a selection accumulator holding the buyer's picks, and a session
// controller driving the countdown and best-effort cleanup.  Nothing
// here is authoritative; capacity decisions always come back from the
// reservation manager, and the server-side sweeper is the backstop for
// any cleanup that never arrives.
package client

import (
	"errors"
	"sync"
)

// MaxSelectionQuantity is the client-side soft cap on total quantity
// per reservation.  It mirrors the server's binding cap; the values
// must agree, but only the server's rejection is authoritative.
const MaxSelectionQuantity = 10

// Entry is one accumulated line: a quantity of a category, or one seat.
type Entry struct {
	CategoryID  uint64 // set for quantity lines
	SeatID      uint64 // set for seat lines
	UnitPrice   uint64 // cents
	Quantity    uint32
	MaxPerOrder uint32 // per-category soft cap, 0 = none
}

// State is the derived selection state.  Totals are recomputed on every
// mutation and are always exactly consistent with Entries.
type State struct {
	Entries       []Entry
	TotalQuantity uint32
	TotalPrice    uint64 // cents
}

// Soft-cap violations reported by Dispatch.  The UI shows these inline;
// they never reach the server.
var (
	ErrSelectionLimit = errors.New("selection quantity limit reached")
	ErrCategoryCap    = errors.New("category per-order limit reached")
	ErrNoSuchEntry    = errors.New("no such selection entry")
)

// Action mutates the selection.  Exactly one of the Add/Update/Remove
// shapes applies; Reset clears everything (used when the reservation
// ends, whatever the reason).
type Action struct {
	Kind ActionKind
	// AddCategory / UpdateCategory
	CategoryID  uint64
	Quantity    uint32
	UnitPrice   uint64
	MaxPerOrder uint32
	// AddSeat / RemoveSeat
	SeatID uint64
}

type ActionKind int

const (
	ActionAddCategory ActionKind = iota
	ActionUpdateCategory
	ActionRemoveCategory
	ActionAddSeat
	ActionRemoveSeat
	ActionReset
)

// SelectionStore is the process-wide selection container: a mutable,
// subscribed state holder whose mutations are synchronous pure reducer
// applications.  Subscribers always observe totals consistent with the
// entries.  One store instance exists per running tab; Reset is its
// documented teardown.
type SelectionStore struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// NewSelectionStore returns an empty store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{subs: make(map[int]func(State))}
}

// State returns a copy of the current state.
func (s *SelectionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Subscribe registers fn to be called synchronously after every
// successful dispatch.  The returned function unsubscribes.
func (s *SelectionStore) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Dispatch applies an action through the reducer.  On soft-cap
// violations the state is unchanged and the error returned; the caller
// decides how to present it.  Successful dispatches notify all
// subscribers synchronously with the new state.
func (s *SelectionStore) Dispatch(a Action) error {
	s.mu.Lock()
	next, err := reduce(s.state, a)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	notify := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		notify = append(notify, fn)
	}
	snapshot := cloneState(next)
	s.mu.Unlock()
	for _, fn := range notify {
		fn(snapshot)
	}
	return nil
}

// reduce is the pure reducer: it never mutates prev and recomputes the
// totals from scratch so they can never drift from the entries.
func reduce(prev State, a Action) (State, error) {
	entries := make([]Entry, len(prev.Entries))
	copy(entries, prev.Entries)

	switch a.Kind {
	case ActionReset:
		entries = nil

	case ActionAddCategory:
		idx := findCategory(entries, a.CategoryID)
		if idx >= 0 {
			return applyCategoryQuantity(entries, idx, entries[idx].Quantity+a.Quantity)
		}
		entries = append(entries, Entry{
			CategoryID:  a.CategoryID,
			UnitPrice:   a.UnitPrice,
			Quantity:    0,
			MaxPerOrder: a.MaxPerOrder,
		})
		return applyCategoryQuantity(entries, len(entries)-1, a.Quantity)

	case ActionUpdateCategory:
		idx := findCategory(entries, a.CategoryID)
		if idx < 0 {
			return prev, ErrNoSuchEntry
		}
		return applyCategoryQuantity(entries, idx, a.Quantity)

	case ActionRemoveCategory:
		idx := findCategory(entries, a.CategoryID)
		if idx < 0 {
			return prev, ErrNoSuchEntry
		}
		entries = append(entries[:idx], entries[idx+1:]...)

	case ActionAddSeat:
		for _, e := range entries {
			if e.SeatID == a.SeatID && a.SeatID != 0 {
				return recompute(entries), nil // seat already selected
			}
		}
		if total(entries)+1 > MaxSelectionQuantity {
			return prev, ErrSelectionLimit
		}
		entries = append(entries, Entry{SeatID: a.SeatID, UnitPrice: a.UnitPrice, Quantity: 1})

	case ActionRemoveSeat:
		idx := -1
		for i, e := range entries {
			if e.SeatID == a.SeatID && a.SeatID != 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return prev, ErrNoSuchEntry
		}
		entries = append(entries[:idx], entries[idx+1:]...)
	}
	return recompute(entries), nil
}

func applyCategoryQuantity(entries []Entry, idx int, qty uint32) (State, error) {
	e := entries[idx]
	if e.MaxPerOrder > 0 && qty > e.MaxPerOrder {
		return State{}, ErrCategoryCap
	}
	if total(entries)-e.Quantity+qty > MaxSelectionQuantity {
		return State{}, ErrSelectionLimit
	}
	if qty == 0 {
		entries = append(entries[:idx], entries[idx+1:]...)
	} else {
		entries[idx].Quantity = qty
	}
	return recompute(entries), nil
}

func findCategory(entries []Entry, categoryID uint64) int {
	for i, e := range entries {
		if e.CategoryID == categoryID && categoryID != 0 {
			return i
		}
	}
	return -1
}

func total(entries []Entry) uint32 {
	var n uint32
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

func recompute(entries []Entry) State {
	st := State{Entries: entries}
	for _, e := range entries {
		st.TotalQuantity += e.Quantity
		st.TotalPrice += uint64(e.Quantity) * e.UnitPrice
	}
	return st
}

func cloneState(st State) State {
	out := st
	out.Entries = make([]Entry, len(st.Entries))
	copy(out.Entries, st.Entries)
	return out
}
