package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/stagefront/ticketing/internal/model"
)

// ReservationRepo provides data access to reservations and their items.
// Status transitions are conditional UPDATEs gated on the current
// status, which is what makes explicit cancel, completion and the
// expiry sweep safe to race against each other: whichever transition
// commits first wins and the loser observes zero rows affected.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new reservation row inside the given transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx Tx, res *model.Reservation) error {
    stx := unwrap(tx)
    if stx == nil {
        return errForeignTx
    }
    _, err := stx.ExecContext(ctx,
        `INSERT INTO reservations (id, session_id, owner_id, status, expires_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        res.ID, res.SessionID, res.OwnerID, res.Status,
        res.ExpiresAt.UTC(), res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
    )
    return err
}

// GetByID loads a reservation with its items, outside any transaction.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
    const q = `SELECT id, session_id, owner_id, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    items, err := r.items(ctx, r.db, id)
    if err != nil {
        return nil, err
    }
    res.Items = items
    return res, nil
}

// GetForUpdateTx loads a reservation and its items with the reservation
// row locked (SELECT ... FOR UPDATE), serializing concurrent mutations
// of the same reservation for the life of the transaction.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx Tx, id string) (*model.Reservation, error) {
    stx := unwrap(tx)
    if stx == nil {
        return nil, errForeignTx
    }
    const q = `SELECT id, session_id, owner_id, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ? FOR UPDATE`
    res, err := scanReservation(stx.QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    items, err := r.items(ctx, stx, id)
    if err != nil {
        return nil, err
    }
    res.Items = items
    return res, nil
}

// TransitionTx atomically moves a reservation from one status to
// another.  It reports whether this call performed the transition;
// false means another actor already moved the row out of `from`.
func (r *ReservationRepo) TransitionTx(ctx context.Context, tx Tx, id string, from, to model.ReservationStatus) (bool, error) {
    stx := unwrap(tx)
    if stx == nil {
        return false, errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
        to, id, from,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// InsertItemTx appends a line item and returns its generated id.
func (r *ReservationRepo) InsertItemTx(ctx context.Context, tx Tx, item *model.ReservationItem) error {
    stx := unwrap(tx)
    if stx == nil {
        return errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `INSERT INTO reservation_items (reservation_id, category_id, seat_id, quantity, unit_price_cents)
         VALUES (?, ?, ?, ?, ?)`,
        item.ReservationID, item.CategoryID, item.SeatID, item.Quantity, item.UnitPriceCents,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    item.ID = uint64(id)
    return nil
}

// UpdateItemQuantityTx sets the quantity of an item.  Reports whether
// the row existed under the given reservation.
func (r *ReservationRepo) UpdateItemQuantityTx(ctx context.Context, tx Tx, reservationID string, itemID uint64, qty uint32) (bool, error) {
    stx := unwrap(tx)
    if stx == nil {
        return false, errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `UPDATE reservation_items SET quantity = ? WHERE id = ? AND reservation_id = ?`,
        qty, itemID, reservationID,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// DeleteItemTx removes a line item.  The returned bool gates the
// corresponding ledger release: callers only release capacity when this
// call actually consumed the row, which keeps release idempotent under
// duplicate deliveries.
func (r *ReservationRepo) DeleteItemTx(ctx context.Context, tx Tx, reservationID string, itemID uint64) (bool, error) {
    stx := unwrap(tx)
    if stx == nil {
        return false, errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `DELETE FROM reservation_items WHERE id = ? AND reservation_id = ?`,
        itemID, reservationID,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// ListExpiredActive returns ids of active reservations whose hold
// window elapsed at or before now, oldest first, capped at limit.  The
// (status, expires_at) index keeps this scan cheap; the sweep re-checks
// each candidate under FOR UPDATE before releasing anything.
func (r *ReservationRepo) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
    const q = `SELECT id FROM reservations
               WHERE status = 'active' AND expires_at <= ?
               ORDER BY expires_at LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *ReservationRepo) items(ctx context.Context, q queryer, reservationID string) ([]model.ReservationItem, error) {
    const query = `SELECT id, reservation_id, category_id, seat_id, quantity, unit_price_cents, created_at
                   FROM reservation_items WHERE reservation_id = ? ORDER BY id`
    rows, err := q.QueryContext(ctx, query, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var items []model.ReservationItem
    for rows.Next() {
        var it model.ReservationItem
        if err := rows.Scan(&it.ID, &it.ReservationID, &it.CategoryID, &it.SeatID,
            &it.Quantity, &it.UnitPriceCents, &it.CreatedAt); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

func scanReservation(row *sql.Row) (*model.Reservation, error) {
    var res model.Reservation
    err := row.Scan(&res.ID, &res.SessionID, &res.OwnerID, &res.Status,
        &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    return &res, nil
}
