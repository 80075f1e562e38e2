package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/stagefront/ticketing/internal/model"
)

// errCapacityMirrorDrift is returned when the session-wide
// available_capacity counter cannot absorb a decrement the unit row
// already accepted.  The counters are updated in one transaction and
// must stay in lockstep; failing here rolls the whole reservation step
// back instead of letting the aggregate drift silently.
var errCapacityMirrorDrift = errors.New("session available_capacity out of sync with unit ledger")

// InventoryRepo is the inventory ledger: the single source of truth for
// remaining capacity.  Every check-and-reserve is one conditional UPDATE
// scoped to the unit (category row or seat row), so concurrent requests
// against the same unit are serialized by the row lock and requests for
// unrelated units never block each other.  The first statement to
// acquire the row wins; the loser observes zero rows affected and is
// reported insufficient even if capacity existed microseconds earlier.
type InventoryRepo struct {
    db *sql.DB
}

// NewInventoryRepo returns an InventoryRepo bound to the provided database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// ReserveCategoryTx atomically verifies remaining >= qty for the
// category and decrements it.  On success ok is true.  On insufficient
// capacity ok is false and available carries the current remaining so
// callers can report it back to the buyer.  The session's aggregate
// available_capacity is mirrored in the same transaction; a mirror that
// cannot absorb the decrement fails the transaction so the two counters
// never diverge.
func (r *InventoryRepo) ReserveCategoryTx(ctx context.Context, tx Tx, categoryID uint64, qty uint32) (ok bool, available uint32, err error) {
    stx := unwrap(tx)
    if stx == nil {
        return false, 0, errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `UPDATE session_categories SET remaining = remaining - ?, updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND remaining >= ?`,
        qty, categoryID, qty,
    )
    if err != nil {
        return false, 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, 0, err
    }
    if n == 0 {
        // Lost the race or the category never had enough; read back the
        // current remaining for the capacity error payload.
        err = stx.QueryRowContext(ctx,
            `SELECT remaining FROM session_categories WHERE id = ?`, categoryID,
        ).Scan(&available)
        if errors.Is(err, sql.ErrNoRows) {
            return false, 0, ErrCategoryNotFound
        }
        if err != nil {
            return false, 0, err
        }
        return false, available, nil
    }
    res, err = stx.ExecContext(ctx,
        `UPDATE sessions SET available_capacity = available_capacity - ?, updated_at = UTC_TIMESTAMP()
         WHERE id = (SELECT session_id FROM session_categories WHERE id = ?) AND available_capacity >= ?`,
        qty, categoryID, qty,
    )
    if err != nil {
        return false, 0, err
    }
    if n, err = res.RowsAffected(); err != nil {
        return false, 0, err
    }
    if n == 0 {
        return false, 0, errCapacityMirrorDrift
    }
    return true, 0, nil
}

// ReleaseCategoryTx returns qty units to the category pool.  The
// increment is capped at the category total, so a stray double release
// can never inflate capacity beyond what exists.  Callers guarantee
// at-most-once semantics by gating the release on a row they consumed
// in the same transaction (item delete or reservation status flip).
func (r *InventoryRepo) ReleaseCategoryTx(ctx context.Context, tx Tx, categoryID uint64, qty uint32) error {
    stx := unwrap(tx)
    if stx == nil {
        return errForeignTx
    }
    if qty == 0 {
        return nil
    }
    _, err := stx.ExecContext(ctx,
        `UPDATE session_categories SET remaining = LEAST(total, remaining + ?), updated_at = UTC_TIMESTAMP()
         WHERE id = ?`,
        qty, categoryID,
    )
    if err != nil {
        return err
    }
    _, err = stx.ExecContext(ctx,
        `UPDATE sessions SET available_capacity = available_capacity + ?, updated_at = UTC_TIMESTAMP()
         WHERE id = (SELECT session_id FROM session_categories WHERE id = ?)`,
        qty, categoryID,
    )
    return err
}

// HoldSeatTx atomically flips a seat from available to held and records
// the holding reservation.  ok is false when the seat was already held
// or sold by someone else.
func (r *InventoryRepo) HoldSeatTx(ctx context.Context, tx Tx, seatID uint64, reservationID string) (bool, error) {
    stx := unwrap(tx)
    if stx == nil {
        return false, errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `UPDATE seats SET status = 'held', held_by = ?, held_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'available'`,
        reservationID, seatID,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 0 {
        return false, nil
    }
    res, err = stx.ExecContext(ctx,
        `UPDATE sessions SET available_capacity = available_capacity - 1, updated_at = UTC_TIMESTAMP()
         WHERE id = (SELECT session_id FROM seats WHERE id = ?) AND available_capacity >= 1`,
        seatID,
    )
    if err != nil {
        return false, err
    }
    if n, err = res.RowsAffected(); err != nil {
        return false, err
    }
    if n == 0 {
        return false, errCapacityMirrorDrift
    }
    return true, nil
}

// ReleaseSeatTx flips a seat held by the given reservation back to
// available.  Releasing a seat that is not held by that reservation is
// a no-op, which makes release naturally idempotent under duplicate
// cancel deliveries.
func (r *InventoryRepo) ReleaseSeatTx(ctx context.Context, tx Tx, seatID uint64, reservationID string) error {
    stx := unwrap(tx)
    if stx == nil {
        return errForeignTx
    }
    res, err := stx.ExecContext(ctx,
        `UPDATE seats SET status = 'available', held_by = NULL, held_at = NULL, updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'held' AND held_by = ?`,
        seatID, reservationID,
    )
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil || n == 0 {
        return err
    }
    _, err = stx.ExecContext(ctx,
        `UPDATE sessions SET available_capacity = available_capacity + 1, updated_at = UTC_TIMESTAMP()
         WHERE id = (SELECT session_id FROM seats WHERE id = ?)`,
        seatID,
    )
    return err
}

// SellSeatTx converts a hold into a sale on reservation completion.
// The seat stays decremented from availability permanently.
func (r *InventoryRepo) SellSeatTx(ctx context.Context, tx Tx, seatID uint64, reservationID string) error {
    stx := unwrap(tx)
    if stx == nil {
        return errForeignTx
    }
    _, err := stx.ExecContext(ctx,
        `UPDATE seats SET status = 'sold', updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'held' AND held_by = ?`,
        seatID, reservationID,
    )
    return err
}

// CategoryAvailability reads the remaining and total capacity of a
// category outside any transaction, for the browse API.
func (r *InventoryRepo) CategoryAvailability(ctx context.Context, categoryID uint64) (remaining, total uint32, err error) {
    err = r.db.QueryRowContext(ctx,
        `SELECT remaining, total FROM session_categories WHERE id = ?`, categoryID,
    ).Scan(&remaining, &total)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, 0, ErrCategoryNotFound
    }
    return remaining, total, err
}

// SessionAvailability summarizes what is still sellable for one
// session: the aggregate counter plus per-category remainders for
// quantity layouts.
func (r *InventoryRepo) SessionAvailability(ctx context.Context, sessionID uint64) (uint32, []model.SessionCategory, error) {
    var capacity uint32
    err := r.db.QueryRowContext(ctx,
        `SELECT available_capacity FROM sessions WHERE id = ?`, sessionID,
    ).Scan(&capacity)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, nil, ErrSessionNotFound
    }
    if err != nil {
        return 0, nil, err
    }
    const q = `SELECT id, session_id, name, price_cents, max_per_order, total, remaining, created_at, updated_at
               FROM session_categories WHERE session_id = ? ORDER BY price_cents, id`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return 0, nil, err
    }
    defer rows.Close()
    var cats []model.SessionCategory
    for rows.Next() {
        var c model.SessionCategory
        if err := rows.Scan(&c.ID, &c.SessionID, &c.Name, &c.PriceCents, &c.MaxPerOrder,
            &c.Total, &c.Remaining, &c.CreatedAt, &c.UpdatedAt); err != nil {
            return 0, nil, err
        }
        cats = append(cats, c)
    }
    return capacity, cats, rows.Err()
}
