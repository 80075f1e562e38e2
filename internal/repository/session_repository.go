package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/stagefront/ticketing/internal/model"
)

// SessionRepo provides read-only access to sessions, categories, blocks
// and seats.  Back-office processes own these rows; the reservation core
// only validates existence and status before mutating holds, and serves
// the public browse endpoints.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// GetByID fetches a single session.  Returns ErrSessionNotFound when the
// id does not exist.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
    const q = `SELECT id, event_id, status, layout_type, available_capacity, reservation_minutes, starts_at, created_at, updated_at
               FROM sessions WHERE id = ?`
    var s model.Session
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.EventID, &s.Status, &s.LayoutType, &s.AvailableCapacity,
        &s.ReservationMinutes, &s.StartsAt, &s.CreatedAt, &s.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// GetCategory fetches a single session category.  Returns
// ErrCategoryNotFound when the id does not exist.
func (r *SessionRepo) GetCategory(ctx context.Context, id uint64) (*model.SessionCategory, error) {
    const q = `SELECT id, session_id, name, price_cents, max_per_order, total, remaining, created_at, updated_at
               FROM session_categories WHERE id = ?`
    var c model.SessionCategory
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &c.ID, &c.SessionID, &c.Name, &c.PriceCents, &c.MaxPerOrder,
        &c.Total, &c.Remaining, &c.CreatedAt, &c.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrCategoryNotFound
    }
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// CategoriesBySession lists the priced tiers of a quantity-layout
// session ordered by price.  An empty slice means the session has no
// categories (or uses a seat layout).
func (r *SessionRepo) CategoriesBySession(ctx context.Context, sessionID uint64) ([]model.SessionCategory, error) {
    const q = `SELECT id, session_id, name, price_cents, max_per_order, total, remaining, created_at, updated_at
               FROM session_categories WHERE session_id = ? ORDER BY price_cents, id`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SessionCategory
    for rows.Next() {
        var c model.SessionCategory
        if err := rows.Scan(&c.ID, &c.SessionID, &c.Name, &c.PriceCents, &c.MaxPerOrder,
            &c.Total, &c.Remaining, &c.CreatedAt, &c.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// BlocksBySession lists the seat blocks of a block-layout session.
func (r *SessionRepo) BlocksBySession(ctx context.Context, sessionID uint64) ([]model.Block, error) {
    const q = `SELECT id, session_id, name, seat_count, created_at
               FROM blocks WHERE session_id = ? ORDER BY name, id`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Block
    for rows.Next() {
        var b model.Block
        if err := rows.Scan(&b.ID, &b.SessionID, &b.Name, &b.SeatCount, &b.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// GetBlock fetches one block.  Returns ErrBlockNotFound when missing.
func (r *SessionRepo) GetBlock(ctx context.Context, id uint64) (*model.Block, error) {
    const q = `SELECT id, session_id, name, seat_count, created_at FROM blocks WHERE id = ?`
    var b model.Block
    err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.SessionID, &b.Name, &b.SeatCount, &b.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBlockNotFound
    }
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// SeatsByBlock lists the seats of one block with their live statuses.
// Blocks keep seat lists small enough to load lazily per block rather
// than per session.
func (r *SessionRepo) SeatsByBlock(ctx context.Context, blockID uint64) ([]model.Seat, error) {
    const q = `SELECT id, session_id, block_id, row_label, number, status, price_cents, held_by, held_at, created_at, updated_at
               FROM seats WHERE block_id = ? ORDER BY row_label, number`
    rows, err := r.db.QueryContext(ctx, q, blockID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.SessionID, &s.BlockID, &s.RowLabel, &s.Number, &s.Status,
            &s.PriceCents, &s.HeldBy, &s.HeldAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// GetSeat fetches one seat.  Returns ErrSeatNotFound when missing.
func (r *SessionRepo) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
    const q = `SELECT id, session_id, block_id, row_label, number, status, price_cents, held_by, held_at, created_at, updated_at
               FROM seats WHERE id = ?`
    var s model.Seat
    err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.SessionID, &s.BlockID, &s.RowLabel, &s.Number,
        &s.Status, &s.PriceCents, &s.HeldBy, &s.HeldAt, &s.CreatedAt, &s.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSeatNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}
