package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/show-booking-engine/internal/model"
)

// BookingRepo provides CRUD operations for the booking ledger. A
// booking row plus its booking_seats rows record who claimed what,
// when, at what price, and whether payment settled. The paid flag
// transitions exactly once, via the conditional updates below; the
// repo never mutates occupied_seats.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a booking and its seat rows in one transaction. The
// caller supplies the generated ID; CreatedAt is populated from the
// inserted row.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `INSERT INTO bookings (id, user_id, show_id, amount_cents, is_paid) VALUES (?, ?, ?, ?, 0)`
    if _, err := tx.ExecContext(ctx, q, b.ID, b.UserID, b.ShowID, b.AmountCents); err != nil {
        return err
    }
    if len(b.Seats) > 0 {
        ins := `INSERT INTO booking_seats (booking_id, seq, seat_label) VALUES `
        args := make([]interface{}, 0, len(b.Seats)*3)
        for i, l := range b.Seats {
            if i > 0 {
                ins += ","
            }
            ins += "(?, ?, ?)"
            args = append(args, b.ID, i, l)
        }
        if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
            return err
        }
    }
    // Query back created_at so the caller sees the authoritative timestamp.
    if err := tx.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    b.IsPaid = false
    return nil
}

// GetByID loads a booking and its seat labels. It returns
// ErrBookingNotFound when no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
    const q = `SELECT id, user_id, show_id, amount_cents, is_paid, created_at FROM bookings WHERE id = ?`
    var b model.Booking
    err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.UserID, &b.ShowID, &b.AmountCents, &b.IsPaid, &b.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrBookingNotFound
    }
    if err != nil {
        return nil, err
    }
    seats, err := r.seatsOf(ctx, r.db, id)
    if err != nil {
        return nil, err
    }
    b.Seats = seats
    return &b, nil
}

type queryer interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// seatsOf loads the ordered seat labels of a booking using either the
// pool or an open transaction.
func (r *BookingRepo) seatsOf(ctx context.Context, q queryer, bookingID string) ([]string, error) {
    rows, err := q.QueryContext(ctx, `SELECT seat_label FROM booking_seats WHERE booking_id = ? ORDER BY seq`, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]string, 0)
    for rows.Next() {
        var l string
        if err := rows.Scan(&l); err != nil {
            return nil, err
        }
        seats = append(seats, l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}

// MarkPaid flips is_paid to true only if it is currently false. It
// returns true when this call performed the transition, false when the
// booking was already paid (a duplicate notification), and
// ErrBookingNotFound when the booking no longer exists. Whichever of
// MarkPaid and DeleteUnpaid observes the unpaid state first wins; the
// loser becomes a no-op.
func (r *BookingRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
    res, err := r.db.ExecContext(ctx, `UPDATE bookings SET is_paid = 1 WHERE id = ? AND is_paid = 0`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 1 {
        return true, nil
    }
    // Either already paid or already swept; look at the row to tell.
    var paid bool
    err = r.db.QueryRowContext(ctx, `SELECT is_paid FROM bookings WHERE id = ?`, id).Scan(&paid)
    if err == sql.ErrNoRows {
        return false, ErrBookingNotFound
    }
    if err != nil {
        return false, err
    }
    return false, nil
}

// DeleteUnpaid removes the booking and its seat rows only if it is
// still unpaid, returning the deleted booking so the caller can
// release its seats. It returns (nil, false, nil) when the booking is
// already paid and ErrBookingNotFound when it no longer exists. The
// check and the delete run under a row lock so the paid transition
// cannot slip in between them.
func (r *BookingRepo) DeleteUnpaid(ctx context.Context, id string) (*model.Booking, bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `SELECT id, user_id, show_id, amount_cents, is_paid, created_at FROM bookings WHERE id = ? FOR UPDATE`
    var b model.Booking
    err = tx.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.UserID, &b.ShowID, &b.AmountCents, &b.IsPaid, &b.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, false, ErrBookingNotFound
    }
    if err != nil {
        return nil, false, err
    }
    if b.IsPaid {
        // Settlement won the race; the sweep is a no-op.
        return nil, false, nil
    }
    seats, err := r.seatsOf(ctx, tx, id)
    if err != nil {
        return nil, false, err
    }
    b.Seats = seats
    if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, id); err != nil {
        return nil, false, err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
        return nil, false, err
    }
    if err := tx.Commit(); err != nil {
        return nil, false, err
    }
    committed = true
    return &b, true, nil
}

// ListUnpaid returns all bookings that have not settled yet, oldest
// first. The sweeper uses it at startup to reschedule expiry tasks
// that were pending when the previous process stopped.
func (r *BookingRepo) ListUnpaid(ctx context.Context) ([]model.Booking, error) {
    const q = `SELECT id, user_id, show_id, amount_cents, is_paid, created_at FROM bookings WHERE is_paid = 0 ORDER BY created_at ASC`
    return r.list(ctx, q)
}

// ListByUser returns all bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
    const q = `SELECT id, user_id, show_id, amount_cents, is_paid, created_at FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, userID)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        var b model.Booking
        if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &b.AmountCents, &b.IsPaid, &b.CreatedAt); err != nil {
            return nil, err
        }
        bookings = append(bookings, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range bookings {
        seats, err := r.seatsOf(ctx, r.db, bookings[i].ID)
        if err != nil {
            return nil, err
        }
        bookings[i].Seats = seats
    }
    return bookings, nil
}
