package repository

import (
    "context"
    "database/sql"
    "strings"
)

// InventoryRepo provides data access to the occupied_seats table, the
// authoritative per-show seat occupancy map. A row (show_id,
// seat_label) -> booking_id means the seat is taken; absence of a row
// means the seat is free. The (show_id, seat_label) primary key is
// what makes a claim all-or-nothing: two overlapping claims can never
// both insert the same key.
type InventoryRepo struct {
    db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// placeholders returns a comma separated list of n "?" markers for use
// in IN (...) clauses.
func placeholders(n int) string {
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Available reports whether every label in the request is currently
// absent from the show's occupancy map. It never errors for business
// reasons; an unknown show simply has no occupied rows and the engine
// validates show existence separately.
func (r *InventoryRepo) Available(ctx context.Context, showID uint64, labels []string) (bool, error) {
    if len(labels) == 0 {
        return true, nil
    }
    q := `SELECT COUNT(*) FROM occupied_seats WHERE show_id = ? AND seat_label IN (` + placeholders(len(labels)) + `)`
    args := make([]interface{}, 0, len(labels)+1)
    args = append(args, showID)
    for _, l := range labels {
        args = append(args, l)
    }
    var taken int
    if err := r.db.QueryRowContext(ctx, q, args...).Scan(&taken); err != nil {
        return false, err
    }
    return taken == 0, nil
}

// Claim inserts label -> bookingID for every requested label, all or
// nothing. The show row is locked for the duration of the transaction
// so that concurrent claims on the same show serialize against each
// other while different shows proceed independently. A conflict on any
// label rolls the whole claim back and returns ErrSeatTaken.
func (r *InventoryRepo) Claim(ctx context.Context, showID uint64, labels []string, bookingID string) error {
    if len(labels) == 0 {
        return nil
    }
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
    // Serialize claims per show via the show row lock.
    var id uint64
    err = tx.QueryRowContext(ctx, `SELECT id FROM shows WHERE id = ? FOR UPDATE`, showID).Scan(&id)
    if err == sql.ErrNoRows {
        return ErrShowNotFound
    }
    if err != nil {
        return err
    }
    // Re-check availability under the lock before inserting.
    q := `SELECT COUNT(*) FROM occupied_seats WHERE show_id = ? AND seat_label IN (` + placeholders(len(labels)) + `)`
    args := make([]interface{}, 0, len(labels)+1)
    args = append(args, showID)
    for _, l := range labels {
        args = append(args, l)
    }
    var taken int
    if err := tx.QueryRowContext(ctx, q, args...).Scan(&taken); err != nil {
        return err
    }
    if taken > 0 {
        return ErrSeatTaken
    }
    ins := `INSERT INTO occupied_seats (show_id, seat_label, booking_id) VALUES `
    insArgs := make([]interface{}, 0, len(labels)*3)
    for i, l := range labels {
        if i > 0 {
            ins += ","
        }
        ins += "(?, ?, ?)"
        insArgs = append(insArgs, showID, l, bookingID)
    }
    if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
        // The primary key is the backstop for claims racing outside the
        // show row lock (e.g. another process).
        if isDuplicateKey(err) {
            return ErrSeatTaken
        }
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Release removes the occupancy rows for the given labels. Removing an
// already-absent key is a no-op, not an error, so a sweep racing with
// a second sweep attempt or manual cleanup stays safe.
func (r *InventoryRepo) Release(ctx context.Context, showID uint64, labels []string) error {
    if len(labels) == 0 {
        return nil
    }
    q := `DELETE FROM occupied_seats WHERE show_id = ? AND seat_label IN (` + placeholders(len(labels)) + `)`
    args := make([]interface{}, 0, len(labels)+1)
    args = append(args, showID)
    for _, l := range labels {
        args = append(args, l)
    }
    _, err := r.db.ExecContext(ctx, q, args...)
    return err
}

// Occupied returns the currently occupied seat labels of a show,
// ordered for deterministic output. When the show has no occupied
// seats (or does not exist), an empty slice is returned.
func (r *InventoryRepo) Occupied(ctx context.Context, showID uint64) ([]string, error) {
    const q = `SELECT seat_label FROM occupied_seats WHERE show_id = ? ORDER BY seat_label`
    rows, err := r.db.QueryContext(ctx, q, showID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    labels := make([]string, 0)
    for rows.Next() {
        var l string
        if err := rows.Scan(&l); err != nil {
            return nil, err
        }
        labels = append(labels, l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return labels, nil
}

// ReleaseOrphaned deletes occupancy rows whose booking no longer
// exists. Such rows can only appear when a process died between
// deleting a swept booking and releasing its seats; the sweeper calls
// this once during startup recovery. It returns the number of rows
// removed.
func (r *InventoryRepo) ReleaseOrphaned(ctx context.Context) (int64, error) {
    const q = `DELETE o FROM occupied_seats o
               LEFT JOIN bookings b ON b.id = o.booking_id
               WHERE b.id IS NULL`
    res, err := r.db.ExecContext(ctx, q)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
