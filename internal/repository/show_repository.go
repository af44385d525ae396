// This file contains data access logic for shows. A Show is a scheduled
// screening with a unit seat price; the movie metadata itself lives in
// the external catalog and is referenced opaquely via movie_ref.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction

    "github.com/iliyamo/show-booking-engine/internal/model"
)

// ShowRepo manages persistence for shows. All timestamps are stored in
// UTC; database.Open configures the driver accordingly.
type ShowRepo struct {
    db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
    return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB {
    return r.db
}

// Create inserts a new show and assigns the generated ID back to the
// struct. The caller must provide movie_ref, starts_at and
// price_cents. Timestamps are populated from the inserted row.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
    const q = `INSERT INTO shows (movie_ref, starts_at, price_cents) VALUES (?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, s.MovieRef, s.StartsAt.UTC(), s.PriceCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    const sel = `SELECT id, movie_ref, starts_at, price_cents, created_at, updated_at FROM shows WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.MovieRef, &s.StartsAt, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
    )
}

// GetByID retrieves a show by its ID. It returns ErrShowNotFound when
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
    const q = `SELECT id, movie_ref, starts_at, price_cents, created_at, updated_at FROM shows WHERE id = ?`
    var s model.Show
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.MovieRef, &s.StartsAt, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrShowNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// List returns all shows ordered by start time ascending. When no
// shows exist, an empty slice is returned.
func (r *ShowRepo) List(ctx context.Context) ([]model.Show, error) {
    const q = `SELECT id, movie_ref, starts_at, price_cents, created_at, updated_at FROM shows ORDER BY starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    shows := make([]model.Show, 0)
    for rows.Next() {
        var s model.Show
        if err := rows.Scan(&s.ID, &s.MovieRef, &s.StartsAt, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt); err != nil {
            return nil, err
        }
        shows = append(shows, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return shows, nil
}
