package model

import "time"

// Show represents a single scheduled screening of a movie.  The movie
// itself lives in an external catalog; only an opaque reference is
// stored here.  Every seat of a show is sold at the same unit price.
//
// Fields:
//  ID         – primary key identifier.
//  MovieRef   – opaque reference into the external movie catalog.
//  StartsAt   – when the screening begins.
//  PriceCents – price in cents for each seat of this show.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Show struct {
    ID         uint64    // shows.id
    MovieRef   string    // shows.movie_ref
    StartsAt   time.Time // shows.starts_at
    PriceCents uint32    // shows.price_cents
    CreatedAt  time.Time // shows.created_at
    UpdatedAt  time.Time // shows.updated_at
}
