package model

import "time"

// Booking records a user's claim on a set of seats for one show.  A
// booking starts out unpaid and provisional: unless the external
// payment processor confirms it within the grace period, the booking
// is deleted and its seats are released.  Once IsPaid flips to true
// the booking is permanent and is never swept.
//
// Fields:
//  ID          – opaque booking identifier (UUID), generated at creation.
//              It round-trips through the payment processor as
//              correlation metadata and comes back in the success
//              notification.
//  UserID      – verified user id supplied by the identity provider.
//  ShowID      – show whose seats are claimed.
//  Seats       – seat labels claimed, in request order, unique within
//              the booking.
//  AmountCents – total price: show price × number of seats.
//  IsPaid      – false while provisional, true once settled.
//  CreatedAt   – when the claim was made; the sweep deadline is
//              CreatedAt plus the configured grace period.
type Booking struct {
    ID          string    // bookings.id
    UserID      string    // bookings.user_id
    ShowID      uint64    // bookings.show_id
    Seats       []string  // booking_seats rows, ordered by seq
    AmountCents uint32    // bookings.amount_cents
    IsPaid      bool      // bookings.is_paid
    CreatedAt   time.Time // bookings.created_at
}
