// Package booking implements the seat reservation and settlement
// engine: the atomic check-and-claim of seats for a show, the
// idempotent consumption of payment confirmations, and the timed
// release of unpaid holds after a grace period.
package booking

import "errors"

// ErrInvalidRequest is returned for malformed input such as an empty
// seat list or duplicate labels within one request. It is rejected
// before any shared state is touched. Handlers should translate this
// into an HTTP 400 response.
var ErrInvalidRequest = errors.New("invalid request")

// ErrSeatsUnavailable is returned when at least one requested seat is
// already occupied. The attempt is terminal; the caller may retry with
// a fresh seat selection. Handlers should translate this into an HTTP
// 409 response.
var ErrSeatsUnavailable = errors.New("seats unavailable")

// ErrReconciliationConflict is returned when a payment confirmation
// arrives for a booking that has already been swept: the payment
// succeeded for inventory that has since been released. It represents
// a financial discrepancy requiring compensating action and must never
// be silently absorbed.
var ErrReconciliationConflict = errors.New("reconciliation conflict")
