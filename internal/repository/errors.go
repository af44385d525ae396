// Package repository defines error values and classifiers shared across
// the repositories. These sentinels let higher layers such as the
// booking engine and the handlers distinguish failure scenarios with
// errors.Is instead of inspecting driver-specific error codes.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrBookingNotFound indicates that a booking was not located in the
// DB. At settlement time this usually means the booking has already
// been swept; the engine turns it into a reconciliation conflict.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatTaken is returned by InventoryRepo.Claim when at least one of
// the requested seat labels is already present in occupied_seats. The
// claim is all-or-nothing, so no rows were inserted.
var ErrSeatTaken = errors.New("seat already taken")

// IsTransient reports whether err is a storage error that is worth a
// bounded retry: an InnoDB deadlock (1213) or a lock wait timeout
// (1205). Everything else, including duplicate keys, is terminal.
func IsTransient(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1213 || me.Number == 1205
    }
    return false
}

// isDuplicateKey reports whether err is a MySQL duplicate-key error
// (1062), used by the inventory claim to detect a lost race on the
// (show_id, seat_label) unique key.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1062
    }
    return false
}
