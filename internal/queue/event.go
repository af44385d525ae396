// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. One durable queue per event type; routing key equals
// the queue name on the default exchange.
const (
    BookingSettledQueue     = "booking.settled"
    BookingExpiredQueue     = "booking.expired"
    SettlementConflictQueue = "settlement.conflict"
)

// BookingSettledEvent is published when a payment confirmation makes a
// booking permanent. Downstream consumers (notification delivery,
// analytics) get everything they need without querying the primary
// database.
type BookingSettledEvent struct {
    BookingID   string   `json:"booking_id"`
    UserID      string   `json:"user_id"`
    ShowID      uint64   `json:"show_id"`
    SeatLabels  []string `json:"seats"`
    AmountCents uint32   `json:"amount_cents"`
    SettledAt   string   `json:"settled_at"`
}

// BookingExpiredEvent is published when the sweeper releases an unpaid
// booking after the grace period.
type BookingExpiredEvent struct {
    BookingID  string   `json:"booking_id"`
    UserID     string   `json:"user_id"`
    ShowID     uint64   `json:"show_id"`
    SeatLabels []string `json:"seats"`
    ExpiredAt  string   `json:"expired_at"`
}

// SettlementConflictEvent is published when a payment succeeded for a
// booking that had already been swept. It represents real money taken
// for seats that went back on sale and must reach an operator for
// compensating action (re-offer or refund).
type SettlementConflictEvent struct {
    BookingID  string `json:"booking_id"`
    ObservedAt string `json:"observed_at"`
}
