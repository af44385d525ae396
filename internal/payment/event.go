// Package payment models the asynchronous notifications pushed by the
// external payment processor and verifies their signatures. The
// processor echoes back the booking id it was handed as opaque
// metadata at checkout time; that id is the sole join key between a
// booking and its settlement.
package payment

import (
    "encoding/json"
    "fmt"
)

// EventCheckoutCompleted is the event type the processor sends when a
// checkout payment succeeds. Any other type is treated as a logged
// no-op by the webhook handler.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is a payment processor notification. Only the success type
// carries a booking id; other types are acknowledged and ignored.
type Event struct {
    Type string    `json:"type"`
    Data EventData `json:"data"`
}

// EventData holds the correlation metadata of a notification.
type EventData struct {
    BookingID string `json:"booking_id"`
}

// ParseEvent decodes a notification payload. A payload that is not
// valid JSON is malformed; an unknown type is NOT an error here — the
// handler decides how to treat types it does not care about.
func ParseEvent(body []byte) (Event, error) {
    var ev Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return Event{}, fmt.Errorf("malformed event payload: %w", err)
    }
    return ev, nil
}
