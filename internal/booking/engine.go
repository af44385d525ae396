package booking

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/show-booking-engine/internal/model"
    "github.com/iliyamo/show-booking-engine/internal/repository"
)

// DefaultGracePeriod is how long an unpaid booking keeps its seats
// before becoming eligible for sweeping.
const DefaultGracePeriod = 10 * time.Minute

// Catalog supplies show existence and pricing. The engine treats
// catalog data as read-only.
type Catalog interface {
    GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// Inventory is the authoritative per-show seat occupancy map.
// Claim must be all-or-nothing across the seat set and Release must be
// idempotent; repository.InventoryRepo provides the MySQL
// implementation.
type Inventory interface {
    Available(ctx context.Context, showID uint64, labels []string) (bool, error)
    Claim(ctx context.Context, showID uint64, labels []string, bookingID string) error
    Release(ctx context.Context, showID uint64, labels []string) error
    Occupied(ctx context.Context, showID uint64) ([]string, error)
}

// Ledger records bookings. MarkPaid is a compare-and-set: it flips the
// paid flag only when currently unpaid, so the reconciler and the
// sweeper can race safely on the same booking.
type Ledger interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByID(ctx context.Context, id string) (*model.Booking, error)
    MarkPaid(ctx context.Context, id string) (bool, error)
}

// Scheduler registers one sweep task per booking, firing once at the
// given time.
type Scheduler interface {
    Schedule(bookingID string, at time.Time) error
}

// Events publishes domain events to the message broker. Publish
// failures are logged and ignored by the engine; events must never
// interrupt the request flow.
type Events interface {
    BookingSettled(ctx context.Context, b *model.Booking) error
    BookingExpired(ctx context.Context, b *model.Booking) error
    SettlementConflict(ctx context.Context, bookingID string) error
}

// UseCase is the surface the HTTP handlers depend on.
type UseCase interface {
    Reserve(ctx context.Context, showID uint64, userID string, seatLabels []string) (*model.Booking, error)
    Settle(ctx context.Context, bookingID string) error
    OccupiedSeats(ctx context.Context, showID uint64) ([]string, error)
}

// Engine coordinates reservations and settlements. All mutation of a
// given show's occupancy is serialized through a per-show mutex held
// for the duration of check+claim+ledger-write; the storage layer's
// unique key is the backstop. The paid transition of a single booking
// is delegated to the ledger's compare-and-set operations.
type Engine struct {
    catalog   Catalog
    inventory Inventory
    ledger    Ledger
    sched     Scheduler
    events    Events
    grace     time.Duration
    locks     *showLocks
}

// NewEngine constructs an Engine. sched and events may be nil, in
// which case sweeps are simply not scheduled and events not published;
// production wiring always supplies both.
func NewEngine(catalog Catalog, inventory Inventory, ledger Ledger, sched Scheduler, events Events, grace time.Duration) *Engine {
    if grace <= 0 {
        grace = DefaultGracePeriod
    }
    return &Engine{
        catalog:   catalog,
        inventory: inventory,
        ledger:    ledger,
        sched:     sched,
        events:    events,
        grace:     grace,
        locks:     newShowLocks(),
    }
}

var _ UseCase = (*Engine)(nil)

// GracePeriod returns how long unpaid bookings keep their seats.
func (e *Engine) GracePeriod() time.Duration { return e.grace }

// validateLabels rejects empty requests, blank labels and duplicates
// within one request before any shared state is touched.
func validateLabels(labels []string) error {
    if len(labels) == 0 {
        return fmt.Errorf("%w: seat_labels is required", ErrInvalidRequest)
    }
    seen := make(map[string]struct{}, len(labels))
    for _, l := range labels {
        if strings.TrimSpace(l) == "" {
            return fmt.Errorf("%w: blank seat label", ErrInvalidRequest)
        }
        if _, dup := seen[l]; dup {
            return fmt.Errorf("%w: duplicate seat label %q", ErrInvalidRequest, l)
        }
        seen[l] = struct{}{}
    }
    return nil
}

// Reserve atomically checks and claims the requested seats for a show,
// writes the ledger entry and schedules the expiry sweep. For any two
// concurrent calls on the same show with overlapping seat sets, at
// most one succeeds; the other gets ErrSeatsUnavailable with no
// partial claim.
func (e *Engine) Reserve(ctx context.Context, showID uint64, userID string, seatLabels []string) (*model.Booking, error) {
    if err := validateLabels(seatLabels); err != nil {
        return nil, err
    }
    if userID == "" {
        return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
    }
    show, err := e.catalog.GetByID(ctx, showID)
    if err != nil {
        return nil, err
    }

    mu := e.locks.get(showID)
    mu.Lock()
    defer mu.Unlock()

    free, err := e.inventory.Available(ctx, showID, seatLabels)
    if err != nil {
        return nil, err
    }
    if !free {
        return nil, ErrSeatsUnavailable
    }

    b := &model.Booking{
        ID:          uuid.NewString(),
        UserID:      userID,
        ShowID:      showID,
        Seats:       append([]string(nil), seatLabels...),
        AmountCents: show.PriceCents * uint32(len(seatLabels)),
        CreatedAt:   time.Now().UTC(),
    }

    err = withRetry(ctx, func() error {
        return e.inventory.Claim(ctx, showID, seatLabels, b.ID)
    })
    if errors.Is(err, repository.ErrSeatTaken) {
        return nil, ErrSeatsUnavailable
    }
    if err != nil {
        return nil, err
    }

    if err := e.ledger.Create(ctx, b); err != nil {
        // Without a ledger entry the claim can never settle or be
        // swept; undo it so the seats go back on sale.
        if relErr := e.inventory.Release(ctx, showID, seatLabels); relErr != nil {
            log.Printf("engine: release after failed ledger write for booking %s: %v", b.ID, relErr)
        }
        return nil, err
    }

    if e.sched != nil {
        if err := e.sched.Schedule(b.ID, b.CreatedAt.Add(e.grace)); err != nil {
            log.Printf("engine: schedule sweep for booking %s: %v", b.ID, err)
        }
    }
    return b, nil
}

// Settle marks a booking paid in response to a payment confirmation.
// It is idempotent under at-least-once delivery: a repeat notification
// for an already paid booking is a no-op success. A notification for a
// booking that has already been swept returns
// ErrReconciliationConflict and publishes a conflict event for
// compensating handling.
func (e *Engine) Settle(ctx context.Context, bookingID string) error {
    if bookingID == "" {
        return fmt.Errorf("%w: missing booking id", ErrInvalidRequest)
    }
    var won bool
    err := withRetry(ctx, func() error {
        var casErr error
        won, casErr = e.ledger.MarkPaid(ctx, bookingID)
        return casErr
    })
    if errors.Is(err, repository.ErrBookingNotFound) {
        log.Printf("engine: settlement for swept booking %s", bookingID)
        if e.events != nil {
            if pubErr := e.events.SettlementConflict(ctx, bookingID); pubErr != nil {
                log.Printf("engine: publish settlement conflict for %s: %v", bookingID, pubErr)
            }
        }
        return ErrReconciliationConflict
    }
    if err != nil {
        return err
    }
    if !won {
        // Duplicate notification; the first delivery already settled it.
        log.Printf("engine: duplicate settlement for booking %s", bookingID)
        return nil
    }
    if e.events != nil {
        b, getErr := e.ledger.GetByID(ctx, bookingID)
        if getErr != nil {
            log.Printf("engine: load settled booking %s: %v", bookingID, getErr)
            return nil
        }
        if pubErr := e.events.BookingSettled(ctx, b); pubErr != nil {
            log.Printf("engine: publish settled event for %s: %v", bookingID, pubErr)
        }
    }
    return nil
}

// OccupiedSeats returns the currently occupied seat labels of a show.
// It validates show existence so that an unknown show surfaces as
// repository.ErrShowNotFound rather than an empty list.
func (e *Engine) OccupiedSeats(ctx context.Context, showID uint64) ([]string, error) {
    if _, err := e.catalog.GetByID(ctx, showID); err != nil {
        return nil, err
    }
    return e.inventory.Occupied(ctx, showID)
}

// casAttempts bounds retries around the contended compare-and-set
// steps; unbounded retry risks starving other operations on the same
// show.
const casAttempts = 3

// withRetry runs op, retrying transient storage errors (deadlock, lock
// wait timeout) with a short linear backoff before surfacing the last
// error.
func withRetry(ctx context.Context, op func() error) error {
    var err error
    for attempt := 1; attempt <= casAttempts; attempt++ {
        err = op()
        if err == nil || !repository.IsTransient(err) {
            return err
        }
        select {
        case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}
