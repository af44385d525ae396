package booking

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/go-co-op/gocron/v2"

    "github.com/iliyamo/show-booking-engine/internal/model"
    "github.com/iliyamo/show-booking-engine/internal/repository"
)

// SweepLedger is the slice of the ledger the sweeper needs.
// DeleteUnpaid is the compare-and-set that decides the race against
// settlement: delete only if currently unpaid.
type SweepLedger interface {
    DeleteUnpaid(ctx context.Context, id string) (*model.Booking, bool, error)
    ListUnpaid(ctx context.Context) ([]model.Booking, error)
}

// SweepInventory is the slice of the inventory the sweeper needs.
type SweepInventory interface {
    Release(ctx context.Context, showID uint64, labels []string) error
    ReleaseOrphaned(ctx context.Context) (int64, error)
}

// Sweeper runs one delayed task per booking, scheduled at reservation
// time and firing once the grace period elapses. A firing task checks
// the booking's paid state atomically: still unpaid means the booking
// is deleted and its seats released; already paid means the task does
// nothing. No external cancellation bookkeeping exists — settling a
// booking simply turns its pending task into a guaranteed no-op.
// Tasks live in the scheduler, not in any request's lifetime, and
// Recover rebuilds them from the ledger after a restart.
type Sweeper struct {
    ledger SweepLedger
    inv    SweepInventory
    events Events
    grace  time.Duration
    sched  gocron.Scheduler
}

// NewSweeper builds a Sweeper with its own scheduler. Call Start once
// wiring is complete and Stop during shutdown.
func NewSweeper(ledger SweepLedger, inv SweepInventory, events Events, grace time.Duration) (*Sweeper, error) {
    if grace <= 0 {
        grace = DefaultGracePeriod
    }
    s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
    if err != nil {
        return nil, err
    }
    return &Sweeper{
        ledger: ledger,
        inv:    inv,
        events: events,
        grace:  grace,
        sched:  s,
    }, nil
}

// Start begins executing scheduled sweep tasks.
func (s *Sweeper) Start() { s.sched.Start() }

// Stop shuts the scheduler down, waiting for running tasks to finish.
func (s *Sweeper) Stop() error { return s.sched.Shutdown() }

// Schedule registers a one-time sweep for a booking at the given
// instant. Deadlines already in the past (recovery after downtime) are
// clamped to fire almost immediately; gocron rejects start times
// before now.
func (s *Sweeper) Schedule(bookingID string, at time.Time) error {
    now := time.Now().UTC()
    if !at.After(now) {
        at = now.Add(time.Second)
    }
    _, err := s.sched.NewJob(
        gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
        gocron.NewTask(s.fire, bookingID),
        gocron.WithTags("booking:"+bookingID),
    )
    return err
}

func (s *Sweeper) fire(bookingID string) {
    ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
    defer cancel()
    if err := s.Sweep(ctx, bookingID); err != nil {
        log.Printf("sweeper: sweep booking %s: %v", bookingID, err)
    }
}

// Sweep releases an unpaid booking's seats and deletes its ledger
// entry. A booking that settled in the meantime, or that another sweep
// already removed, is left untouched. Exactly one of settlement and
// sweep ever takes effect for a given booking; the ledger's
// compare-and-set decides which.
func (s *Sweeper) Sweep(ctx context.Context, bookingID string) error {
    var b *model.Booking
    var deleted bool
    err := withRetry(ctx, func() error {
        var casErr error
        b, deleted, casErr = s.ledger.DeleteUnpaid(ctx, bookingID)
        return casErr
    })
    if errors.Is(err, repository.ErrBookingNotFound) {
        // Already swept.
        return nil
    }
    if err != nil {
        return err
    }
    if !deleted {
        // Settlement won; seats stay occupied permanently.
        return nil
    }
    if err := withRetry(ctx, func() error {
        return s.inv.Release(ctx, b.ShowID, b.Seats)
    }); err != nil {
        return err
    }
    log.Printf("sweeper: expired booking %s released %d seat(s) of show %d", b.ID, len(b.Seats), b.ShowID)
    if s.events != nil {
        if pubErr := s.events.BookingExpired(ctx, b); pubErr != nil {
            log.Printf("sweeper: publish expired event for %s: %v", b.ID, pubErr)
        }
    }
    return nil
}

// Recover rebuilds sweep tasks after a process restart: it releases
// occupancy rows orphaned by a crash mid-sweep, then schedules a task
// for every unpaid booking at its original deadline.
func (s *Sweeper) Recover(ctx context.Context) error {
    if n, err := s.inv.ReleaseOrphaned(ctx); err != nil {
        log.Printf("sweeper: release orphaned seats: %v", err)
    } else if n > 0 {
        log.Printf("sweeper: released %d orphaned seat(s)", n)
    }
    pending, err := s.ledger.ListUnpaid(ctx)
    if err != nil {
        return err
    }
    for _, b := range pending {
        if err := s.Schedule(b.ID, b.CreatedAt.Add(s.grace)); err != nil {
            log.Printf("sweeper: reschedule booking %s: %v", b.ID, err)
        }
    }
    if len(pending) > 0 {
        log.Printf("sweeper: rescheduled %d pending booking(s)", len(pending))
    }
    return nil
}
