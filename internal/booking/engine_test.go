package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/show-booking-engine/internal/model"
	"github.com/iliyamo/show-booking-engine/internal/repository"
)

// memCatalog is an in-memory Catalog fake.
type memCatalog struct {
	shows map[uint64]*model.Show
}

func (c *memCatalog) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	s, ok := c.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return s, nil
}

// memInventory is an in-memory Inventory fake with the same
// all-or-nothing claim semantics as the MySQL repository.
type memInventory struct {
	mu       sync.Mutex
	occupied map[uint64]map[string]string // showID -> label -> bookingID
}

func newMemInventory() *memInventory {
	return &memInventory{occupied: make(map[uint64]map[string]string)}
}

func (m *memInventory) Available(_ context.Context, showID uint64, labels []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range labels {
		if _, taken := m.occupied[showID][l]; taken {
			return false, nil
		}
	}
	return true, nil
}

func (m *memInventory) Claim(_ context.Context, showID uint64, labels []string, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range labels {
		if _, taken := m.occupied[showID][l]; taken {
			return repository.ErrSeatTaken
		}
	}
	if m.occupied[showID] == nil {
		m.occupied[showID] = make(map[string]string)
	}
	for _, l := range labels {
		m.occupied[showID][l] = bookingID
	}
	return nil
}

func (m *memInventory) Release(_ context.Context, showID uint64, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range labels {
		delete(m.occupied[showID], l)
	}
	return nil
}

func (m *memInventory) Occupied(_ context.Context, showID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, 0, len(m.occupied[showID]))
	for l := range m.occupied[showID] {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels, nil
}

func (m *memInventory) ReleaseOrphaned(_ context.Context) (int64, error) { return 0, nil }

// memLedger is an in-memory Ledger fake whose MarkPaid and
// DeleteUnpaid mirror the repository's compare-and-set behavior.
type memLedger struct {
	mu sync.Mutex
	m  map[string]*model.Booking
}

func newMemLedger() *memLedger { return &memLedger{m: make(map[string]*model.Booking)} }

func (l *memLedger) Create(_ context.Context, b *model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *b
	l.m[b.ID] = &cp
	return nil
}

func (l *memLedger) GetByID(_ context.Context, id string) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (l *memLedger) MarkPaid(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.IsPaid {
		return false, nil
	}
	b.IsPaid = true
	return true, nil
}

func (l *memLedger) DeleteUnpaid(_ context.Context, id string) (*model.Booking, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[id]
	if !ok {
		return nil, false, repository.ErrBookingNotFound
	}
	if b.IsPaid {
		return nil, false, nil
	}
	delete(l.m, id)
	cp := *b
	return &cp, true, nil
}

func (l *memLedger) ListUnpaid(_ context.Context) ([]model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Booking
	for _, b := range l.m {
		if !b.IsPaid {
			out = append(out, *b)
		}
	}
	return out, nil
}

// recordScheduler records scheduled sweeps instead of running them.
type recordScheduler struct {
	mu    sync.Mutex
	calls []struct {
		bookingID string
		at        time.Time
	}
}

func (r *recordScheduler) Schedule(bookingID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		bookingID string
		at        time.Time
	}{bookingID, at})
	return nil
}

// recordEvents records published event ids per kind.
type recordEvents struct {
	mu        sync.Mutex
	settled   []string
	expired   []string
	conflicts []string
}

func (r *recordEvents) BookingSettled(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, b.ID)
	return nil
}

func (r *recordEvents) BookingExpired(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, b.ID)
	return nil
}

func (r *recordEvents) SettlementConflict(_ context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, bookingID)
	return nil
}

type fixture struct {
	engine *Engine
	cat    *memCatalog
	inv    *memInventory
	ledger *memLedger
	sched  *recordScheduler
	events *recordEvents
}

func newFixture() *fixture {
	cat := &memCatalog{shows: map[uint64]*model.Show{
		1: {ID: 1, MovieRef: "mv-1", StartsAt: time.Now().Add(time.Hour), PriceCents: 1500},
		2: {ID: 2, MovieRef: "mv-2", StartsAt: time.Now().Add(2 * time.Hour), PriceCents: 900},
	}}
	inv := newMemInventory()
	ledger := newMemLedger()
	sched := &recordScheduler{}
	events := &recordEvents{}
	return &fixture{
		engine: NewEngine(cat, inv, ledger, sched, events, 10*time.Minute),
		cat:    cat,
		inv:    inv,
		ledger: ledger,
		sched:  sched,
		events: events,
	}
}

func TestReserveComputesAmountAndSchedulesSweep(t *testing.T) {
	f := newFixture()
	b, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1", "A2", "A3"})
	assert.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, uint32(4500), b.AmountCents)
	assert.Equal(t, []string{"A1", "A2", "A3"}, b.Seats)
	assert.False(t, b.IsPaid)

	stored, err := f.ledger.GetByID(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, b.AmountCents, stored.AmountCents)

	if assert.Len(t, f.sched.calls, 1) {
		assert.Equal(t, b.ID, f.sched.calls[0].bookingID)
		assert.Equal(t, b.CreatedAt.Add(10*time.Minute), f.sched.calls[0].at)
	}

	labels, err := f.engine.OccupiedSeats(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, labels)
}

func TestReserveValidation(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name   string
		userID string
		labels []string
	}{
		{"empty seat list", "user-1", nil},
		{"blank label", "user-1", []string{"A1", " "}},
		{"duplicate label", "user-1", []string{"A1", "A1"}},
		{"missing user", "", []string{"A1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Reserve(context.Background(), 1, tc.userID, tc.labels)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	// Nothing may have been claimed or scheduled.
	labels, _ := f.inv.Occupied(context.Background(), 1)
	assert.Empty(t, labels)
	assert.Empty(t, f.sched.calls)
}

func TestReserveUnknownShow(t *testing.T) {
	f := newFixture()
	_, err := f.engine.Reserve(context.Background(), 99, "user-1", []string{"A1"})
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestReserveOverlappingSeatsRejected(t *testing.T) {
	f := newFixture()
	_, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1", "A2"})
	assert.NoError(t, err)

	// Overlaps on A2; must fail entirely, claiming nothing.
	_, err = f.engine.Reserve(context.Background(), 1, "user-2", []string{"A2", "A3"})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	labels, _ := f.engine.OccupiedSeats(context.Background(), 1)
	assert.Equal(t, []string{"A1", "A2"}, labels)
}

func TestReserveSameLabelsDifferentShows(t *testing.T) {
	f := newFixture()
	_, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1"})
	assert.NoError(t, err)
	_, err = f.engine.Reserve(context.Background(), 2, "user-2", []string{"A1"})
	assert.NoError(t, err)
}

func TestConcurrentDisjointReservations(t *testing.T) {
	f := newFixture()
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label := fmt.Sprintf("B%d", i)
			_, errs[i] = f.engine.Reserve(context.Background(), 1, fmt.Sprintf("user-%d", i), []string{label})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "reservation %d", i)
	}
	labels, _ := f.engine.OccupiedSeats(context.Background(), 1)
	assert.Len(t, labels, 10)
}

func TestConcurrentOverlappingExactlyOneWins(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture()
		const contenders = 8
		var wg sync.WaitGroup
		errs := make([]error, contenders)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.engine.Reserve(context.Background(), 1, fmt.Sprintf("user-%d", i), []string{"C1", "C2"})
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			default:
				assert.ErrorIs(t, err, ErrSeatsUnavailable)
				lost++
			}
		}
		assert.Equal(t, 1, won, "round %d", round)
		assert.Equal(t, contenders-1, lost, "round %d", round)

		labels, _ := f.engine.OccupiedSeats(context.Background(), 1)
		assert.Equal(t, []string{"C1", "C2"}, labels, "round %d", round)
	}
}

func TestSettleMarksPaidAndPublishes(t *testing.T) {
	f := newFixture()
	b, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1"})
	assert.NoError(t, err)

	assert.NoError(t, f.engine.Settle(context.Background(), b.ID))

	stored, err := f.ledger.GetByID(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, []string{b.ID}, f.events.settled)
}

func TestSettleDuplicateIsNoOp(t *testing.T) {
	f := newFixture()
	b, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1"})
	assert.NoError(t, err)

	assert.NoError(t, f.engine.Settle(context.Background(), b.ID))
	assert.NoError(t, f.engine.Settle(context.Background(), b.ID))

	// Only the first delivery published an event.
	assert.Equal(t, []string{b.ID}, f.events.settled)
}

func TestSettleAfterSweepIsConflict(t *testing.T) {
	f := newFixture()
	b, err := f.engine.Reserve(context.Background(), 1, "user-1", []string{"A1"})
	assert.NoError(t, err)

	// Simulate the sweep winning: unpaid delete plus seat release.
	_, deleted, err := f.ledger.DeleteUnpaid(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, f.inv.Release(context.Background(), 1, b.Seats))

	err = f.engine.Settle(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrReconciliationConflict)
	assert.Equal(t, []string{b.ID}, f.events.conflicts)
	assert.Empty(t, f.events.settled)
}

func TestSettleMissingBookingID(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.engine.Settle(context.Background(), ""), ErrInvalidRequest)
}

func TestOccupiedSeatsUnknownShow(t *testing.T) {
	f := newFixture()
	_, err := f.engine.OccupiedSeats(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

// TestReservationLifecycle walks a show through the full flow: two
// bookings claim seats, a contended attempt loses, one booking expires
// unpaid and frees its seats, the other settles and keeps them.
func TestReservationLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b1, err := f.engine.Reserve(ctx, 1, "alice", []string{"A1", "A2"})
	assert.NoError(t, err)
	assert.Equal(t, uint32(3000), b1.AmountCents)

	_, err = f.engine.Reserve(ctx, 1, "bob", []string{"A2", "A3"})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	b2, err := f.engine.Reserve(ctx, 1, "bob", []string{"A3"})
	assert.NoError(t, err)
	assert.Equal(t, uint32(1500), b2.AmountCents)

	labels, _ := f.engine.OccupiedSeats(ctx, 1)
	assert.Equal(t, []string{"A1", "A2", "A3"}, labels)

	// b2 settles; b1 stays unpaid and gets swept.
	assert.NoError(t, f.engine.Settle(ctx, b2.ID))
	sw, err := NewSweeper(f.ledger, f.inv, f.events, time.Minute)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = sw.Stop() })
	assert.NoError(t, sw.Sweep(ctx, b1.ID))
	assert.NoError(t, sw.Sweep(ctx, b2.ID))

	labels, _ = f.engine.OccupiedSeats(ctx, 1)
	assert.Equal(t, []string{"A3"}, labels)
	_, err = f.ledger.GetByID(ctx, b1.ID)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	settled, err := f.ledger.GetByID(ctx, b2.ID)
	assert.NoError(t, err)
	assert.True(t, settled.IsPaid)
	assert.Equal(t, []string{b2.ID}, f.events.settled)
	assert.Equal(t, []string{b1.ID}, f.events.expired)
}

func TestOccupiedSeatsEmptyShow(t *testing.T) {
	f := newFixture()
	labels, err := f.engine.OccupiedSeats(context.Background(), 1)
	assert.NoError(t, err)
	assert.Empty(t, labels)
}
