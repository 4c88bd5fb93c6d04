package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go-cleaning-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *entity.Booking {
	t.Helper()
	booking, err := e.bookingRepo.FindByID(e.db, id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}

func (e *testEnv) count(t *testing.T, providerID uuid.UUID) int {
	t.Helper()
	n, err := e.store.CurrentBookingCount(context.Background(), providerID, bookingDate)
	require.NoError(t, err)
	return n
}

func TestBookingLifecycle_CreateIsPending(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createPending(t, "08:00-10:00")

	stored := env.reload(t, booking.ID)
	assert.Equal(t, entity.BookingStatusPending, stored.Status)
	assert.Nil(t, stored.AssignedProviderID)
	assert.Equal(t, []entity.BookingEventType{entity.BookingEventCreated}, env.publisher.types())

	logs, err := env.auditRepo.FindByEntity(env.db, entity.AuditEntityBooking, booking.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entity.AuditActionBookingCreate, logs[0].Action)
	assert.Equal(t, "tester", logs[0].Actor)
}

func TestBookingLifecycle_ConfirmAssignsMatchedProvider(t *testing.T) {
	env := newTestEnv(t)
	p1, _, _ := env.seedReferenceProviders(t)
	booking := env.createPending(t, "08:00-10:00")

	confirmed, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.AssignedProviderID)
	assert.Equal(t, p1.ID, *confirmed.AssignedProviderID)

	stored := env.reload(t, booking.ID)
	assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)
	assert.NotNil(t, stored.ReservationID)
	assert.NotNil(t, stored.ConfirmedAt)
	assert.Equal(t, 1, env.count(t, p1.ID))

	assert.Equal(t, []entity.BookingEventType{entity.BookingEventCreated, entity.BookingEventConfirmed}, env.publisher.types())
}

func TestBookingLifecycle_ConfirmWithoutProviderStaysPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedReferenceProviders(t)
	booking := env.createPending(t, "13:00-15:00")

	_, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil)
	assert.ErrorIs(t, err, ErrNoProviderAvailable)
	assert.Equal(t, entity.BookingStatusPending, env.reload(t, booking.ID).Status)
}

func TestBookingLifecycle_ConfirmOutsideAdvanceWindow(t *testing.T) {
	env := newTestEnv(t)
	p1, _, _ := env.seedReferenceProviders(t)
	booking := env.createPending(t, "08:00-10:00")

	// 07:00 on the booked day leaves one hour of notice
	env.clock.Advance(46 * time.Hour)

	_, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil)
	assert.ErrorIs(t, err, ErrAdvanceWindowViolation)
	assert.Equal(t, entity.BookingStatusPending, env.reload(t, booking.ID).Status)
	assert.Zero(t, env.count(t, p1.ID))
}

func TestBookingLifecycle_RejectsSlotsOffTheGrid(t *testing.T) {
	env := newTestEnv(t)
	p1, p2, _ := env.seedReferenceProviders(t)

	booking := &entity.Booking{
		BookingCode:   "BK-TEST-" + uuid.NewString(),
		CustomerRef:   "cust-1",
		ServiceType:   "standard_clean",
		RequestedDate: bookingDate,
		DurationHours: decimal.NewFromInt(2),
	}
	booking.SetSlot(mustSlot(t, "09:00-11:00"))
	assert.ErrorIs(t, env.lifecycle.Create(context.Background(), "tester", booking), ErrInvalidSlot)

	// stored under an older rule, bypassing Create
	booking.Status = entity.BookingStatusPending
	require.NoError(t, env.bookingRepo.Create(env.db, booking))

	_, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = env.lifecycle.Confirm(context.Background(), "tester", booking.ID, &p2.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	assert.Equal(t, entity.BookingStatusPending, env.reload(t, booking.ID).Status)
	assert.Zero(t, env.count(t, p1.ID))
	assert.Zero(t, env.count(t, p2.ID))
}

func TestBookingLifecycle_ConcurrentConfirmsForLastUnit(t *testing.T) {
	env := newTestEnv(t)
	solo := env.seedProvider(t, "Solo", 1, windowsP1)
	first := env.createPending(t, "08:00-10:00")
	second := env.createPending(t, "10:30-12:30")

	var confirmed, conflicts atomic.Int32
	var wg conc.WaitGroup
	for _, booking := range []*entity.Booking{first, second} {
		wg.Go(func() {
			_, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, &solo.ID, nil)
			switch {
			case err == nil:
				confirmed.Add(1)
			case errors.Is(err, ErrAllocationConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), confirmed.Load())
	assert.Equal(t, int32(1), conflicts.Load())
	assert.Equal(t, 1, env.count(t, solo.ID))

	statuses := []entity.BookingStatus{env.reload(t, first.ID).Status, env.reload(t, second.ID).Status}
	assert.ElementsMatch(t, []entity.BookingStatus{entity.BookingStatusConfirmed, entity.BookingStatusPending}, statuses)
}

func TestBookingLifecycle_ConcurrentConfirmsOfSameBooking(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.seedProvider(t, "Provider 1", 3, windowsP1)
	booking := env.createPending(t, "08:00-10:00")

	var confirmed atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Go(func() {
			if _, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil); err == nil {
				confirmed.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), confirmed.Load())
	assert.Equal(t, 1, env.count(t, p1.ID), "losing confirms give their reservation back")
}

func TestBookingLifecycle_CancelConfirmedReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	solo := env.seedProvider(t, "Solo", 1, windowsP1)
	booking := env.createPending(t, "08:00-10:00")
	ctx := context.Background()

	_, err := env.lifecycle.Confirm(ctx, "tester", booking.ID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, env.count(t, solo.ID))

	cancelled, err := env.lifecycle.Cancel(ctx, "tester", booking.ID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
	assert.Zero(t, env.count(t, solo.ID))

	stored := env.reload(t, booking.ID)
	assert.Equal(t, entity.BookingStatusCancelled, stored.Status)
	assert.Nil(t, stored.AssignedProviderID)
	assert.Equal(t, "customer request", stored.CancelReason)

	env.publisher.mu.Lock()
	last := env.publisher.events[len(env.publisher.events)-1]
	env.publisher.mu.Unlock()
	assert.Equal(t, entity.BookingEventCancelled, last.Type)
	assert.Equal(t, entity.BookingStatusConfirmed, last.PreviousStatus)
	require.NotNil(t, last.ProviderID)
	assert.Equal(t, solo.ID, *last.ProviderID)

	// The released unit is available to the next booking
	next := env.createPending(t, "10:30-12:30")
	_, err = env.lifecycle.Confirm(ctx, "tester", next.ID, nil, nil)
	assert.NoError(t, err)
}

func TestBookingLifecycle_CancelPending(t *testing.T) {
	env := newTestEnv(t)
	p1, _, _ := env.seedReferenceProviders(t)
	booking := env.createPending(t, "08:00-10:00")

	_, err := env.lifecycle.Cancel(context.Background(), "tester", booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, env.reload(t, booking.ID).Status)
	assert.Zero(t, env.count(t, p1.ID))
}

func TestBookingLifecycle_FullRunKeepsCapacity(t *testing.T) {
	env := newTestEnv(t)
	p1, _, _ := env.seedReferenceProviders(t)
	booking := env.createPending(t, "08:00-10:00")
	ctx := context.Background()

	_, err := env.lifecycle.Confirm(ctx, "tester", booking.ID, nil, nil)
	require.NoError(t, err)
	started, err := env.lifecycle.Start(ctx, "tester", booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusInProgress, started.Status)
	completed, err := env.lifecycle.Complete(ctx, "tester", booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, completed.Status)
	assert.NotNil(t, env.reload(t, booking.ID).CompletedAt)

	assert.Equal(t, 1, env.count(t, p1.ID), "completed bookings keep their unit")

	_, err = env.lifecycle.Cancel(ctx, "tester", booking.ID, "too late")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	logs, err := env.auditRepo.FindByEntity(env.db, entity.AuditEntityBooking, booking.ID.String())
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}

func TestBookingLifecycle_RejectsInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.seedReferenceProviders(t)
	booking := env.createPending(t, "08:00-10:00")
	ctx := context.Background()

	_, err := env.lifecycle.Start(ctx, "tester", booking.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	_, err = env.lifecycle.Complete(ctx, "tester", booking.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = env.lifecycle.Cancel(ctx, "tester", booking.ID, "")
	require.NoError(t, err)
	_, err = env.lifecycle.Confirm(ctx, "tester", booking.ID, nil, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = env.lifecycle.Confirm(ctx, "tester", uuid.New(), nil, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingLifecycle_PublishFailureKeepsTransition(t *testing.T) {
	env := newTestEnv(t)
	env.seedReferenceProviders(t)
	env.publisher.err = errors.New("queue down")
	booking := env.createPending(t, "08:00-10:00")

	_, err := env.lifecycle.Confirm(context.Background(), "tester", booking.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, env.reload(t, booking.ID).Status)
}
