package usecase

import (
	"context"
	"regexp"
	"testing"

	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowsP1 = []string{"08:00-10:00", "10:30-12:30", "14:00-16:00", "16:30-18:30"}
	windowsP2 = []string{"09:00-11:00", "11:30-13:30", "15:00-17:00", "17:30-19:30"}
	windowsP3 = []string{"08:30-10:30", "11:00-13:00", "14:30-16:30", "17:00-19:00"}
)

func createRequest(slot string) *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		ServiceType:   "standard_clean",
		Date:          bookingDate,
		Slot:          slot,
		DurationHours: decimal.NewFromInt(2),
		CustomerRef:   "cust-42",
		PostalCode:    " 00100 ",
	}
}

func TestBookingUsecase_GetAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bookings.GetAvailableSlots(ctx, bookingDate)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)

	labels := make([]string, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"08:00-10:00", "10:30-12:30", "13:00-15:00", "15:30-17:30", "18:00-20:00"}, labels)

	// Today at 09:00: anything starting before 11:00 is too soon
	resp, err = f.bookings.GetAvailableSlots(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "13:00-15:00", resp.Slots[0].Label)

	_, err = f.bookings.GetAvailableSlots(ctx, "2026-10-18")
	assert.ErrorIs(t, err, entity.ErrAdvanceWindowViolation)

	_, err = f.bookings.GetAvailableSlots(ctx, "2026-12-01")
	assert.ErrorIs(t, err, entity.ErrAdvanceWindowViolation)

	_, err = f.bookings.GetAvailableSlots(ctx, "21-10-2026")
	assert.ErrorIs(t, err, entity.ErrInvalidDate)
}

func TestBookingUsecase_GetAvailableProviders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.seedProvider(t, "Provider 1", 3, windowsP1, "00100")
	f.seedProvider(t, "Provider 2", 3, windowsP2, "00100")
	f.seedProvider(t, "Provider 3", 3, windowsP3, "00200")

	resp, err := f.bookings.GetAvailableProviders(ctx, bookingDate, "08:00-10:00", "")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, p1.ID, resp.Providers[0].ID)
	assert.Equal(t, "Provider 1", resp.Providers[0].DisplayName)

	resp, err = f.bookings.GetAvailableProviders(ctx, bookingDate, "13:00-15:00", "")
	require.NoError(t, err)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Providers)

	resp, err = f.bookings.GetAvailableProviders(ctx, bookingDate, "08:00-10:00", "00200")
	require.NoError(t, err)
	assert.Zero(t, resp.Count)

	_, err = f.bookings.GetAvailableProviders(ctx, bookingDate, "08:30-10:30", "")
	assert.ErrorIs(t, err, service.ErrInvalidSlot)

	_, err = f.bookings.GetAvailableProviders(ctx, bookingDate, "garbage", "")
	assert.ErrorIs(t, err, service.ErrInvalidSlot)

	_, err = f.bookings.GetAvailableProviders(ctx, "2026-10-19", "08:00-10:00", "")
	assert.ErrorIs(t, err, entity.ErrAdvanceWindowViolation)
}

func TestBookingUsecase_CreateBooking(t *testing.T) {
	f := newFixture(t)

	resp, err := f.bookings.CreateBooking(asActor("cust-42"), createRequest("10:30-12:30"))
	require.NoError(t, err)

	assert.Equal(t, string(entity.BookingStatusPending), resp.Status)
	assert.Equal(t, bookingDate, resp.Date)
	assert.Equal(t, "10:30-12:30", resp.Slot)
	assert.Equal(t, "00100", resp.PostalCode)
	assert.Nil(t, resp.AssignedProviderID)
	assert.Regexp(t, regexp.MustCompile(`^BK-20261021-[0-9A-F]{6}$`), resp.BookingCode)

	got, err := f.bookings.GetBooking(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.BookingCode, got.BookingCode)

	history, err := f.audits.GetBookingHistory(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Equal(t, 1, history.Total)
	assert.Equal(t, "cust-42", history.Logs[0].Actor)
	assert.Equal(t, entity.AuditActionBookingCreate, history.Logs[0].Action)
}

func TestBookingUsecase_CreateBookingRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*dto.CreateBookingRequest)
		wantErr error
	}{
		{"slot not generated", func(r *dto.CreateBookingRequest) { r.Slot = "09:00-11:00" }, service.ErrInvalidSlot},
		{"too soon", func(r *dto.CreateBookingRequest) { r.Date = "2026-10-19"; r.Slot = "10:30-12:30" }, entity.ErrAdvanceWindowViolation},
		{"too far", func(r *dto.CreateBookingRequest) { r.Date = "2026-11-30" }, entity.ErrAdvanceWindowViolation},
		{"bad date", func(r *dto.CreateBookingRequest) { r.Date = "tomorrow" }, entity.ErrInvalidDate},
		{"zero duration", func(r *dto.CreateBookingRequest) { r.DurationHours = decimal.Zero }, ErrInvalidDuration},
		{"duration too long", func(r *dto.CreateBookingRequest) { r.DurationHours = decimal.RequireFromString("2.5") }, ErrDurationExceedsSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createRequest("10:30-12:30")
			tt.mutate(req)

			_, err := f.bookings.CreateBooking(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	list, err := f.bookings.GetCustomerBookings(ctx, "cust-42")
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestBookingUsecase_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := asActor("ops-1")

	p1 := f.seedProvider(t, "Provider 1", 1, windowsP1, "00100")

	created, err := f.bookings.CreateBooking(ctx, createRequest("08:00-10:00"))
	require.NoError(t, err)

	confirmed, err := f.bookings.ConfirmBooking(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusConfirmed), confirmed.Status)
	require.NotNil(t, confirmed.AssignedProvider)
	assert.Equal(t, p1.ID, confirmed.AssignedProvider.ID)

	capacity, err := f.providers.GetCapacity(ctx, p1.ID, bookingDate)
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.Booked)
	assert.Zero(t, capacity.Remaining)

	started, err := f.bookings.StartBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusInProgress), started.Status)

	_, err = f.bookings.CancelBooking(ctx, created.ID, &dto.CancelBookingRequest{Reason: "late"})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	completed, err := f.bookings.CompleteBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCompleted), completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	history, err := f.audits.GetBookingHistory(ctx, created.ID)
	require.NoError(t, err)
	actions := make([]string, 0, history.Total)
	for _, l := range history.Logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{
		entity.AuditActionBookingCreate,
		entity.AuditActionBookingConfirm,
		entity.AuditActionBookingStart,
		entity.AuditActionBookingComplete,
	}, actions)
}

func TestBookingUsecase_ConfirmRespectsServiceArea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p3 := f.seedProvider(t, "Provider 3", 3, windowsP3, "00200")
	f.seedProvider(t, "Elsewhere", 3, []string{"10:30-12:30"}, "99999")

	req := createRequest("10:30-12:30")
	req.PostalCode = "00100"
	created, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)

	_, err = f.bookings.ConfirmBooking(ctx, created.ID, &dto.ConfirmBookingRequest{})
	assert.ErrorIs(t, err, service.ErrNoProviderAvailable)

	got, err := f.bookings.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusPending), got.Status)

	// p3 has no 10:30-12:30 window, so naming it still fails
	_, err = f.bookings.ConfirmBooking(ctx, created.ID, &dto.ConfirmBookingRequest{ProviderID: &p3.ID})
	assert.ErrorIs(t, err, service.ErrAllocationConflict)
}

func TestBookingUsecase_CancelReleasesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.seedProvider(t, "Provider 1", 1, windowsP1)

	first, err := f.bookings.CreateBooking(ctx, createRequest("08:00-10:00"))
	require.NoError(t, err)
	second, err := f.bookings.CreateBooking(ctx, createRequest("10:30-12:30"))
	require.NoError(t, err)

	_, err = f.bookings.ConfirmBooking(ctx, first.ID, nil)
	require.NoError(t, err)

	_, err = f.bookings.ConfirmBooking(ctx, second.ID, &dto.ConfirmBookingRequest{ProviderID: &p1.ID})
	assert.ErrorIs(t, err, service.ErrAllocationConflict)

	cancelled, err := f.bookings.CancelBooking(ctx, first.ID, &dto.CancelBookingRequest{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCancelled), cancelled.Status)
	assert.Equal(t, "changed plans", cancelled.CancelReason)

	confirmed, err := f.bookings.ConfirmBooking(ctx, second.ID, &dto.ConfirmBookingRequest{ProviderID: &p1.ID})
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusConfirmed), confirmed.Status)
}

func TestBookingUsecase_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.bookings.GetBooking(ctx, missing)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)

	_, err = f.bookings.ConfirmBooking(ctx, missing, nil)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)

	_, err = f.bookings.CancelBooking(ctx, missing, nil)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)
}
