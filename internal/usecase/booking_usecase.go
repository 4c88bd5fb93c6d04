package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"go-cleaning-booking/internal/converter"
	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/delivery/http/middleware"
	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"
	"go-cleaning-booking/internal/service"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
	ErrDurationExceedsSlot = errors.New("duration does not fit in the slot")
)

var minutesPerHour = decimal.NewFromInt(60)

type BookingUsecase interface {
	GetAvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error)
	GetAvailableProviders(ctx context.Context, date, slot, postalCode string) (*dto.AvailableProvidersResponse, error)
	CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error)
	GetCustomerBookings(ctx context.Context, customerRef string) (*dto.BookingListResponse, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, req *dto.CancelBookingRequest) (*dto.BookingResponse, error)
	StartBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error)
}

type bookingUsecase struct {
	db          *gorm.DB
	log         *logrus.Logger
	clock       clock.Clock
	rule        entity.BookingRule
	bookingRepo repository.BookingRepository
	matcher     *service.AvailabilityMatcher
	lifecycle   *service.BookingLifecycle
	areas       service.ServiceAreaResolver
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	rule entity.BookingRule,
	bookingRepo repository.BookingRepository,
	matcher *service.AvailabilityMatcher,
	lifecycle *service.BookingLifecycle,
	areas service.ServiceAreaResolver,
) BookingUsecase {
	return &bookingUsecase{
		db:          db,
		log:         log,
		clock:       clk,
		rule:        rule,
		bookingRepo: bookingRepo,
		matcher:     matcher,
		lifecycle:   lifecycle,
		areas:       areas,
	}
}

// GetAvailableSlots lists the rule's slots for date whose start is still
// bookable. A date wholly outside the advance window is an error; a date
// with nothing left is an empty list.
func (u *bookingUsecase) GetAvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	if err := u.rule.ValidateDay(day, now); err != nil {
		return nil, err
	}

	slots := service.GenerateSlots(day, u.rule)
	open := make([]entity.Slot, 0, len(slots))
	for _, slot := range slots {
		if u.rule.ValidateDate(u.rule.SlotStart(day, slot), now) == nil {
			open = append(open, slot)
		}
	}

	return &dto.AvailableSlotsResponse{
		Date:  entity.FormatDate(day),
		Slots: converter.SlotsToResponses(open),
		Total: len(open),
	}, nil
}

func (u *bookingUsecase) GetAvailableProviders(ctx context.Context, date, slot, postalCode string) (*dto.AvailableProvidersResponse, error) {
	day, s, err := u.resolveSlot(date, slot)
	if err != nil {
		return nil, err
	}

	providers, err := u.matcher.FindEligibleProviders(ctx, day, s, u.areas.FilterFor(postalCode))
	if err != nil {
		return nil, err
	}

	return &dto.AvailableProvidersResponse{
		Date:      entity.FormatDate(day),
		Slot:      s.Label(),
		Providers: converter.ProvidersToSummaries(providers),
		Count:     len(providers),
	}, nil
}

// CreateBooking stores a pending booking. It does not check that any
// provider is free: assignment happens at confirmation.
func (u *bookingUsecase) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	day, slot, err := u.resolveSlot(req.Date, req.Slot)
	if err != nil {
		return nil, err
	}

	if !req.DurationHours.IsPositive() {
		return nil, ErrInvalidDuration
	}
	if req.DurationHours.Mul(minutesPerHour).GreaterThan(decimal.NewFromInt(int64(slot.DurationMinutes()))) {
		return nil, fmt.Errorf("%w: %s hours in %s", ErrDurationExceedsSlot, req.DurationHours, slot.Label())
	}

	booking := &entity.Booking{
		BookingCode:   generateBookingCode(day),
		CustomerRef:   req.CustomerRef,
		ServiceType:   req.ServiceType,
		RequestedDate: day,
		DurationHours: req.DurationHours,
		PostalCode:    entity.NormalizePostalCode(req.PostalCode),
	}
	booking.SetSlot(slot)

	if err := u.lifecycle.Create(ctx, middleware.ActorFromContext(ctx), booking); err != nil {
		return nil, err
	}

	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) GetBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) GetCustomerBookings(ctx context.Context, customerRef string) (*dto.BookingListResponse, error) {
	bookings, err := u.bookingRepo.FindByCustomerRef(u.db.WithContext(ctx), customerRef)
	if err != nil {
		u.log.Warnf("Failed to find bookings for customer %s: %+v", customerRef, err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

// ConfirmBooking assigns a provider. Matching is restricted to providers
// serving the booking's postal code unless a provider is named explicitly.
func (u *bookingUsecase) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, error) {
	booking, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var preferred *uuid.UUID
	if req != nil {
		preferred = req.ProviderID
	}

	if _, err := u.lifecycle.Confirm(ctx, middleware.ActorFromContext(ctx), booking.ID, preferred, u.areas.FilterFor(booking.PostalCode)); err != nil {
		return nil, err
	}

	return u.reload(ctx, booking.ID)
}

func (u *bookingUsecase) CancelBooking(ctx context.Context, bookingID uuid.UUID, req *dto.CancelBookingRequest) (*dto.BookingResponse, error) {
	reason := ""
	if req != nil {
		reason = req.Reason
	}

	booking, err := u.lifecycle.Cancel(ctx, middleware.ActorFromContext(ctx), bookingID, reason)
	if err != nil {
		return nil, err
	}
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) StartBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error) {
	if _, err := u.lifecycle.Start(ctx, middleware.ActorFromContext(ctx), bookingID); err != nil {
		return nil, err
	}
	return u.reload(ctx, bookingID)
}

func (u *bookingUsecase) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error) {
	if _, err := u.lifecycle.Complete(ctx, middleware.ActorFromContext(ctx), bookingID); err != nil {
		return nil, err
	}
	return u.reload(ctx, bookingID)
}

// resolveSlot parses date and slot and checks the slot is offered and its
// start is inside the advance window
func (u *bookingUsecase) resolveSlot(date, label string) (time.Time, entity.Slot, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return time.Time{}, entity.Slot{}, err
	}

	slot, err := entity.ParseSlot(label)
	if err != nil {
		return time.Time{}, entity.Slot{}, fmt.Errorf("%w: %v", service.ErrInvalidSlot, err)
	}
	if err := service.ValidateSlot(day, u.rule, slot); err != nil {
		return time.Time{}, entity.Slot{}, err
	}

	if err := u.rule.ValidateDate(u.rule.SlotStart(day, slot), u.clock.Now()); err != nil {
		return time.Time{}, entity.Slot{}, err
	}
	return day, slot, nil
}

func (u *bookingUsecase) findBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := u.bookingRepo.FindByID(u.db.WithContext(ctx), bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return nil, err
	}
	if booking == nil {
		return nil, service.ErrBookingNotFound
	}
	return booking, nil
}

// reload fetches the booking with its provider for the response
func (u *bookingUsecase) reload(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return converter.BookingToResponse(booking), nil
}

// generateBookingCode generates a unique booking code: BK-YYYYMMDD-XXXXXX
func generateBookingCode(date time.Time) string {
	dateStr := date.Format("20060102")
	randomBytes := make([]byte, 3)
	rand.Read(randomBytes)
	randomStr := fmt.Sprintf("%06X", randomBytes)
	return fmt.Sprintf("BK-%s-%s", dateStr, randomStr)
}
