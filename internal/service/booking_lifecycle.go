package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/domain/repository"
	"go-cleaning-booking/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Timeout for compensating capacity operations after a failed commit
const compensationTimeout = 5 * time.Second

// BookingLifecycle owns every booking status change.
//
//	pending -> confirmed -> in_progress -> completed
//	pending | confirmed -> cancelled
//
// Entering confirmed takes a provider reservation, leaving confirmed for
// cancelled gives it back. Status writes are conditional on the stored
// status, so two racing transitions cannot both commit. Events are
// published after commit and a publish failure never undoes a transition.
type BookingLifecycle struct {
	db          *gorm.DB
	log         *logrus.Logger
	clock       clock.Clock
	rule        entity.BookingRule
	bookingRepo repository.BookingRepository
	matcher     *AvailabilityMatcher
	allocator   *ProviderAllocator
	audit       AuditService
	publisher   EventPublisher
	metrics     *metrics.Recorder
}

func NewBookingLifecycle(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	rule entity.BookingRule,
	bookingRepo repository.BookingRepository,
	matcher *AvailabilityMatcher,
	allocator *ProviderAllocator,
	audit AuditService,
	publisher EventPublisher,
	recorder *metrics.Recorder,
) *BookingLifecycle {
	return &BookingLifecycle{
		db:          db,
		log:         log,
		clock:       clk,
		rule:        rule,
		bookingRepo: bookingRepo,
		matcher:     matcher,
		allocator:   allocator,
		audit:       audit,
		publisher:   publisher,
		metrics:     recorder,
	}
}

// Create stores a new booking as pending. No provider capacity is taken.
func (l *BookingLifecycle) Create(ctx context.Context, actor string, booking *entity.Booking) error {
	if err := ValidateSlot(booking.RequestedDate, l.rule, booking.Slot()); err != nil {
		return err
	}

	booking.Status = entity.BookingStatusPending
	booking.AssignedProviderID = nil
	booking.ReservationID = nil

	tx := l.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := l.bookingRepo.Create(tx, booking); err != nil {
		l.log.Warnf("Failed to create booking: %+v", err)
		return err
	}

	if err := l.audit.LogCreate(ctx, tx, actor, entity.AuditActionBookingCreate, entity.AuditEntityBooking, booking.ID.String(), map[string]interface{}{
		"booking_code": booking.BookingCode,
		"date":         entity.FormatDate(booking.RequestedDate),
		"slot":         booking.Slot().Label(),
		"status":       booking.Status,
	}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		l.log.Warnf("Failed to commit booking creation: %+v", err)
		return err
	}

	l.log.Infof("Booking created: id=%s, code=%s, date=%s, slot=%s", booking.ID, booking.BookingCode, entity.FormatDate(booking.RequestedDate), booking.Slot().Label())
	l.publish(ctx, entity.NewBookingEvent(entity.BookingEventCreated, booking, "", nil, l.clock.Now()))
	return nil
}

// Confirm assigns a provider to a pending booking.
//
// With preferred set only that provider is tried. Otherwise the matcher's
// candidates are tried in id order and the first successful reservation
// wins. If no reservation is made, or the status write loses a race, the
// booking is left pending and no capacity stays held.
func (l *BookingLifecycle) Confirm(ctx context.Context, actor string, bookingID uuid.UUID, preferred *uuid.UUID, filter ServiceAreaFilter) (*entity.Booking, error) {
	booking, err := l.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(entity.BookingStatusConfirmed) {
		return nil, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, booking.Status, entity.BookingStatusConfirmed)
	}

	date := entity.NormalizeDate(booking.RequestedDate)
	slot := booking.Slot()

	// the rule may have changed since the booking was created
	if err := ValidateSlot(date, l.rule, slot); err != nil {
		return nil, err
	}
	now := l.clock.Now()
	if err := l.rule.ValidateDate(l.rule.SlotStart(date, slot), now); err != nil {
		return nil, err
	}

	res, err := l.allocate(ctx, date, slot, preferred, filter)
	if err != nil {
		return nil, err
	}

	if err := l.commitConfirm(ctx, actor, booking, res); err != nil {
		// COMPENSATE: the booking stayed pending, give the unit back
		compCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
		defer cancel()
		if relErr := l.allocator.Release(compCtx, res); relErr != nil {
			l.log.Errorf("CRITICAL: Failed to release reservation %s after failed confirm of booking %s: %+v", res.ID, booking.ID, relErr)
		}
		return nil, err
	}

	l.metrics.ObserveTransition(string(entity.BookingStatusPending), string(entity.BookingStatusConfirmed))
	l.log.Infof("Booking confirmed: id=%s, provider=%s, date=%s, slot=%s", booking.ID, res.ProviderID, entity.FormatDate(date), slot.Label())
	l.publish(ctx, entity.NewBookingEvent(entity.BookingEventConfirmed, booking, entity.BookingStatusPending, nil, l.clock.Now()))
	return booking, nil
}

// Start moves a confirmed booking to in_progress. Capacity stays held.
func (l *BookingLifecycle) Start(ctx context.Context, actor string, bookingID uuid.UUID) (*entity.Booking, error) {
	return l.advance(ctx, actor, bookingID, entity.AuditActionBookingStart, entity.BookingEventStarted, func(b *entity.Booking, at time.Time) error {
		return b.Start(at)
	})
}

// Complete moves an in_progress booking to completed. The unit it used
// still counts against the provider's day.
func (l *BookingLifecycle) Complete(ctx context.Context, actor string, bookingID uuid.UUID) (*entity.Booking, error) {
	return l.advance(ctx, actor, bookingID, entity.AuditActionBookingComplete, entity.BookingEventCompleted, func(b *entity.Booking, at time.Time) error {
		return b.Complete(at)
	})
}

// Cancel cancels a pending or confirmed booking. Cancelling a confirmed
// booking releases its reservation before the status change commits.
func (l *BookingLifecycle) Cancel(ctx context.Context, actor string, bookingID uuid.UUID, reason string) (*entity.Booking, error) {
	booking, err := l.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	previous := booking.Status
	res := booking.Reservation()
	releasedProvider := booking.AssignedProviderID

	if err := booking.Cancel(reason, l.clock.Now()); err != nil {
		return nil, err
	}

	tx := l.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := l.bookingRepo.Transition(tx, booking, previous)
	if err != nil {
		l.log.Warnf("Failed to cancel booking %s: %+v", booking.ID, err)
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidTransition, ErrBookingChanged)
	}

	if err := l.audit.LogTransition(ctx, tx, actor, entity.AuditActionBookingCancel, booking, previous); err != nil {
		return nil, err
	}

	if res != nil {
		if err := l.allocator.Release(ctx, res); err != nil {
			l.log.Warnf("Failed to release reservation for booking %s: %+v", booking.ID, err)
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		l.log.Warnf("Failed to commit cancellation of booking %s: %+v", booking.ID, err)
		if res != nil {
			// COMPENSATE: the booking is still confirmed, take the unit back
			compCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
			defer cancel()
			if _, resErr := l.allocator.Reserve(compCtx, res.ProviderID, res.Date, res.Slot); resErr != nil {
				l.log.Errorf("CRITICAL: Failed to restore reservation for booking %s after failed cancel: %+v", booking.ID, resErr)
			}
		}
		return nil, err
	}

	l.metrics.ObserveTransition(string(previous), string(entity.BookingStatusCancelled))
	l.log.Infof("Booking cancelled: id=%s, from=%s", booking.ID, previous)
	l.publish(ctx, entity.NewBookingEvent(entity.BookingEventCancelled, booking, previous, releasedProvider, l.clock.Now()))
	return booking, nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (l *BookingLifecycle) find(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := l.bookingRepo.FindByID(l.db.WithContext(ctx), bookingID)
	if err != nil {
		l.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (l *BookingLifecycle) allocate(ctx context.Context, date time.Time, slot entity.Slot, preferred *uuid.UUID, filter ServiceAreaFilter) (*entity.Reservation, error) {
	if preferred != nil {
		return l.allocator.Reserve(ctx, *preferred, date, slot)
	}

	candidates, err := l.matcher.FindEligibleProviders(ctx, date, slot, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoProviderAvailable
	}

	for _, candidate := range candidates {
		res, err := l.allocator.Reserve(ctx, candidate.ID, date, slot)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrAllocationConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: all %d candidates were taken", ErrAllocationConflict, len(candidates))
}

func (l *BookingLifecycle) commitConfirm(ctx context.Context, actor string, booking *entity.Booking, res *entity.Reservation) error {
	if err := booking.Confirm(res, l.clock.Now()); err != nil {
		return err
	}

	tx := l.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := l.bookingRepo.Transition(tx, booking, entity.BookingStatusPending)
	if err != nil {
		l.log.Warnf("Failed to confirm booking %s: %+v", booking.ID, err)
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %w", entity.ErrInvalidTransition, ErrBookingChanged)
	}

	if err := l.audit.LogTransition(ctx, tx, actor, entity.AuditActionBookingConfirm, booking, entity.BookingStatusPending); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		l.log.Warnf("Failed to commit confirmation of booking %s: %+v", booking.ID, err)
		return err
	}
	return nil
}

// advance applies a transition that does not touch capacity
func (l *BookingLifecycle) advance(ctx context.Context, actor string, bookingID uuid.UUID, action string, eventType entity.BookingEventType, apply func(*entity.Booking, time.Time) error) (*entity.Booking, error) {
	booking, err := l.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	previous := booking.Status
	if err := apply(booking, l.clock.Now()); err != nil {
		return nil, err
	}

	tx := l.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := l.bookingRepo.Transition(tx, booking, previous)
	if err != nil {
		l.log.Warnf("Failed to move booking %s to %s: %+v", booking.ID, booking.Status, err)
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidTransition, ErrBookingChanged)
	}

	if err := l.audit.LogTransition(ctx, tx, actor, action, booking, previous); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		l.log.Warnf("Failed to commit booking %s transition: %+v", booking.ID, err)
		return nil, err
	}

	l.metrics.ObserveTransition(string(previous), string(booking.Status))
	l.log.Infof("Booking %s: %s -> %s", booking.ID, previous, booking.Status)
	l.publish(ctx, entity.NewBookingEvent(eventType, booking, previous, nil, l.clock.Now()))
	return booking, nil
}

func (l *BookingLifecycle) publish(ctx context.Context, event entity.BookingEvent) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.metrics.ObserveEvent(string(event.Type), "error")
		l.log.Warnf("Failed to publish %s for booking %s (non-fatal): %+v", event.Type, event.BookingID, err)
		return
	}
	l.metrics.ObserveEvent(string(event.Type), "ok")
}
