package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrAdvanceWindowViolation = errors.New("requested time is outside the booking window")
	ErrInvalidBookingRule     = errors.New("invalid booking rule")
)

var ruleValidator = validator.New()

// BookingRule is the temporal policy for a deployment: advance notice,
// working hours and the slot/break rhythm. It is loaded once at startup and
// never mutated afterwards.
type BookingRule struct {
	MinAdvanceHours      int            `validate:"gte=0"`
	MaxAdvanceDays       int            `validate:"gt=0"`
	WorkingHoursStart    TimeOfDay      `validate:"gte=0,lte=1440"`
	WorkingHoursEnd      TimeOfDay      `validate:"gte=0,lte=1440"`
	SlotDurationMinutes  int            `validate:"gt=0"`
	BreakDurationMinutes int            `validate:"gte=0"`
	Location             *time.Location `validate:"required"`
}

// DefaultBookingRule returns the rule used when nothing is configured
func DefaultBookingRule() BookingRule {
	return BookingRule{
		MinAdvanceHours:      2,
		MaxAdvanceDays:       30,
		WorkingHoursStart:    NewTimeOfDay(8, 0),
		WorkingHoursEnd:      NewTimeOfDay(20, 0),
		SlotDurationMinutes:  120,
		BreakDurationMinutes: 30,
		Location:             time.UTC,
	}
}

// Validate checks field ranges and that working hours start before they end
func (r BookingRule) Validate() error {
	if err := ruleValidator.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBookingRule, err)
	}
	if r.WorkingHoursStart >= r.WorkingHoursEnd {
		return fmt.Errorf("%w: working hours %s-%s are empty", ErrInvalidBookingRule, r.WorkingHoursStart, r.WorkingHoursEnd)
	}
	return nil
}

func (r BookingRule) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Window returns the earliest and latest bookable instants relative to now
func (r BookingRule) Window(now time.Time) (time.Time, time.Time) {
	earliest := now.Add(time.Duration(r.MinAdvanceHours) * time.Hour)
	latest := now.Add(time.Duration(r.MaxAdvanceDays) * 24 * time.Hour)
	return earliest, latest
}

// ValidateDate reports ErrAdvanceWindowViolation unless
// now+MinAdvanceHours <= at <= now+MaxAdvanceDays.
func (r BookingRule) ValidateDate(at, now time.Time) error {
	earliest, latest := r.Window(now)
	if at.Before(earliest) {
		return fmt.Errorf("%w: %s is earlier than %s", ErrAdvanceWindowViolation, at.Format(time.RFC3339), earliest.Format(time.RFC3339))
	}
	if at.After(latest) {
		return fmt.Errorf("%w: %s is later than %s", ErrAdvanceWindowViolation, at.Format(time.RFC3339), latest.Format(time.RFC3339))
	}
	return nil
}

// ValidateDay accepts a calendar date when any part of it falls inside the window
func (r BookingRule) ValidateDay(date, now time.Time) error {
	dayStart := r.DayStart(date)
	dayEnd := dayStart.AddDate(0, 0, 1)
	earliest, latest := r.Window(now)

	if !dayEnd.After(earliest) || dayStart.After(latest) {
		return fmt.Errorf("%w: %s", ErrAdvanceWindowViolation, FormatDate(date))
	}
	return nil
}

// DayStart is midnight of the calendar date in the rule location
func (r BookingRule) DayStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, r.location())
}

// SlotStart is the instant the slot begins on the given date
func (r BookingRule) SlotStart(date time.Time, slot Slot) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), slot.Start.Hour(), slot.Start.Minute(), 0, 0, r.location())
}

// Today is the calendar date of now in the rule location, as UTC midnight
func (r BookingRule) Today(now time.Time) time.Time {
	return NormalizeDate(now.In(r.location()))
}
