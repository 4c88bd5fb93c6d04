package service

import (
	"errors"

	"go-cleaning-booking/internal/domain/entity"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrAdvanceWindowViolation is returned when a date or slot start falls
	// outside [now+minAdvance, now+maxAdvance]
	ErrAdvanceWindowViolation = entity.ErrAdvanceWindowViolation

	// ErrInvalidSlot is returned when a slot is not one the rule generates for the date
	ErrInvalidSlot = errors.New("slot is not offered for the requested date")

	// ErrNoProviderAvailable is returned when matching finds nobody for the slot
	ErrNoProviderAvailable = errors.New("no providers available for this time")

	// ErrAllocationConflict is returned when a reservation lost against
	// capacity, a blocked date or another concurrent reservation
	ErrAllocationConflict = errors.New("provider allocation conflict")

	// ErrCapacityExceeded signals a capacity increment beyond the provider
	// ceiling outside the allocator's checked path. It is never user facing.
	ErrCapacityExceeded = errors.New("provider daily capacity exceeded")

	ErrSlotAlreadyHeld     = errors.New("provider already holds this slot")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderHasBookings = errors.New("provider has active bookings on that date")
	ErrBlockedDateNotFound = errors.New("blocked date not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingChanged      = errors.New("booking was modified concurrently")

	// ErrCapacityBelowBookings is returned when a new ceiling is lower than
	// the units already held on some date
	ErrCapacityBelowBookings = errors.New("max daily bookings is below bookings already held")
)
