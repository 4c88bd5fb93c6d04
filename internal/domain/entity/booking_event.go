package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventStarted   BookingEventType = "booking.started"
	BookingEventCompleted BookingEventType = "booking.completed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is emitted after every committed booking state change
type BookingEvent struct {
	Type           BookingEventType `json:"type"`
	BookingID      uuid.UUID        `json:"booking_id"`
	BookingCode    string           `json:"booking_code"`
	CustomerRef    string           `json:"customer_ref"`
	Status         BookingStatus    `json:"status"`
	PreviousStatus BookingStatus    `json:"previous_status,omitempty"`
	ProviderID     *uuid.UUID       `json:"provider_id,omitempty"`
	Date           string           `json:"date"`
	Slot           string           `json:"slot"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// NewBookingEvent snapshots booking after a transition out of previous.
// For cancellations providerID carries the provider that was released.
func NewBookingEvent(eventType BookingEventType, booking *Booking, previous BookingStatus, providerID *uuid.UUID, at time.Time) BookingEvent {
	if providerID == nil {
		providerID = booking.AssignedProviderID
	}
	return BookingEvent{
		Type:           eventType,
		BookingID:      booking.ID,
		BookingCode:    booking.BookingCode,
		CustomerRef:    booking.CustomerRef,
		Status:         booking.Status,
		PreviousStatus: previous,
		ProviderID:     providerID,
		Date:           FormatDate(booking.RequestedDate),
		Slot:           booking.Slot().Label(),
		OccurredAt:     at,
	}
}
