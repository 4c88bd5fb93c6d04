package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// CapacityHoldingStatuses are the statuses that consume a unit of the
// assigned provider's daily capacity.
var CapacityHoldingStatuses = []BookingStatus{
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted},
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) HoldsCapacity() bool {
	for _, status := range CapacityHoldingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a customer's request for a service in a slot on a date
type Booking struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingCode        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"booking_code"`
	CustomerRef        string          `gorm:"type:varchar(255);not null;index" json:"customer_ref"`
	ServiceType        string          `gorm:"type:varchar(100);not null" json:"service_type"`
	RequestedDate      time.Time       `gorm:"type:date;not null;index" json:"requested_date"`
	SlotStart          string          `gorm:"type:varchar(5);not null" json:"slot_start"`
	SlotEnd            string          `gorm:"type:varchar(5);not null" json:"slot_end"`
	DurationHours      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"duration_hours"`
	PostalCode         string          `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Status             BookingStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	AssignedProviderID *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_provider_id,omitempty"`
	ReservationID      *uuid.UUID      `gorm:"type:uuid" json:"reservation_id,omitempty"`
	CancelReason       string          `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	ConfirmedAt        *time.Time      `json:"confirmed_at,omitempty"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	AssignedProvider *Provider `gorm:"foreignKey:AssignedProviderID" json:"assigned_provider,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Slot rebuilds the booking's slot from its stored bounds
func (b *Booking) Slot() Slot {
	start, _ := ParseTimeOfDay(b.SlotStart)
	end, _ := ParseTimeOfDay(b.SlotEnd)
	return Slot{Start: start, End: end}
}

// SetSlot stores the slot bounds
func (b *Booking) SetSlot(slot Slot) {
	b.SlotStart = slot.Start.String()
	b.SlotEnd = slot.End.String()
}

// IsPending checks if booking is in pending status
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// IsConfirmed checks if booking is confirmed
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// IsCancelled checks if booking is cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Reservation returns the capacity claim held by a booking, or nil when it holds none
func (b *Booking) Reservation() *Reservation {
	if b.AssignedProviderID == nil || !b.Status.HoldsCapacity() {
		return nil
	}

	res := &Reservation{
		ProviderID: *b.AssignedProviderID,
		Date:       NormalizeDate(b.RequestedDate),
		Slot:       b.Slot(),
	}
	if b.ReservationID != nil {
		res.ID = *b.ReservationID
	}
	if b.ConfirmedAt != nil {
		res.ReservedAt = *b.ConfirmedAt
	}
	return res
}

func (b *Booking) transition(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
	}
	b.Status = next
	return nil
}

// Confirm assigns the reserved provider and moves the booking to confirmed
func (b *Booking) Confirm(res *Reservation, at time.Time) error {
	if err := b.transition(BookingStatusConfirmed); err != nil {
		return err
	}
	providerID := res.ProviderID
	reservationID := res.ID
	b.AssignedProviderID = &providerID
	b.ReservationID = &reservationID
	b.ConfirmedAt = &at
	return nil
}

// Start marks the job as underway
func (b *Booking) Start(at time.Time) error {
	if err := b.transition(BookingStatusInProgress); err != nil {
		return err
	}
	b.StartedAt = &at
	return nil
}

// Complete marks the job as done
func (b *Booking) Complete(at time.Time) error {
	if err := b.transition(BookingStatusCompleted); err != nil {
		return err
	}
	b.CompletedAt = &at
	return nil
}

// Cancel moves the booking to cancelled and clears the provider assignment
func (b *Booking) Cancel(reason string, at time.Time) error {
	if err := b.transition(BookingStatusCancelled); err != nil {
		return err
	}
	b.AssignedProviderID = nil
	b.ReservationID = nil
	b.CancelReason = reason
	b.CancelledAt = &at
	return nil
}
