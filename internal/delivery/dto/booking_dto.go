package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateBookingRequest struct {
	ServiceType   string          `json:"service_type" validate:"required,max=100"`
	Date          string          `json:"date" validate:"required,date_only"`
	Slot          string          `json:"slot" validate:"required,slot_label"`
	DurationHours decimal.Decimal `json:"duration_hours"`
	CustomerRef   string          `json:"customer_ref" validate:"required,max=255"`
	PostalCode    string          `json:"postal_code" validate:"omitempty,max=20"`
}

type ConfirmBookingRequest struct {
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// Response DTOs

type BookingResponse struct {
	ID                 uuid.UUID        `json:"id"`
	BookingCode        string           `json:"booking_code"`
	CustomerRef        string           `json:"customer_ref"`
	ServiceType        string           `json:"service_type"`
	Date               string           `json:"date"`
	Slot               string           `json:"slot"`
	DurationHours      decimal.Decimal  `json:"duration_hours"`
	PostalCode         string           `json:"postal_code,omitempty"`
	Status             string           `json:"status"`
	AssignedProviderID *uuid.UUID       `json:"assigned_provider_id,omitempty"`
	AssignedProvider   *ProviderSummary `json:"assigned_provider,omitempty"`
	CancelReason       string           `json:"cancel_reason,omitempty"`
	ConfirmedAt        *time.Time       `json:"confirmed_at,omitempty"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}
