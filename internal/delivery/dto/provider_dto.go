package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateProviderRequest struct {
	DisplayName        string   `json:"display_name" validate:"required,max=255"`
	WeeklyAvailability []string `json:"weekly_availability" validate:"required,min=1,unique,dive,slot_label"`
	ServiceAreas       []string `json:"service_areas" validate:"omitempty,dive,required,max=20"`
	MaxDailyBookings   int      `json:"max_daily_bookings" validate:"required,gte=1"`
	IsActive           *bool    `json:"is_active,omitempty"`
}

type UpdateProviderRequest struct {
	DisplayName        *string  `json:"display_name,omitempty" validate:"omitempty,max=255"`
	WeeklyAvailability []string `json:"weekly_availability,omitempty" validate:"omitempty,min=1,unique,dive,slot_label"`
	ServiceAreas       []string `json:"service_areas,omitempty" validate:"omitempty,dive,required,max=20"`
	MaxDailyBookings   *int     `json:"max_daily_bookings,omitempty" validate:"omitempty,gte=1"`
	IsActive           *bool    `json:"is_active,omitempty"`
}

type BlockDateRequest struct {
	Date   string `json:"date" validate:"required,date_only"`
	Reason string `json:"reason" validate:"max=255"`
}

// Response DTOs

type BlockedDateResponse struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type ProviderResponse struct {
	ID                 uuid.UUID             `json:"id"`
	DisplayName        string                `json:"display_name"`
	WeeklyAvailability []string              `json:"weekly_availability"`
	ServiceAreas       []string              `json:"service_areas"`
	MaxDailyBookings   int                   `json:"max_daily_bookings"`
	IsActive           bool                  `json:"is_active"`
	BlockedDates       []BlockedDateResponse `json:"blocked_dates,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type ProviderListResponse struct {
	Providers []ProviderResponse `json:"providers"`
	Total     int                `json:"total"`
}

type ProviderCapacityResponse struct {
	ProviderID       uuid.UUID `json:"provider_id"`
	Date             string    `json:"date"`
	MaxDailyBookings int       `json:"max_daily_bookings"`
	Booked           int       `json:"booked"`
	Remaining        int       `json:"remaining"`
	Blocked          bool      `json:"blocked"`
}
