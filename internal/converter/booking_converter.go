package converter

import (
	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/domain/entity"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	response := &dto.BookingResponse{
		ID:                 booking.ID,
		BookingCode:        booking.BookingCode,
		CustomerRef:        booking.CustomerRef,
		ServiceType:        booking.ServiceType,
		Date:               entity.FormatDate(booking.RequestedDate),
		Slot:               booking.Slot().Label(),
		DurationHours:      booking.DurationHours,
		PostalCode:         booking.PostalCode,
		Status:             string(booking.Status),
		AssignedProviderID: booking.AssignedProviderID,
		CancelReason:       booking.CancelReason,
		ConfirmedAt:        booking.ConfirmedAt,
		StartedAt:          booking.StartedAt,
		CompletedAt:        booking.CompletedAt,
		CancelledAt:        booking.CancelledAt,
		CreatedAt:          booking.CreatedAt,
		UpdatedAt:          booking.UpdatedAt,
	}

	// Include provider info if loaded
	if booking.AssignedProvider != nil && booking.AssignedProviderID != nil {
		summary := ProviderToSummary(booking.AssignedProvider)
		response.AssignedProvider = &summary
	}

	return response
}

// BookingsToResponses converts a slice of Booking entities to slice of BookingResponse DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		responses[i] = *BookingToResponse(&bookings[i])
	}
	return responses
}
