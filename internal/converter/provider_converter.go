package converter

import (
	"time"

	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/domain/entity"
)

func ProviderToSummary(provider *entity.Provider) dto.ProviderSummary {
	return dto.ProviderSummary{
		ID:          provider.ID,
		DisplayName: provider.DisplayName,
	}
}

// ProvidersToSummaries keeps the input order
func ProvidersToSummaries(providers []entity.Provider) []dto.ProviderSummary {
	summaries := make([]dto.ProviderSummary, len(providers))
	for i := range providers {
		summaries[i] = ProviderToSummary(&providers[i])
	}
	return summaries
}

// ProviderToResponse converts a Provider entity to ProviderResponse DTO
func ProviderToResponse(provider *entity.Provider) *dto.ProviderResponse {
	if provider == nil {
		return nil
	}

	response := &dto.ProviderResponse{
		ID:                 provider.ID,
		DisplayName:        provider.DisplayName,
		WeeklyAvailability: append([]string{}, provider.WeeklyAvailability...),
		ServiceAreas:       append([]string{}, provider.ServiceAreas...),
		MaxDailyBookings:   provider.MaxDailyBookings,
		IsActive:           provider.IsActive,
		CreatedAt:          provider.CreatedAt,
		UpdatedAt:          provider.UpdatedAt,
	}

	for _, blocked := range provider.BlockedDates {
		response.BlockedDates = append(response.BlockedDates, dto.BlockedDateResponse{
			Date:   entity.FormatDate(time.Time(blocked.Date)),
			Reason: blocked.Reason,
		})
	}

	return response
}

// ProvidersToResponses converts a slice of Provider entities to slice of ProviderResponse DTOs
func ProvidersToResponses(providers []entity.Provider) []dto.ProviderResponse {
	responses := make([]dto.ProviderResponse, len(providers))
	for i := range providers {
		responses[i] = *ProviderToResponse(&providers[i])
	}
	return responses
}

func SlotsToResponses(slots []entity.Slot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i, slot := range slots {
		responses[i] = dto.SlotResponse{
			Start: slot.Start.String(),
			End:   slot.End.String(),
			Label: slot.Label(),
		}
	}
	return responses
}
