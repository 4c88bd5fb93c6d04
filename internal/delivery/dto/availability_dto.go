package dto

import "github.com/google/uuid"

// Response DTOs

type SlotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type AvailableSlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
	Total int            `json:"total"`
}

type ProviderSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

type AvailableProvidersResponse struct {
	Date      string            `json:"date"`
	Slot      string            `json:"slot"`
	Providers []ProviderSummary `json:"providers"`
	Count     int               `json:"count"`
}
