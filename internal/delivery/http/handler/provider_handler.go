package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-cleaning-booking/internal/delivery/dto"
	"go-cleaning-booking/internal/domain/entity"
	"go-cleaning-booking/internal/service"
	"go-cleaning-booking/internal/usecase"
	"go-cleaning-booking/pkg/response"
	"go-cleaning-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ProviderHandler struct {
	providerUsecase usecase.ProviderUsecase
	validator       *validator.CustomValidator
}

func NewProviderHandler(providerUsecase usecase.ProviderUsecase, validator *validator.CustomValidator) *ProviderHandler {
	return &ProviderHandler{
		providerUsecase: providerUsecase,
		validator:       validator,
	}
}

func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	provider, err := h.providerUsecase.CreateProvider(r.Context(), &req)
	if err != nil {
		response.InternalServerError(w, "Failed to create provider")
		return
	}

	response.Success(w, http.StatusCreated, "Provider created successfully", provider)
}

func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID, ok := providerIDFromPath(w, r)
	if !ok {
		return
	}

	provider, err := h.providerUsecase.GetProvider(r.Context(), providerID)
	if err != nil {
		writeProviderError(w, err, "Failed to get provider")
		return
	}

	response.Success(w, http.StatusOK, "Provider retrieved successfully", provider)
}

func (h *ProviderHandler) GetAllProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providerUsecase.GetAllProviders(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get providers")
		return
	}

	response.Success(w, http.StatusOK, "Providers retrieved successfully", providers)
}

func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	providerID, ok := providerIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	provider, err := h.providerUsecase.UpdateProvider(r.Context(), providerID, &req)
	if err != nil {
		writeProviderError(w, err, "Failed to update provider")
		return
	}

	response.Success(w, http.StatusOK, "Provider updated successfully", provider)
}

func (h *ProviderHandler) BlockDate(w http.ResponseWriter, r *http.Request) {
	providerID, ok := providerIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.BlockDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	provider, err := h.providerUsecase.BlockDate(r.Context(), providerID, &req)
	if err != nil {
		writeProviderError(w, err, "Failed to block date")
		return
	}

	response.Success(w, http.StatusOK, "Date blocked successfully", provider)
}

func (h *ProviderHandler) UnblockDate(w http.ResponseWriter, r *http.Request) {
	providerID, ok := providerIDFromPath(w, r)
	if !ok {
		return
	}

	provider, err := h.providerUsecase.UnblockDate(r.Context(), providerID, mux.Vars(r)["date"])
	if err != nil {
		writeProviderError(w, err, "Failed to unblock date")
		return
	}

	response.Success(w, http.StatusOK, "Date unblocked successfully", provider)
}

func (h *ProviderHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	providerID, ok := providerIDFromPath(w, r)
	if !ok {
		return
	}

	capacity, err := h.providerUsecase.GetCapacity(r.Context(), providerID, mux.Vars(r)["date"])
	if err != nil {
		writeProviderError(w, err, "Failed to get provider capacity")
		return
	}

	response.Success(w, http.StatusOK, "Provider capacity retrieved successfully", capacity)
}

func writeProviderError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrProviderNotFound):
		response.NotFound(w, "Provider not found")
	case errors.Is(err, service.ErrBlockedDateNotFound):
		response.NotFound(w, "Date is not blocked")
	case errors.Is(err, service.ErrProviderHasBookings):
		response.Conflict(w, "Provider has bookings on this date")
	case errors.Is(err, usecase.ErrCapacityBelowBookings):
		response.Conflict(w, "max_daily_bookings is below bookings already confirmed")
	case errors.Is(err, entity.ErrInvalidDate):
		response.BadRequest(w, msgInvalidDate)
	default:
		response.InternalServerError(w, fallback)
	}
}

func providerIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	providerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid provider ID", nil)
		return uuid.Nil, false
	}
	return providerID, true
}
