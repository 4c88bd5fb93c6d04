package handler

import (
	"encoding/json"
	"errors"
	"io"
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

// User facing messages for allocation outcomes
const (
	msgAdvanceWindow  = "requested time is outside the booking window"
	msgNoProvider     = "no providers available for this time, try another slot"
	msgProviderTaken  = "the provider was just taken, please retry"
	msgInvalidSlot    = "requested slot is not offered on this date"
	msgInvalidDate    = "Invalid date format, use YYYY-MM-DD"
	msgBookingMissing = "Booking not found"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.CreateBooking(r.Context(), &req)
	if err != nil {
		writeBookingError(w, err, "Failed to create booking")
		return
	}

	response.Success(w, http.StatusCreated, "Booking created successfully", booking)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeBookingError(w, err, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) GetCustomerBookings(w http.ResponseWriter, r *http.Request) {
	customerRef := r.URL.Query().Get("customer_ref")
	if customerRef == "" {
		response.BadRequest(w, "customer_ref is required")
		return
	}

	bookings, err := h.bookingUsecase.GetCustomerBookings(r.Context(), customerRef)
	if err != nil {
		response.InternalServerError(w, "Failed to get bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", bookings)
}

func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmBookingRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	booking, err := h.bookingUsecase.ConfirmBooking(r.Context(), bookingID, &req)
	if err != nil {
		writeBookingError(w, err, "Failed to confirm booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking confirmed successfully", booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.CancelBooking(r.Context(), bookingID, &req)
	if err != nil {
		writeBookingError(w, err, "Failed to cancel booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking cancelled successfully", booking)
}

func (h *BookingHandler) StartBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.StartBooking(r.Context(), bookingID)
	if err != nil {
		writeBookingError(w, err, "Failed to start booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking started successfully", booking)
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.CompleteBooking(r.Context(), bookingID)
	if err != nil {
		writeBookingError(w, err, "Failed to complete booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking completed successfully", booking)
}

// writeBookingError maps booking and availability errors to responses.
// Anything unrecognised, ErrCapacityExceeded included, becomes a plain 500.
func writeBookingError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, entity.ErrAdvanceWindowViolation):
		response.UnprocessableEntity(w, msgAdvanceWindow)
	case errors.Is(err, service.ErrInvalidSlot):
		response.BadRequest(w, msgInvalidSlot)
	case errors.Is(err, entity.ErrInvalidDate):
		response.BadRequest(w, msgInvalidDate)
	case errors.Is(err, usecase.ErrInvalidDuration):
		response.BadRequest(w, "duration_hours must be greater than zero")
	case errors.Is(err, usecase.ErrDurationExceedsSlot):
		response.BadRequest(w, "duration_hours does not fit in the slot")
	case errors.Is(err, service.ErrNoProviderAvailable):
		response.Conflict(w, msgNoProvider)
	case errors.Is(err, service.ErrAllocationConflict):
		response.Conflict(w, msgProviderTaken)
	case errors.Is(err, entity.ErrInvalidTransition):
		response.Conflict(w, "Booking cannot move to the requested status")
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(w, msgBookingMissing)
	case errors.Is(err, service.ErrProviderNotFound):
		response.NotFound(w, "Provider not found")
	default:
		response.InternalServerError(w, fallback)
	}
}

func bookingIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}

// decodeOptionalBody decodes a JSON body when one is sent; an empty body leaves v untouched
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}
