package handler

import (
	"net/http"

	"go-cleaning-booking/internal/usecase"
	"go-cleaning-booking/pkg/response"
)

type AvailabilityHandler struct {
	bookingUsecase usecase.BookingUsecase
}

func NewAvailabilityHandler(bookingUsecase usecase.BookingUsecase) *AvailabilityHandler {
	return &AvailabilityHandler{
		bookingUsecase: bookingUsecase,
	}
}

// GetAvailableSlots handles GET /availability/slots?date=YYYY-MM-DD
func (h *AvailabilityHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date is required")
		return
	}

	slots, err := h.bookingUsecase.GetAvailableSlots(r.Context(), date)
	if err != nil {
		writeBookingError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

// GetAvailableProviders handles GET /availability/providers?date=&slot=&postal_code=
func (h *AvailabilityHandler) GetAvailableProviders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, slot := query.Get("date"), query.Get("slot")
	if date == "" || slot == "" {
		response.BadRequest(w, "date and slot are required")
		return
	}

	providers, err := h.bookingUsecase.GetAvailableProviders(r.Context(), date, slot, query.Get("postal_code"))
	if err != nil {
		writeBookingError(w, err, "Failed to get available providers")
		return
	}

	response.Success(w, http.StatusOK, "Available providers retrieved successfully", providers)
}
