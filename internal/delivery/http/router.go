package http

import (
	"net/http"

	"go-cleaning-booking/internal/delivery/http/handler"
	"go-cleaning-booking/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	availabilityHandler *handler.AvailabilityHandler
	bookingHandler      *handler.BookingHandler
	providerHandler     *handler.ProviderHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware
	metricsHandler      http.Handler
}

func NewRouter(
	availabilityHandler *handler.AvailabilityHandler,
	bookingHandler *handler.BookingHandler,
	providerHandler *handler.ProviderHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		availabilityHandler: availabilityHandler,
		bookingHandler:      bookingHandler,
		providerHandler:     providerHandler,
		auditLogHandler:     auditLogHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
		metricsHandler:      metricsHandler,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	if r.metricsHandler != nil {
		r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)
	}

	// Availability (public, rate limited)
	availability := api.PathPrefix("/availability").Subrouter()
	if r.rateLimitMiddleware != nil {
		availability.Use(r.rateLimitMiddleware.Handle)
	}
	availability.HandleFunc("/slots", r.availabilityHandler.GetAvailableSlots).Methods(http.MethodGet)
	availability.HandleFunc("/providers", r.availabilityHandler.GetAvailableProviders).Methods(http.MethodGet)

	// Booking routes (public, rate limited)
	bookings := api.PathPrefix("/bookings").Subrouter()
	if r.rateLimitMiddleware != nil {
		bookings.Use(r.rateLimitMiddleware.Handle)
	}
	bookings.HandleFunc("", r.bookingHandler.CreateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("", r.bookingHandler.GetCustomerBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", r.bookingHandler.GetBooking).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/confirm", r.bookingHandler.ConfirmBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/cancel", r.bookingHandler.CancelBooking).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Provider management (admin)
	admin.HandleFunc("/providers", r.providerHandler.CreateProvider).Methods(http.MethodPost)
	admin.HandleFunc("/providers", r.providerHandler.GetAllProviders).Methods(http.MethodGet)
	admin.HandleFunc("/providers/{id}", r.providerHandler.GetProvider).Methods(http.MethodGet)
	admin.HandleFunc("/providers/{id}", r.providerHandler.UpdateProvider).Methods(http.MethodPatch)
	admin.HandleFunc("/providers/{id}/blocked-dates", r.providerHandler.BlockDate).Methods(http.MethodPost)
	admin.HandleFunc("/providers/{id}/blocked-dates/{date}", r.providerHandler.UnblockDate).Methods(http.MethodDelete)
	admin.HandleFunc("/providers/{id}/capacity/{date}", r.providerHandler.GetCapacity).Methods(http.MethodGet)

	// Audit logs (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Booking progress (operators in the field, admins)
	ops := api.PathPrefix("/ops").Subrouter()
	ops.Use(r.authMiddleware.Authenticate)
	ops.Use(middleware.RequireOperator)
	ops.HandleFunc("/bookings/{id}/start", r.bookingHandler.StartBooking).Methods(http.MethodPost)
	ops.HandleFunc("/bookings/{id}/complete", r.bookingHandler.CompleteBooking).Methods(http.MethodPost)
	ops.HandleFunc("/bookings/{id}/history", r.auditLogHandler.GetBookingHistory).Methods(http.MethodGet)

	// Preflight requests match no method-bound route; give them one so CORS runs
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
