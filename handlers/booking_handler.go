package handlers

import (
	"net/http"

	"cinebook/models"
	"cinebook/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type BookingHandler struct {
	app          *pocketbase.PocketBase
	store        *services.Store
	reservations *services.ReservationService
}

func NewBookingHandler(app *pocketbase.PocketBase, store *services.Store, reservations *services.ReservationService) *BookingHandler {
	return &BookingHandler{
		app:          app,
		store:        store,
		reservations: reservations,
	}
}

// ConfirmBooking - Promote seats to a durable booking. Callers send either
// explicit seat keys or just a seat count for automatic placement.
func (h *BookingHandler) ConfirmBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID   string   `json:"venue_id"`
		SeatKeys  []string `json:"seat_keys"`
		SeatCount int      `json:"seat_count"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}
	if len(req.SeatKeys) == 0 && req.SeatCount <= 0 {
		return apis.NewBadRequestError("seat_keys or a positive seat_count is required", nil)
	}

	seats, err := parseSeatKeys(req.SeatKeys)
	if err != nil {
		return apis.NewBadRequestError("Invalid seat key", err)
	}

	record, booked, err := h.reservations.ConfirmBooking(
		e.Request.Context(), req.VenueID, e.Auth.Id, displayName(e), seats, req.SeatCount)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booking_id":   record.ID,
		"reference":    record.Reference,
		"seats":        models.SeatKeys(booked),
		"total_amount": record.TotalAmount,
		"status":       record.Status,
	})
}

// CompleteSession - The client is done selecting; clear whatever locks remain
func (h *BookingHandler) CompleteSession(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID string `json:"venue_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	released := h.reservations.ReleaseSession(req.VenueID, e.Auth.Id)

	return e.JSON(http.StatusOK, map[string]any{
		"released": models.SeatKeys(released),
	})
}

// CancelBooking - Cancel an owned booking and free its seats
func (h *BookingHandler) CancelBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookingID := e.Request.PathValue("bookingId")
	if bookingID == "" {
		return apis.NewBadRequestError("Booking ID required", nil)
	}

	record, err := h.store.CancelBooking(e.Request.Context(), bookingID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booking_id": record.ID,
		"status":     record.Status,
		"seats":      models.SeatKeys(record.Seats),
	})
}

// GetBookingHistory - The authenticated user's bookings, newest first
func (h *BookingHandler) GetBookingHistory(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookings, err := h.store.BookingHistory(e.Request.Context(), e.Auth.Id, 100)
	if err != nil {
		return apiError(err)
	}

	items := make([]map[string]any, 0, len(bookings))
	for _, booking := range bookings {
		items = append(items, map[string]any{
			"booking_id":   booking.ID,
			"venue_id":     booking.VenueID,
			"reference":    booking.Reference,
			"seats":        models.SeatKeys(booking.Seats),
			"total_amount": booking.TotalAmount,
			"status":       booking.Status,
			"created":      booking.Created,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{"bookings": items})
}
